package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/cadis/internal/config"
	"github.com/okian/cadis/pkg/logger"
)

// cli carries what every subcommand needs once flags are parsed.
type cli struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "cadis",
		Short: "Context-aware insight engine",
		Long: "cadis turns journal, conversation and module records into a classified\n" +
			"scenario, ranked insights and counterfactual efficiency projections.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&c.configPath, "config", "", "YAML config file (default: $"+config.EnvConfigFile+")")
	f.StringVar(&c.logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	root.AddCommand(newServeCmd(c))
	root.AddCommand(newAnalyzeCmd(c))
	root.AddCommand(newSimulateCmd(c))
	root.AddCommand(newScenariosCmd(c))
	root.AddCommand(newLoadTestCmd(c))
	root.Version = version
	return root
}

// setup loads the config and initializes logging on stderr so command
// output on stdout stays machine readable.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFrom(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	if err := logger.InitWithOptions(logger.Options{
		Format: cfg.LogFormat,
		Writer: cmd.ErrOrStderr(),
		Source: true,
	}); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.cfg = cfg
	c.log = log
	return nil
}
