package main

import (
	"context"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/cadis/internal/loadtest"
)

// Load test defaults.
const (
	defaultNumRuns       = 200
	defaultRecordsPerRun = 20
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultPollInterval  = 100 * time.Millisecond
	defaultWaitTimeout   = 5 * time.Minute
)

func newLoadTestCmd(_ *cli) *cobra.Command {
	cfg := &loadtest.Config{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Submit generated runs to a running server and verify the results",
		Long: `Loadtest generates runs over synthetic records, queues them through
POST /runs, polls GET /runs/{id} until each run finishes and checks the
results: run id, scenario, insight cap, confidence order and insight fields.

  cadis loadtest --url http://localhost:9080 --runs 500 --workers 16`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.WaitTimeout+time.Minute)
			defer cancel()
			_, err := loadtest.Run(ctx, cfg)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.IntVar(&cfg.NumRuns, "runs", defaultNumRuns, "Number of runs to submit")
	f.IntVar(&cfg.RecordsPerRun, "records", defaultRecordsPerRun, "Records per run")
	f.IntVar(&cfg.MaxInsights, "max-insights", 0, "maxInsights sent with every run; 0 means unbounded")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.DurationVar(&cfg.PollInterval, "poll", defaultPollInterval, "Delay between run status polls")
	f.DurationVar(&cfg.WaitTimeout, "wait", defaultWaitTimeout, "Upper bound on waiting for runs to finish")
	f.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "Record generator seed")
	f.StringVarP(&cfg.OutputFile, "output", "o", "", "Write generated runs to this JSON file")
	f.BoolVar(&cfg.Verbose, "verbose", false, "Log every failure")
	return cmd
}
