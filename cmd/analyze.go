package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/cadis/internal/adapters/source"
	app "github.com/okian/cadis/internal/app"
	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
)

type analyzeFlags struct {
	records     []string
	sources     []string
	dir         string
	runID       string
	maxInsights int
	save        bool
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one analysis and print the result as JSON",
		Long: `Analyze records and print the scenario, insights, trend and run report.

Records come either from files or from the configured record sources:

  cadis analyze --records journal=./journal.json --records module=./modules.json
  cadis analyze --dir ./records --source journal --source module

Each records file is a JSON array of objects; the part before "=" is the
source tag. With --dir, <dir>/<source>.json is read for every --source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd.Context(), c, flags, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&flags.records, "records", nil, "Records file as <source>=<path>; repeatable")
	f.StringArrayVar(&flags.sources, "source", nil, "Record source to fetch; repeatable")
	f.StringVar(&flags.dir, "dir", "", "Records directory (default: records_dir from config)")
	f.StringVar(&flags.runID, "id", "", "Run id (default: generated)")
	f.IntVar(&flags.maxInsights, "max-insights", -1, "Cap on insights; 0 means unbounded (default: max_insights from config)")
	f.BoolVar(&flags.save, "save", false, "Store the result in the configured run store")
	cmd.MarkFlagsMutuallyExclusive("records", "source")
	return cmd
}

func runAnalyze(ctx context.Context, c *cli, flags analyzeFlags, out io.Writer) error {
	if len(flags.records) == 0 && len(flags.sources) == 0 {
		return fmt.Errorf("either --records or --source is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := *c.cfg
	if flags.dir != "" {
		cfg.RecordsDir = flags.dir
	}
	b, err := openBackends(ctx, &cfg, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			c.log.Warn(ctx, "close backends", logger.Error(err))
		}
	}()

	engine, err := newEngine(&cfg, listerOf(b.sources), c.log)
	if err != nil {
		return err
	}

	opts := []app.RunOption{app.WithRunID(flags.runID)}
	if flags.maxInsights >= 0 {
		opts = append(opts, app.WithMaxInsights(flags.maxInsights))
	}

	var res *model.RunResult
	if len(flags.records) > 0 {
		records, err := readRecordFiles(flags.records)
		if err != nil {
			return err
		}
		res, err = engine.RunAnalysis(ctx, records, opts...)
		if err != nil {
			return err
		}
	} else {
		res, err = engine.RunSources(ctx, flags.sources, opts...)
		if err != nil {
			return err
		}
	}

	if flags.save {
		if err := b.store.SaveRun(ctx, *res); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}
	return writeJSON(out, res)
}

// readRecordFiles reads every <source>=<path> pair in order.
func readRecordFiles(specs []string) ([]model.RawRecord, error) {
	var out []model.RawRecord
	for _, spec := range specs {
		src, path, ok := strings.Cut(spec, "=")
		if !ok || src == "" || path == "" {
			return nil, fmt.Errorf("invalid --records %q: want <source>=<path>", spec)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		recs, err := source.DecodeRecords(src, data)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
