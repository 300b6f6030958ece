package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/cadis/internal/domain/model"
)

type simulateFlags struct {
	record     string
	id         string
	title      string
	source     string
	baseline   float64
	challenges []string
}

func newSimulateCmd(c *cli) *cobra.Command {
	var flags simulateFlags
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Project the efficiency of one observation under the heuristics",
		Long: `Simulate applies every heuristic whose trigger appears in the observation's
challenges and prints the projected efficiency and time saved.

  cadis simulate --baseline 65 --challenge "manual setup" --challenge "slow testing"
  cadis simulate --record ./observation.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd.Context(), c, flags, cmd.Flags().Changed("baseline"), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.record, "record", "", "JSON file holding one record object")
	f.StringVar(&flags.id, "id", "cli", "Observation id")
	f.StringVar(&flags.title, "title", "cli simulation", "Observation title")
	f.StringVar(&flags.source, "source-tag", model.SourceConversation, "Source tag of the observation")
	f.Float64Var(&flags.baseline, "baseline", 0, "Baseline efficiency in [0,100]")
	f.StringArrayVar(&flags.challenges, "challenge", nil, "Challenge text; repeatable")
	cmd.MarkFlagsMutuallyExclusive("record", "baseline")
	return cmd
}

func runSimulate(ctx context.Context, c *cli, flags simulateFlags, hasBaseline bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var rec model.RawRecord
	switch {
	case flags.record != "":
		r, err := readRecord(flags.record, flags.source)
		if err != nil {
			return err
		}
		rec = r
	case hasBaseline:
		challenges := make([]any, len(flags.challenges))
		for i, ch := range flags.challenges {
			challenges[i] = ch
		}
		rec = model.RawRecord{
			Source: flags.source,
			Fields: map[string]any{
				"id":                 flags.id,
				"title":              flags.title,
				"baselineEfficiency": flags.baseline,
				"challenges":         challenges,
			},
		}
	default:
		return fmt.Errorf("either --record or --baseline is required")
	}

	engine, err := newEngine(c.cfg, nil, c.log)
	if err != nil {
		return err
	}
	res, err := engine.SimulateRecord(ctx, rec)
	if err != nil {
		return err
	}
	return writeJSON(out, res)
}

// readRecord reads one JSON object as a raw record.
func readRecord(path, src string) (model.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RawRecord{}, fmt.Errorf("read %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return model.RawRecord{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return model.RawRecord{Source: src, Fields: fields}, nil
}
