package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	app "github.com/okian/cadis/internal/app"
)

func newScenariosCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the classification rules, categories and heuristics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := newEngine(c.cfg, nil, c.log)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"scenarios":  engine.Scenarios(),
					"rules":      engine.Rules(),
					"categories": engine.Categories(),
					"heuristics": engine.Heuristics(),
					"templates":  engine.TemplateIDs(),
				})
			}
			return printTables(cmd.OutOrStdout(), engine)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the tables as JSON")
	return cmd
}

func printTables(out io.Writer, engine *app.Engine) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "SCENARIO\tPRIORITY\tWHEN")
	for _, r := range engine.Rules() {
		conds := make([]string, len(r.When))
		for i, c := range r.When {
			conds[i] = c.String()
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", r.ID, r.Priority, strings.Join(conds, " AND "))
	}
	for _, s := range engine.Scenarios() {
		if s.Default {
			fmt.Fprintf(w, "%s\t-\tdefault\n", s.ID)
		}
	}

	fmt.Fprintln(w, "\nCATEGORY\tLABEL\tPATTERNS")
	for _, cat := range engine.Categories() {
		fmt.Fprintf(w, "%s\t%s\t%d\n", cat.Name, cat.Label, len(cat.Patterns))
	}

	fmt.Fprintln(w, "\nHEURISTIC\tTRIGGER\tDELTA\tMINUTES")
	for _, h := range engine.Heuristics() {
		fmt.Fprintf(w, "%s\t%s\t%+.1f\t%d\n", h.ID, h.Trigger, h.EfficiencyDelta, h.TimeSavedMinutes)
	}
	return w.Flush()
}
