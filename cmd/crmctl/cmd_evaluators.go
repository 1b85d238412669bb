package main

import (
	"fmt"
	"text/tabwriter"

	"crm-decision-engine/internal/engine"

	"github.com/spf13/cobra"
)

func newEvaluatorsCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluators",
		Short: "List available evaluators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			eng, err := engine.New(cfg.Rules, log)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTASK TYPE\tTOPIC\tCACHEABLE")
			for _, name := range eng.Evaluators() {
				a, _ := eng.Registry().Find(name)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", a.ID, a.TaskType, a.Topic, a.Deterministic)
			}
			return tw.Flush()
		},
	}
}
