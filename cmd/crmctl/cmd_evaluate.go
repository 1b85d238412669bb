package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"crm-decision-engine/internal/common/observability"
	"crm-decision-engine/internal/engine"
	"crm-decision-engine/internal/models"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type evaluateFlags struct {
	files    []string
	input    string
	output   string
	parallel int
}

func newEvaluateCmd(root *rootFlags) *cobra.Command {
	flags := &evaluateFlags{}

	cmd := &cobra.Command{
		Use:   "evaluate <evaluator>",
		Short: "Evaluate one or more records",
		Long: "Reads YAML or JSON records from -f (use - for stdin) or --input and prints\n" +
			"each evaluation in argument order.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, root, flags, args[0])
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&flags.files, "file", "f", nil, "Record file (YAML or JSON); repeatable")
	f.StringVar(&flags.input, "input", "", "Inline record (YAML or JSON)")
	f.StringVarP(&flags.output, "output", "o", "text", "Output format: text or json")
	f.IntVar(&flags.parallel, "parallel", 4, "Records evaluated concurrently")
	return cmd
}

func runEvaluate(cmd *cobra.Command, root *rootFlags, flags *evaluateFlags, evaluator string) error {
	if flags.output != "text" && flags.output != "json" {
		return fmt.Errorf("unsupported output format %q", flags.output)
	}

	records, err := readRecords(cmd.InOrStdin(), flags)
	if err != nil {
		return err
	}

	cfg, log, err := root.load()
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg.Rules, log, engine.WithObservability(observability.NewNoop()))
	if err != nil {
		return err
	}

	results := make([]*models.EvaluationResult, len(records))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(flags.parallel, 1))
	for i, record := range records {
		i, record := i, record
		g.Go(func() error {
			result, err := eng.Evaluate(ctx, evaluator, record)
			if err != nil {
				return fmt.Errorf("record %d: %w", i+1, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return printResults(cmd.OutOrStdout(), flags.output, results)
}

func readRecords(stdin io.Reader, flags *evaluateFlags) ([]map[string]interface{}, error) {
	var records []map[string]interface{}

	for _, path := range flags.files {
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		record, err := parseRecord(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		records = append(records, record)
	}

	if flags.input != "" {
		record, err := parseRecord([]byte(flags.input))
		if err != nil {
			return nil, fmt.Errorf("parse --input: %w", err)
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no records: pass -f <file> or --input")
	}
	return records, nil
}

// parseRecord accepts YAML or JSON, since JSON is a YAML subset.
func parseRecord(data []byte) (map[string]interface{}, error) {
	record := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func printResults(w io.Writer, format string, results []*models.EvaluationResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}

	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w, "---")
		}
		fmt.Fprintln(w, r.Summary)
	}
	return nil
}
