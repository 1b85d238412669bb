// crmctl evaluates CRM records against the configured rule set from the command line.
//
// Usage:
//
//	crmctl evaluate <evaluator> -f record.yaml [-f more.json] [-o text|json]
//	crmctl evaluators
//	crmctl registry export -o configs/activity-registry.json
//	crmctl registry validate -path configs/activity-registry.json
//	crmctl serve
package main

import (
	"fmt"
	"os"

	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/logger"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "crmctl",
		Short: "Evaluate CRM records with the sales rule engine",
		Long: "crmctl runs the lead qualifier, follow-up planner, quotation engine,\n" +
			"pipeline risk assessor and sales coach against local records.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default: configs/config.yaml lookup)")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "Log level for diagnostics on stderr")

	root.AddCommand(newEvaluateCmd(flags))
	root.AddCommand(newEvaluatorsCmd(flags))
	root.AddCommand(newRegistryCmd())
	root.AddCommand(newServeCmd(flags))
	return root
}

func (f *rootFlags) load() (*config.Config, logger.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFromFile(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.NewFromConfig(f.logLevel, "console", "stderr"), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
