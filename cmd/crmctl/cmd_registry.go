package main

import (
	"fmt"

	"crm-decision-engine/pkg/registry"

	"github.com/spf13/cobra"
)

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Export or validate the evaluator registry file",
	}

	var exportPath string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the built-in evaluator registry as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := registry.SaveRegistry(registry.Default(), exportPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry written to %s\n", exportPath)
			return nil
		},
	}
	export.Flags().StringVarP(&exportPath, "output", "o", "configs/activity-registry.json", "Destination file")

	var validatePath string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate a registry file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(validatePath)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
	validate.Flags().StringVar(&validatePath, "path", "configs/activity-registry.json", "Path to registry file")

	cmd.AddCommand(export, validate)
	return cmd
}
