package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowgraph/ivrflow/internal/adapters/catalogfile"
	"github.com/flowgraph/ivrflow/internal/app/usecases"
	"github.com/flowgraph/ivrflow/internal/core/catalog"
	"github.com/flowgraph/ivrflow/internal/core/flow"
	"github.com/flowgraph/ivrflow/pkg/validation"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ivrflow",
		Short:         "Inspect and validate IVR call flows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newVersionCmd(), newValidateCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ivrflow %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		},
	}
}

func newValidateCmd() *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "validate <flow.json>",
		Short: "Check a saved flow document against a catalog",
		Long: `Load a saved flow document, resolve its card labels against the catalog
and run every finalize check on it.

On success the normalized document is printed as JSON. On failure the first
violation is reported and the command exits non-zero.

The catalog file may be YAML or JSON:
  experiences:
    - id: 5
      name: Billing
      categories:
        - id: 9
          name: Invoices`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			var c catalog.Catalog
			if catalogPath != "" {
				if c, err = catalogfile.Load(catalogPath); err != nil {
					return err
				}
			}
			return runValidate(cmd, doc, c)
		},
	}
	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", "", "catalog file (YAML or JSON)")
	return cmd
}

func runValidate(cmd *cobra.Command, doc flow.Document, c catalog.Catalog) error {
	fc, err := usecases.HydrateFlowController(doc, c)
	if err != nil {
		return err
	}
	out, err := fc.Finalize(doc.Name)
	if err != nil {
		if v, ok := validation.AsViolation(err); ok {
			return fmt.Errorf("flow %q is not valid: %s (%s)", doc.Name, v.Message, v.Rule)
		}
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readDocument(path string) (flow.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return flow.Document{}, fmt.Errorf("read flow document: %w", err)
	}
	var doc flow.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return flow.Document{}, errors.Join(validation.ErrMalformedDocument, fmt.Errorf("parse %s: %w", path, err))
	}
	return doc, nil
}
