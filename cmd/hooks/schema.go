// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/hooks/internal/scenario"
	"github.com/holomush/hooks/internal/xdg"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the scenario JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := scenario.GenerateSchema()
			if err != nil {
				return err
			}

			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(append(schema, '\n'))
				return oops.In("cli").Wrap(err)
			}

			if err := xdg.EnsureDir(filepath.Dir(outPath)); err != nil {
				return err
			}
			if err := os.WriteFile(outPath, schema, 0o600); err != nil {
				return oops.In("cli").With("path", outPath).Hint("failed to write schema").Wrap(err)
			}
			cmd.Printf("Generated %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "write the schema to this file instead of stdout")

	return cmd
}
