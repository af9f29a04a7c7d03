// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/hooks/pkg/hooks"
)

// NewResolveCmd creates the resolve subcommand.
func NewResolveCmd() *cobra.Command {
	var redirects []string

	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Print the redirect chain for a hook name",
		Long: `Apply the given redirects in order and print the chain a name follows,
for example "a -> b -> c". A redirect that would close a cycle is rejected.`,
		Example: `  hooks resolve --redirect save=persist --redirect persist=store save`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			d := hooks.New(hooks.WithLogger(logger))
			for _, pair := range redirects {
				from, to, err := parseRedirect(pair)
				if err != nil {
					return err
				}
				if err := d.Redirect(from, to); err != nil {
					return err //nolint:wrapcheck // already an oops error with context
				}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(d.ResolveChain(args[0]), " -> "))
			return oops.In("cli").Wrap(err)
		},
	}

	cmd.Flags().StringArrayVarP(&redirects, "redirect", "r", nil, "redirect as from=to (repeatable)")

	return cmd
}

func parseRedirect(pair string) (string, string, error) {
	from, to, ok := strings.Cut(pair, "=")
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if !ok || from == "" || to == "" {
		return "", "", oops.In("cli").With("redirect", pair).Errorf("redirect must be from=to, got %q", pair)
	}
	return from, to, nil
}
