// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/viixet/authn/internal/config"
)

// cli carries state shared by every subcommand of one root command.
type cli struct {
	configFile string
	deps       *Deps
}

// NewRootCmd creates the root command for the authn CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

// newRootCmdWithDeps builds the command tree over deps. Nil deps and nil
// fields use the production implementations.
func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	c := &cli{deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "authn",
		Short: "authn - credential and session authentication",
		Long: `authn manages users, sessions and single-use auth tokens
(two-factor codes, email-login and password-renewal secrets)
over a PostgreSQL credential store.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&c.configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(c))
	cmd.AddCommand(newUserCmd(c))
	cmd.AddCommand(newSessionCmd(c))
	cmd.AddCommand(newTwoFactorCmd(c))
	cmd.AddCommand(newEmailLoginCmd(c))
	cmd.AddCommand(newPasswordCmd(c))
	cmd.AddCommand(newServeCmd(c))

	return cmd
}
