// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/viixet/authn/internal/auth"
)

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserRegisterCmd(c))
	return cmd
}

func newUserRegisterCmd(c *cli) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "register USERNAME EMAIL",
		Short: "Register a new user",
		Long: `Register a new user. The password is taken from --password or,
when that is empty, from the first line of standard input.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd.InOrStdin(), password, "password")
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				userID, err := svc.RegisterUser(ctx, args[0], pw, args[1])
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				printFields(cmd, "user_id", userID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password for the new user")
	return cmd
}
