// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/viixet/authn/internal/auth"
)

func newSessionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create, check and end sessions",
	}
	cmd.AddCommand(newSessionLoginCmd(c))
	cmd.AddCommand(newSessionCheckCmd(c))
	cmd.AddCommand(newSessionLogoutCmd(c))
	return cmd
}

func newSessionLoginCmd(c *cli) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login USERNAME",
		Short: "Verify a password and create a pending session",
		Long: `Verify USERNAME's password and create a pending session. The
session becomes active after a two-factor or email-login token is
verified against it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd.InOrStdin(), password, "password")
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				res, err := svc.LoginUser(ctx, args[0], pw)
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				printFields(cmd,
					"session_id", res.SessionID,
					"user_id", res.UserID,
					"username", res.Username,
				)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func newSessionCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check SESSION_ID",
		Short: "Validate a session and print its identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				ident, err := svc.Authenticate(ctx, args[0])
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				printFields(cmd,
					"session_id", ident.SessionID,
					"user_id", ident.UserID,
					"username", ident.Username,
					"active", strconv.FormatBool(ident.Active),
				)
				return nil
			})
		},
	}
}

func newSessionLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout SESSION_ID",
		Short: "Terminate a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				if err := svc.Logout(ctx, args[0]); err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				cmd.Println("Session terminated")
				return nil
			})
		},
	}
}
