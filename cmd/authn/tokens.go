// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viixet Authn Contributors

package main

import (
	"context"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/viixet/authn/internal/auth"
)

func newTwoFactorCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "twofactor",
		Short: "Issue and verify two-factor codes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "issue USER_ID SESSION_ID",
		Short: "Issue a six-digit code bound to a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				ch, err := svc.CreateTwoFactorCode(ctx, args[0], args[1])
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				printFields(cmd, "token_id", ch.TokenID, "code", formatCode(ch.Digits))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify USER_ID SESSION_ID TOKEN_ID CODE",
		Short: "Consume a code and activate its session",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			digits, err := parseCode(args[3])
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				if err := svc.AuthenticateTwoFactorCode(ctx, digits, args[2], args[0], args[1]); err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				cmd.Println("Session activated")
				return nil
			})
		},
	})

	return cmd
}

func newEmailLoginCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emaillogin",
		Short: "Issue and verify email-login secrets",
	}

	var secret string
	issue := &cobra.Command{
		Use:   "issue USER_ID SESSION_ID",
		Short: "Store an email-login secret for a session",
		Long: `Store an email-login secret for a session. A random secret is
generated unless --secret is given. The secret is stored as given and
matched verbatim on verify, so it must be unguessable; anyone with read
access to the credential store can use a live one.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := secretOrGenerate(secret)
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				tokenID, err := svc.CreateEmailLoginToken(ctx, s, args[0], args[1])
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				printFields(cmd, "token_id", tokenID, "secret", s)
				return nil
			})
		},
	}
	issue.Flags().StringVar(&secret, "secret", "", "use this secret instead of a generated one")
	cmd.AddCommand(issue)

	cmd.AddCommand(&cobra.Command{
		Use:   "verify USER_ID SESSION_ID SECRET",
		Short: "Consume an email-login secret and activate its session",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				if err := svc.AuthenticateLoginToken(ctx, args[2], args[0], args[1]); err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				cmd.Println("Session activated")
				return nil
			})
		},
	})

	return cmd
}

func newPasswordCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Issue password-renewal secrets and change passwords",
	}

	var secret string
	issue := &cobra.Command{
		Use:   "issue USER_ID SESSION_ID",
		Short: "Store a password-renewal secret for a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := secretOrGenerate(secret)
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				tokenID, err := svc.CreatePasswordRenewalToken(ctx, s, args[0], args[1])
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				printFields(cmd, "token_id", tokenID, "secret", s)
				return nil
			})
		},
	}
	issue.Flags().StringVar(&secret, "secret", "", "use this secret instead of a generated one")
	cmd.AddCommand(issue)

	var newPassword string
	change := &cobra.Command{
		Use:   "change USER_ID SESSION_ID SECRET",
		Short: "Consume a renewal secret and set a new password",
		Long: `Consume a password-renewal secret and set a new password. The new
password is taken from --new-password or, when that is empty, from the
first line of standard input.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd.InOrStdin(), newPassword, "new password")
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				updated, err := svc.ChangePassword(ctx, pw, args[2], args[0], args[1])
				if err != nil {
					return err //nolint:wrapcheck // auth errors carry their own codes
				}
				if !updated {
					return oops.Code("PASSWORD_NOT_UPDATED").
						With("user_id", args[0]).
						Errorf("secret accepted but no live user was updated")
				}
				cmd.Println("Password changed")
				return nil
			})
		},
	}
	change.Flags().StringVar(&newPassword, "new-password", "", "the new password")
	cmd.AddCommand(change)

	return cmd
}

func secretOrGenerate(secret string) (string, error) {
	if secret != "" {
		return secret, nil
	}
	s, err := auth.GenerateTokenSecret()
	if err != nil {
		return "", oops.With("operation", "generate token secret").Wrap(err)
	}
	return s, nil
}

// formatCode renders digits as the string a user types back, e.g. "314159".
func formatCode(digits []int) string {
	var b strings.Builder
	for _, d := range digits {
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}

// parseCode is the inverse of formatCode. Length is checked by the service.
func parseCode(code string) ([]int, error) {
	digits := make([]int, 0, len(code))
	for i, r := range code {
		if r < '0' || r > '9' {
			return nil, oops.Code("TOKEN_INVALID_CODE").
				With("position", i).
				Errorf("two-factor code must contain only digits")
		}
		digits = append(digits, int(r-'0'))
	}
	return digits, nil
}
