package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"todoer/internal/session"
)

func newTokenCmd(a *app) *cobra.Command {
	var uid, email string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed identity token for signing in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireSecret(); err != nil {
				return err
			}
			auth, err := session.NewAuthenticator(a.cfg.Auth.Secret, a.cfg.Auth.AllowedEmails)
			if err != nil {
				return err
			}
			token, err := auth.Issue(uid, email, a.cfg.Auth.TokenTTL)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "user id the token signs in as")
	cmd.Flags().StringVar(&email, "email", "", "email carried by the token")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
