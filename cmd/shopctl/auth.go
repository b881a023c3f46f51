package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/pkg/authclient"
)

func newSignupCmd(a *app) *cobra.Command {
	var in authclient.SignupInput
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			if in.ConfirmPassword == "" {
				in.ConfirmPassword = in.Password
			}
			s, err := a.session.Signup(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed up as %s (%s)\n", s.Email, s.Role)
			return nil
		}),
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	cmd.Flags().StringVar(&in.ConfirmPassword, "confirm-password", "", "password confirmation (defaults to --password)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			s, err := a.session.Login(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", s.Email, s.Role)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			if err := a.session.Logout(ctx); err != nil {
				return err
			}
			a.http.ResetCredentials()
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: a.online(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			s, err := a.session.CheckAuth(ctx)
			if err != nil {
				if authclient.IsUnauthorized(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "anonymous")
					return nil
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		}),
	}
}
