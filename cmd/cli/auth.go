package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/itemsync/internal/app"
	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
)

func (a *cli) signUpCmd() *cobra.Command {
	var s model.SignUp
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if s.Email == "" || s.Password == "" || strings.TrimSpace(s.Name) == "" {
				return errs.Validation("email, password and name are required")
			}
			c, err := a.container(cmd.Context())
			if err != nil {
				return err
			}
			u, err := c.API.SignUp(cmd.Context(), s)
			if err != nil {
				return err
			}
			return a.printUser(cmd.OutOrStdout(), u)
		},
	}
	cmd.Flags().StringVarP(&s.Email, "email", "e", "", "email")
	cmd.Flags().StringVarP(&s.Password, "password", "p", "", "password (min 8 characters)")
	cmd.Flags().StringVarP(&s.Name, "name", "n", "", "display name")
	return cmd
}

func (a *cli) loginCmd() *cobra.Command {
	var creds model.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Email == "" || creds.Password == "" {
				return errs.Validation("need --email and --password")
			}
			c, err := a.container(cmd.Context())
			if err != nil {
				return err
			}
			u, err := c.API.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			return a.printUser(cmd.OutOrStdout(), u)
		},
	}
	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password")
	return cmd
}

func (a *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.container(cmd.Context())
			if err != nil {
				return err
			}
			err = c.API.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			if err != nil {
				c.Log.Warn("remote logout failed", zap.Error(err))
			}
			return nil
		},
	}
}

func (a *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			u, err := c.API.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			return a.printUser(cmd.OutOrStdout(), u)
		},
	}
}

func (a *cli) profileCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "profile", Short: "Manage the profile"}

	var name, email string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change name or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var upd model.UserUpdate
			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}
			if cmd.Flags().Changed("email") {
				upd.Email = &email
			}
			if upd.Name == nil && upd.Email == nil {
				return errs.Validation("nothing to update, pass --name or --email")
			}
			c, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			u, err := c.API.UpdateUser(cmd.Context(), upd)
			if err != nil {
				return err
			}
			return a.printUser(cmd.OutOrStdout(), u)
		},
	}
	update.Flags().StringVar(&name, "name", "", "new display name")
	update.Flags().StringVar(&email, "email", "", "new email")
	cmd.AddCommand(update)
	return cmd
}

func (a *cli) accountCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Manage the account"}

	var yes bool
	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the account and every item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errs.Validation("refusing to delete the account without --yes")
			}
			c, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			if err := c.API.DeleteAccount(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "account deleted")
			return nil
		},
	}
	del.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	cmd.AddCommand(del)
	return cmd
}

var errNotSignedIn = errors.New("not signed in; run `itemsync login` first")

func (a *cli) requireSession(cmd *cobra.Command) (*app.Container, error) {
	c, err := a.container(cmd.Context())
	if err != nil {
		return nil, err
	}
	if !c.API.IsAuthenticated() {
		return nil, errNotSignedIn
	}
	return c, nil
}
