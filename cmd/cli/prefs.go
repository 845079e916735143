package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/itemsync/internal/prefs"
)

func (a *cli) prefsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "prefs", Short: "Show or change preferences"}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show every preference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.container(cmd.Context())
			if err != nil {
				return err
			}
			p, err := c.Settings.Load(cmd.Context())
			if err != nil {
				return err
			}
			return a.printPrefs(cmd.OutOrStdout(), p)
		},
	}

	set := &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change a preference",
		Long:      fmt.Sprintf("Keys: %s (1-%d), %s (true|false), %s (system|light|dark).", prefs.KeyPageSize, prefs.MaxPageSize, prefs.KeyNotifications, prefs.KeyAppearance),
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{prefs.KeyPageSize, prefs.KeyNotifications, prefs.KeyAppearance},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.container(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Settings.SetString(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}
