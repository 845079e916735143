package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/viewmodel"
)

func (a *cli) itemsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "items", Short: "List, synchronize and edit items"}
	cmd.AddCommand(
		a.itemsListCmd(),
		a.itemsSyncCmd(),
		a.itemsMoreCmd(),
		a.itemsAddCmd(),
		a.itemsEditCmd(),
		a.itemsRmCmd(),
		a.itemsFavCmd(),
		a.itemsShowCmd(),
	)
	return cmd
}

func (a *cli) itemsListCmd() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List locally stored items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.container(cmd.Context())
			if err != nil {
				return err
			}
			c.Items.LoadLocal(cmd.Context())
			c.Items.SetSearch(search)
			snap := c.Items.Snapshot()
			if err := snap.State.Err(); err != nil {
				return err
			}
			return a.printItems(cmd.OutOrStdout(), snap.Filtered)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive filter on title and description")
	return cmd
}

func (a *cli) itemsSyncCmd() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the first page from the server and merge it locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			c.Items.LoadLocal(cmd.Context())
			if err := c.Items.Refresh(cmd.Context()); err != nil {
				return err
			}
			c.Items.SetSearch(search)
			return a.printSnapshot(cmd.OutOrStdout(), c.Items.Snapshot())
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive filter on title and description")
	return cmd
}

func (a *cli) itemsMoreCmd() *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "more",
		Short: "Synchronize, then load additional pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pages < 1 {
				return errs.Validation("--pages must be at least 1")
			}
			c, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c.Items.LoadLocal(ctx)
			if err := c.Items.Refresh(ctx); err != nil {
				return err
			}
			for i := 0; i < pages && c.Items.Snapshot().CanLoadMore(); i++ {
				if err := c.Items.LoadMore(ctx); err != nil {
					return err
				}
			}
			return a.printSnapshot(cmd.OutOrStdout(), c.Items.Snapshot())
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of extra pages to load")
	return cmd
}

func (a *cli) itemsAddCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, err := viewmodel.ValidateTitle(args[0])
			if err != nil {
				return err
			}
			c, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			c.Items.LoadLocal(cmd.Context())
			it, err := c.Items.CreateItem(cmd.Context(), title, description)
			if err != nil {
				return err
			}
			return a.printItem(cmd.OutOrStdout(), it)
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "optional description")
	return cmd
}

func (a *cli) itemsEditCmd() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or description of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cur, err := c.DB.Items().Get(ctx, args[0])
			if err != nil {
				return errs.Wrap(err)
			}
			if cmd.Flags().Changed("title") {
				if cur.Title, err = viewmodel.ValidateTitle(title); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("description") {
				cur.Description = description
			}

			c.Items.LoadLocal(ctx)
			it, err := c.Items.UpdateItem(ctx, cur, cur.Title, cur.Description)
			if err != nil {
				return err
			}
			return a.printItem(cmd.OutOrStdout(), it)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func (a *cli) itemsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete items; stops at the first failure",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			c.Items.LoadLocal(cmd.Context())
			if err := c.Items.DeleteItems(cmd.Context(), args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d item(s)\n", len(args))
			return nil
		},
	}
}

func (a *cli) itemsFavCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fav <id>",
		Short: "Toggle the favorite flag (local only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.container(cmd.Context())
			if err != nil {
				return err
			}
			c.Items.LoadLocal(cmd.Context())
			it, err := c.Items.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printItem(cmd.OutOrStdout(), it)
		},
	}
}

func (a *cli) itemsShowCmd() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.container(cmd.Context())
			if err != nil {
				return err
			}
			if !remote {
				it, err := c.DB.Items().Get(cmd.Context(), args[0])
				if err != nil {
					return errs.Wrap(err)
				}
				return a.printItem(cmd.OutOrStdout(), it)
			}
			if !c.API.IsAuthenticated() {
				return errNotSignedIn
			}
			it, err := c.API.GetItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printItem(cmd.OutOrStdout(), it)
		},
	}
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "fetch from the server instead of the local store")
	return cmd
}
