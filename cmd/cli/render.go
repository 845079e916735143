package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/prefs"
	"github.com/and161185/itemsync/internal/viewmodel"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func tsString(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func star(fav bool) string {
	if fav {
		return "*"
	}
	return " "
}

type itemRow struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Favorite    bool      `json:"is_favorite"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func rows(items []model.Item) []itemRow {
	out := make([]itemRow, 0, len(items))
	for _, it := range items {
		out = append(out, itemRow{ID: it.ID, Title: it.Title, Description: it.Description, Favorite: it.IsFavorite, UpdatedAt: it.UpdatedAt})
	}
	return out
}

func (a *cli) printItems(w io.Writer, items []model.Item) error {
	if a.asJSON {
		return printJSON(w, rows(items))
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "no items")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FAV\tID\tTITLE\tUPDATED")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", star(it.IsFavorite), it.ID, it.Title, tsString(it.UpdatedAt))
	}
	return tw.Flush()
}

func (a *cli) printItem(w io.Writer, it model.Item) error {
	if a.asJSON {
		return printJSON(w, rows([]model.Item{it})[0])
	}
	fmt.Fprintf(w, "id:          %s\n", it.ID)
	fmt.Fprintf(w, "title:       %s\n", it.Title)
	fmt.Fprintf(w, "description: %s\n", choose(it.Description, "-"))
	fmt.Fprintf(w, "favorite:    %t\n", it.IsFavorite)
	fmt.Fprintf(w, "created:     %s\n", tsString(it.CreatedAt))
	_, err := fmt.Fprintf(w, "updated:     %s\n", tsString(it.UpdatedAt))
	return err
}

func (a *cli) printSnapshot(w io.Writer, snap viewmodel.Snapshot) error {
	if err := a.printItems(w, snap.Filtered); err != nil {
		return err
	}
	if a.asJSON {
		return nil
	}
	more := "no more pages"
	if snap.Cursor.HasMore {
		more = "more pages available"
	}
	_, err := fmt.Fprintf(w, "\n%d of %d items, page %d, %s\n", len(snap.Filtered), len(snap.Items), snap.Cursor.Page, more)
	return err
}

func (a *cli) printUser(w io.Writer, u model.User) error {
	if a.asJSON {
		return printJSON(w, map[string]string{"id": u.ID, "email": u.Email, "name": u.Name})
	}
	_, err := fmt.Fprintf(w, "%s <%s> (%s)\n", u.Name, u.Email, u.ID)
	return err
}

func (a *cli) printPrefs(w io.Writer, p prefs.Preferences) error {
	m := map[string]string{
		prefs.KeyPageSize:      fmt.Sprint(p.PageSize),
		prefs.KeyNotifications: fmt.Sprint(p.NotificationsEnabled),
		prefs.KeyAppearance:    string(p.Appearance),
		prefs.KeyLastSyncedAt:  tsString(p.LastSyncedAt),
	}
	if a.asJSON {
		return printJSON(w, m)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range []string{prefs.KeyPageSize, prefs.KeyNotifications, prefs.KeyAppearance, prefs.KeyLastSyncedAt} {
		fmt.Fprintf(tw, "%s\t%s\n", k, m[k])
	}
	return tw.Flush()
}

// printError writes the user-facing description and, when there is one, a hint.
func printError(w io.Writer, err error) {
	var app *errs.AppError
	if !errors.As(err, &app) {
		app = errs.Wrap(err)
	}
	fmt.Fprintf(w, "error: %s\n", app.Error())
	if s := app.Suggestion(); s != "" {
		fmt.Fprintf(w, "hint: %s\n", s)
	}
	if app.IsRecoverable() {
		fmt.Fprintln(w, "(temporary failure, retrying may help)")
	}
}

func choose(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
