package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/services"
	"github.com/spf13/cobra"
)

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func stateOf(m *models.SyncMeta) string {
	state := "pending"
	if m.Synced {
		state = "synced"
	}
	if m.Imported() {
		state += ", received"
	}
	return state
}

func table(out io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// listing describes the columns of a list command.
type listing[T models.Record] struct {
	header []string
	row    func(T) []string
}

// recordCommands builds the list, show and delete subcommands shared by
// every entity kind.
func recordCommands[T models.Record](e *env, get func(*App) *services.Records[T], l listing[T]) []*cobra.Command {
	list := &cobra.Command{
		Use:   "list",
		Short: "List live records",
		Args:  cobra.NoArgs,
		RunE: e.runE(func(cmd *cobra.Command, app *App, _ []string) error {
			items, err := get(app).List(cmd.Context())
			if err != nil {
				return err
			}
			header := append(append([]string{"ID"}, l.header...), "STATE")
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				row := append(append([]string{it.Meta().ID}, l.row(it)...), stateOf(it.Meta()))
				rows = append(rows, row)
			}
			return table(cmd.OutOrStdout(), header, rows)
		}),
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			item, err := get(app).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return showRecord(cmd.OutOrStdout(), item)
		}),
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record here and, on the next sync, on the server",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			if err := get(app).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}

	return []*cobra.Command{list, show, del}
}

func showRecord(out io.Writer, item models.Record) error {
	m := item.Meta()
	fmt.Fprintf(out, "id:      %s\n", m.ID)
	fmt.Fprintf(out, "state:   %s\n", stateOf(m))
	if m.ServerVersion > 0 {
		fmt.Fprintf(out, "version: %d\n", m.ServerVersion)
	}
	if m.Imported() {
		fmt.Fprintf(out, "origin:  %s (%s)\n", m.OriginSource, m.OriginID)
	}
	fmt.Fprintf(out, "updated: %s\n", m.UpdatedAt.Local().Format(time.DateTime))

	body, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", body)
	return err
}

// created reports a new record's id.
func created(cmd *cobra.Command, item models.Record) {
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", item.Meta().ID)
}
