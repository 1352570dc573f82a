package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/spf13/cobra"
)

func stateName(s queue.State) string {
	switch s {
	case queue.Deferred:
		return "deferred"
	case queue.Parked:
		return "parked"
	}
	return "ready"
}

func newQueueCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "queue",
		GroupID: "sync",
		Short:   "Inspect local changes waiting for the server",
	}

	var typ string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List undelivered changes",
		Args:  cobra.NoArgs,
		RunE: e.runE(func(cmd *cobra.Command, app *App, _ []string) error {
			var t models.DataType
			if typ != "" {
				parsed, err := models.ParseDataType(typ)
				if err != nil {
					return err
				}
				t = parsed
			}
			changes, err := app.Queue.Outstanding(cmd.Context(), t)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(changes))
			for _, c := range changes {
				next := "-"
				if c.NextAttemptAt != nil {
					next = c.NextAttemptAt.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10),
					string(c.EntityType),
					c.EntityID,
					string(c.ChangeType),
					stateName(app.Queue.StateOf(c)),
					strconv.Itoa(c.SyncAttempts),
					next,
					orDash(c.LastError),
				})
			}
			return table(cmd.OutOrStdout(), []string{"#", "TYPE", "ID", "CHANGE", "STATE", "ATTEMPTS", "NEXT", "ERROR"}, rows)
		}),
	}
	listCmd.Flags().StringVarP(&typ, "type", "t", "", "only this entity type")

	retryCmd := &cobra.Command{
		Use:   "retry TYPE ID",
		Short: "Clear the retry state of a record so the next sync tries it again",
		Args:  cobra.ExactArgs(2),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			t, err := models.ParseDataType(args[0])
			if err != nil {
				return err
			}
			n, err := app.Queue.Reset(cmd.Context(), t, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d change(s)\n", n)
			return nil
		}),
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Drop delivered changes older than the retention period",
		Args:  cobra.NoArgs,
		RunE: e.runE(func(cmd *cobra.Command, app *App, _ []string) error {
			n, err := app.Queue.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d change(s)\n", n)
			return nil
		}),
	}

	cmd.AddCommand(listCmd, retryCmd, cleanupCmd)
	return cmd
}
