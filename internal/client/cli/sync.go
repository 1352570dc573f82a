package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/client/syncer"
	"github.com/spf13/cobra"
)

var errSyncIncomplete = errors.New("sync finished with errors")

// recordSync remembers the time of the last fully successful sync.
func (a *App) recordSync(ctx context.Context, r syncer.Report) {
	if !r.Success {
		return
	}
	if err := repomanager.Metadata(a.db).SetLastSyncAt(ctx, time.Now()); err != nil {
		a.logger.Warn(ctx, "failed to record sync time", "error", err)
	}
}

func (a *App) lastSync(ctx context.Context) (string, error) {
	at, err := repomanager.Metadata(a.db).LastSyncAt(ctx)
	if err != nil || at.IsZero() {
		return "", err
	}
	return at.Format(time.RFC3339), nil
}

func printReport(out io.Writer, r syncer.Report) error {
	pulled := map[models.DataType]int{}
	for _, tr := range r.Pulls {
		pulled[tr.Type] = tr.Result.SyncedCount
	}
	rows := make([][]string, 0, len(r.Pushes))
	for _, tr := range r.Pushes {
		rows = append(rows, []string{string(tr.Type), strconv.Itoa(pulled[tr.Type]), strconv.Itoa(tr.Result.SyncedCount)})
	}
	if err := table(out, []string{"TYPE", "PULLED", "PUSHED"}, rows); err != nil {
		return err
	}
	for _, msg := range r.Errors() {
		fmt.Fprintf(out, "error: %s\n", msg)
	}
	if r.Cleaned > 0 {
		fmt.Fprintf(out, "cleaned %d delivered changes\n", r.Cleaned)
	}
	fmt.Fprintf(out, "finished in %s\n", r.Duration.Round(time.Millisecond))
	return nil
}

func newSyncCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "sync [TYPE ID]",
		GroupID: "sync",
		Short:   "Reconcile with the server, or push a single record",
		Long: `Without arguments every entity type is pulled and then pushed. With a type
and an id only that record is pushed. Nothing is sent while the server is
unreachable; local changes stay queued.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts no arguments or TYPE ID, received %d", len(args))
			}
			return nil
		},
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if !app.Network.Check(ctx) {
				pending, err := app.Queue.Outstanding(ctx, "")
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Server unreachable; %d changes stay queued\n", len(pending))
				return nil
			}

			if len(args) == 2 {
				t, err := models.ParseDataType(args[0])
				if err != nil {
					return err
				}
				res := app.Orch.SyncEntity(ctx, t, args[1])
				for _, msg := range res.Errors {
					fmt.Fprintf(out, "error: %s\n", msg)
				}
				if !res.Success {
					return errSyncIncomplete
				}
				fmt.Fprintf(out, "Synced %d record(s)\n", res.SyncedCount)
				return nil
			}

			report := app.Orch.SyncAll(ctx)
			app.recordSync(ctx, report)
			if err := printReport(out, report); err != nil {
				return err
			}
			if !report.Success {
				return errSyncIncomplete
			}
			return nil
		}),
	}
}
