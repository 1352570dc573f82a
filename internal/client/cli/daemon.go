package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/connectivity"
	"github.com/dmitrijs2005/boatlog/internal/client/importer"
	"github.com/dmitrijs2005/boatlog/internal/client/syncer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newDaemonCommand(e *env) *cobra.Command {
	var (
		inbox          string
		resetOnFailure bool
	)
	cmd := &cobra.Command{
		Use:     "daemon",
		GroupID: "sync",
		Short:   "Keep the logbook in sync in the background",
		Long: `Watches the server's health endpoint and syncs whenever it becomes
reachable, then every --sync-interval. With --inbox chunk files dropped into
the directory are imported as they arrive. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: e.runE(func(cmd *cobra.Command, app *App, _ []string) error {
			return runDaemon(cmd, app, inbox, resetOnFailure)
		}),
	}
	cmd.Flags().StringVar(&inbox, "inbox", "", "import chunk files dropped into this directory")
	cmd.Flags().BoolVar(&resetOnFailure, "reset-on-failure", false, "start over after an inbox chunk that does not fit")
	return cmd
}

func runDaemon(cmd *cobra.Command, app *App, inbox string, resetOnFailure bool) error {
	cfg := app.cfg
	out := cmd.OutOrStdout()

	if err := cfg.ValidateDaemon(); err != nil {
		return err
	}
	sched, err := syncer.NewScheduler(app.Orch, app.Network, cfg.SyncInterval, app.logger)
	if err != nil {
		return err
	}
	sched.OnReport(func(r syncer.Report) {
		app.recordSync(context.Background(), r)
		if !r.Success {
			fmt.Fprintf(out, "sync finished with %d error(s)\n", len(r.Errors()))
		}
	})
	app.Network.OnChange(func(ctx context.Context, mode connectivity.Mode) {
		fmt.Fprintf(out, "now %s\n", mode)
		if mode == connectivity.ModeOnline {
			sched.TriggerAll()
		}
	})

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		app.Network.Watch(ctx, cfg.OnlineCheckInterval)
		return nil
	})
	g.Go(func() error {
		sched.Run(ctx)
		return nil
	})

	if inbox != "" {
		s := &chunkScanner{session: importer.NewSession(app.Importer), out: out, resetOnFailure: resetOnFailure}
		g.Go(func() error { return s.watch(ctx, inbox) })
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	app.logger.Info(ctx, "daemon started", "server", cfg.ServerURL, "interval", cfg.SyncInterval)
	fmt.Fprintln(out, "boatlog daemon running, press Ctrl+C to stop")
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
