package cli

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/boatlog/internal/buildinfo"
	"github.com/dmitrijs2005/boatlog/internal/client/config"
	"github.com/spf13/cobra"
)

// env is shared by every command of one invocation.
type env struct {
	cfg  *config.Config
	app  *App
	in   *bufio.Reader
	out  io.Writer
	push bool
}

// App opens the client on first use.
func (e *env) App(ctx context.Context) (*App, error) {
	if e.app != nil {
		return e.app, nil
	}
	app, err := NewApp(ctx, e.cfg)
	if err != nil {
		return nil, err
	}
	if e.push {
		app.Logbook.SetRequester(&pusher{ctx: ctx, app: app, out: e.out})
	}
	e.app = app
	return app, nil
}

func (e *env) close() error {
	if e.app == nil {
		return nil
	}
	err := e.app.Close()
	e.app = nil
	return err
}

// runE adapts a command body that needs the App.
func (e *env) runE(fn func(cmd *cobra.Command, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := e.App(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd, app, args)
	}
}

func newRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "boatlog",
		Short: "Offline-first boat logbook",
		Long: `boatlog keeps a boat logbook on this device and reconciles it with the
boatlog server whenever the network allows. Boats, trips and crew lists can
also be passed between devices as sequences of chunks, e.g. QR codes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	e.cfg.BindFlags(root.PersistentFlags())
	root.PersistentFlags().BoolVar(&e.push, "push", false, "send each change to the server right away when it is reachable")

	root.AddGroup(
		&cobra.Group{ID: "logbook", Title: "Logbook:"},
		&cobra.Group{ID: "sync", Title: "Sync and sharing:"},
		&cobra.Group{ID: "account", Title: "Account and device:"},
	)

	root.AddCommand(
		newRegisterCommand(e),
		newLoginCommand(e),
		newLogoutCommand(e),
		newWhoamiCommand(e),
		newCrewNameCommand(e),

		newBoatCommand(e),
		newTripCommand(e),
		newNoteCommand(e),
		newTodoCommand(e),
		newTemplateCommand(e),
		newEventCommand(e),
		newLocationCommand(e),
		newPhotoCommand(e),

		newSyncCommand(e),
		newShareCommand(e),
		newScanCommand(e),
		newQueueCommand(e),
		newDaemonCommand(e),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}

// Execute runs the command line in args. Configuration is read from
// defaults, the JSON file named by -c, then flags.
func Execute(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	e := &env{cfg: config.LoadConfig(args), in: bufio.NewReader(in), out: out}
	root := newRootCommand(e)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, e.close())
}
