package cli

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/services"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type boatFlags struct {
	name, officialNumber, homePort, kind string
	length                               float64
}

func (f *boatFlags) bind(fs *pflag.FlagSet, withName bool) {
	if withName {
		fs.StringVar(&f.name, "name", "", "boat name")
	}
	fs.StringVar(&f.officialNumber, "official-number", "", "registration or official number")
	fs.StringVar(&f.homePort, "home-port", "", "home port")
	fs.StringVar(&f.kind, "kind", "", "sailboat, motorboat, ...")
	fs.Float64Var(&f.length, "length", 0, "length overall in meters")
}

// apply copies the flags the user set onto b.
func (f *boatFlags) apply(fs *pflag.FlagSet, b *models.Boat) {
	if fs.Changed("name") {
		b.Name = f.name
	}
	if fs.Changed("official-number") {
		b.OfficialNumber = f.officialNumber
	}
	if fs.Changed("home-port") {
		b.HomePort = f.homePort
	}
	if fs.Changed("kind") {
		b.Kind = f.kind
	}
	if fs.Changed("length") {
		b.LengthMeters = f.length
	}
}

func newBoatCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "boat",
		GroupID: "logbook",
		Short:   "Manage boats",
	}
	get := func(a *App) *services.Records[*models.Boat] { return a.Logbook.Boats.Records }

	var add boatFlags
	var active bool
	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a boat",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			b := &models.Boat{Name: args[0]}
			add.apply(cmd.Flags(), b)
			b, err := app.Logbook.Boats.Create(cmd.Context(), b)
			if err != nil {
				return err
			}
			if active {
				if err := app.Logbook.Boats.Activate(cmd.Context(), b.ID); err != nil {
					return err
				}
			}
			created(cmd, b)
			return nil
		}),
	}
	add.bind(addCmd.Flags(), false)
	addCmd.Flags().BoolVar(&active, "active", false, "make it the active boat")

	var edit boatFlags
	editCmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a boat",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			_, err := app.Logbook.Boats.Update(cmd.Context(), args[0], func(b *models.Boat) error {
				edit.apply(cmd.Flags(), b)
				return nil
			})
			return err
		}),
	}
	edit.bind(editCmd.Flags(), true)

	activateCmd := &cobra.Command{
		Use:   "activate ID",
		Short: "Make a boat the one new trips are logged for",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			if err := app.Logbook.Boats.Activate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active boat is now %s\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(addCmd, editCmd, activateCmd)
	cmd.AddCommand(recordCommands(e, get, listing[*models.Boat]{
		header: []string{"NAME", "NUMBER", "PORT", "ACTIVE"},
		row: func(b *models.Boat) []string {
			return []string{b.Name, orDash(b.OfficialNumber), orDash(b.HomePort), strconv.FormatBool(b.Active)}
		},
	})...)
	return cmd
}
