package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/services"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errNoActiveBoat = errors.New("no active boat; pass --boat or run 'boatlog boat activate'")

// parseWhen accepts RFC3339 or "now".
func parseWhen(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if s == "now" {
		t := time.Now().UTC().Truncate(time.Second)
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("time %q: expected RFC3339 or \"now\"", s)
	}
	t = t.UTC()
	return &t, nil
}

func activeBoat(ctx context.Context, app *App) (string, error) {
	boats, err := app.Logbook.Boats.List(ctx)
	if err != nil {
		return "", err
	}
	for _, b := range boats {
		if b.Active {
			return b.ID, nil
		}
	}
	return "", errNoActiveBoat
}

// boatOrActive returns the --boat flag or the active boat.
func boatOrActive(ctx context.Context, app *App, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return activeBoat(ctx, app)
}

type tripFlags struct {
	boat, title, departure, destination, skipper, started, ended string
}

func (f *tripFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.boat, "boat", "", "boat id (default: the active boat)")
	fs.StringVar(&f.title, "title", "", "trip title")
	fs.StringVar(&f.departure, "from", "", "port of departure")
	fs.StringVar(&f.destination, "to", "", "destination")
	fs.StringVar(&f.skipper, "skipper", "", "skipper")
	fs.StringVar(&f.started, "start", "", "start time, RFC3339 or \"now\"")
	fs.StringVar(&f.ended, "end", "", "end time, RFC3339 or \"now\"")
}

func (f *tripFlags) apply(fs *pflag.FlagSet, t *models.Trip) error {
	if fs.Changed("boat") {
		t.BoatID = f.boat
	}
	if fs.Changed("title") {
		t.Title = f.title
	}
	if fs.Changed("from") {
		t.Departure = f.departure
	}
	if fs.Changed("to") {
		t.Destination = f.destination
	}
	if fs.Changed("skipper") {
		t.Skipper = f.skipper
	}
	if fs.Changed("start") {
		when, err := parseWhen(f.started)
		if err != nil {
			return err
		}
		t.StartedAt = when
	}
	if fs.Changed("end") {
		when, err := parseWhen(f.ended)
		if err != nil {
			return err
		}
		t.EndedAt = when
	}
	return nil
}

func newTripCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trip",
		GroupID: "logbook",
		Short:   "Manage trips and their crew",
	}
	get := func(a *App) *services.Records[*models.Trip] { return a.Logbook.Trips.Records }

	var add tripFlags
	addCmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Log a trip",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			t := &models.Trip{Title: args[0]}
			if err := add.apply(cmd.Flags(), t); err != nil {
				return err
			}
			boatID, err := boatOrActive(cmd.Context(), app, t.BoatID)
			if err != nil {
				return err
			}
			t.BoatID = boatID
			t, err = app.Logbook.Trips.Create(cmd.Context(), t)
			if err != nil {
				return err
			}
			created(cmd, t)
			return nil
		}),
	}
	add.bind(addCmd.Flags())

	var edit tripFlags
	editCmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a trip",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			_, err := app.Logbook.Trips.Update(cmd.Context(), args[0], func(t *models.Trip) error {
				return edit.apply(cmd.Flags(), t)
			})
			return err
		}),
	}
	edit.bind(editCmd.Flags())

	crewCmd := &cobra.Command{
		Use:   "crew TRIP",
		Short: "List the crew of a trip",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			members, err := app.Logbook.Trips.Crew(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(members))
			for _, m := range members {
				rows = append(rows, []string{m.Name, orDash(m.Role), orDash(m.DeviceOrigin)})
			}
			return table(cmd.OutOrStdout(), []string{"NAME", "ROLE", "DEVICE"}, rows)
		}),
	}

	var role string
	crewAddCmd := &cobra.Command{
		Use:   "crew-add TRIP NAME",
		Short: "Add a crew member without a device",
		Args:  cobra.ExactArgs(2),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			_, err := app.Logbook.Trips.AddCrew(cmd.Context(), args[0], args[1], role)
			return err
		}),
	}
	crewAddCmd.Flags().StringVar(&role, "role", "", "role on board")

	cmd.AddCommand(addCmd, editCmd, crewCmd, crewAddCmd)
	cmd.AddCommand(recordCommands(e, get, listing[*models.Trip]{
		header: []string{"TITLE", "BOAT", "FROM", "TO", "STARTED"},
		row: func(t *models.Trip) []string {
			started := "-"
			if t.StartedAt != nil {
				started = t.StartedAt.Local().Format(time.DateTime)
			}
			return []string{t.Title, orDash(t.BoatID), orDash(t.Departure), orDash(t.Destination), started}
		},
	})...)
	return cmd
}
