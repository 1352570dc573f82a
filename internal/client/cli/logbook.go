package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/services"
	"github.com/spf13/cobra"
)

func newNoteCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "note", GroupID: "logbook", Short: "Manage notes"}
	get := func(a *App) *services.Records[*models.Note] { return a.Logbook.Notes }

	var trip, body string
	addCmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Write a note; the body is read from stdin unless --body is set",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			if !cmd.Flags().Changed("body") {
				text, err := GetMultiline(e.in, "Note text", cmd.OutOrStdout())
				if err != nil {
					return err
				}
				body = text
			}
			n, err := app.Logbook.Notes.Create(cmd.Context(), &models.Note{TripID: trip, Title: args[0], Body: body})
			if err != nil {
				return err
			}
			created(cmd, n)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&trip, "trip", "", "trip the note belongs to")
	addCmd.Flags().StringVar(&body, "body", "", "note text")

	var title, newBody string
	editCmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a note",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			_, err := app.Logbook.Notes.Update(cmd.Context(), args[0], func(n *models.Note) error {
				if cmd.Flags().Changed("title") {
					n.Title = title
				}
				if cmd.Flags().Changed("body") {
					n.Body = newBody
				}
				return nil
			})
			return err
		}),
	}
	editCmd.Flags().StringVar(&title, "title", "", "note title")
	editCmd.Flags().StringVar(&newBody, "body", "", "note text")

	cmd.AddCommand(addCmd, editCmd)
	cmd.AddCommand(recordCommands(e, get, listing[*models.Note]{
		header: []string{"TITLE", "TRIP"},
		row:    func(n *models.Note) []string { return []string{n.Title, orDash(n.TripID)} },
	})...)
	return cmd
}

func newTodoCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "todo", GroupID: "logbook", Short: "Manage todo lists"}
	get := func(a *App) *services.Records[*models.TodoList] { return a.Logbook.Todos }

	var boat string
	var items []string
	addCmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a todo list",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			l := &models.TodoList{BoatID: boat, Title: args[0], Items: []models.TodoItem{}}
			for _, text := range items {
				l.Items = append(l.Items, models.TodoItem{Text: text})
			}
			l, err := app.Logbook.Todos.Create(cmd.Context(), l)
			if err != nil {
				return err
			}
			created(cmd, l)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&boat, "boat", "", "boat the list belongs to")
	addCmd.Flags().StringArrayVar(&items, "item", nil, "list item, repeatable")

	var undo bool
	doneCmd := &cobra.Command{
		Use:   "done ID N",
		Short: "Tick item N (1-based) of a list",
		Args:  cobra.ExactArgs(2),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("item number %q: %w", args[1], err)
			}
			_, err = app.Logbook.Todos.Update(cmd.Context(), args[0], func(l *models.TodoList) error {
				if n < 1 || n > len(l.Items) {
					return fmt.Errorf("list has %d items, no item %d", len(l.Items), n)
				}
				l.Items[n-1].Done = !undo
				return nil
			})
			return err
		}),
	}
	doneCmd.Flags().BoolVar(&undo, "undo", false, "clear the tick instead")

	cmd.AddCommand(addCmd, doneCmd)
	cmd.AddCommand(recordCommands(e, get, listing[*models.TodoList]{
		header: []string{"TITLE", "BOAT", "DONE"},
		row: func(l *models.TodoList) []string {
			done := 0
			for _, it := range l.Items {
				if it.Done {
					done++
				}
			}
			return []string{l.Title, orDash(l.BoatID), fmt.Sprintf("%d/%d", done, len(l.Items))}
		},
	})...)
	return cmd
}

func newTemplateCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "template", GroupID: "logbook", Short: "Manage maintenance templates"}
	get := func(a *App) *services.Records[*models.MaintenanceTemplate] { return a.Logbook.Templates.Records }

	var boat, description, info string
	var days, hours int
	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Define recurring maintenance",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			boatID, err := boatOrActive(cmd.Context(), app, boat)
			if err != nil {
				return err
			}
			m, err := app.Logbook.Templates.Create(cmd.Context(), &models.MaintenanceTemplate{
				BoatID:              boatID,
				Name:                args[0],
				Description:         description,
				IntervalDays:        days,
				IntervalEngineHours: hours,
				Information:         info,
			})
			if err != nil {
				return err
			}
			created(cmd, m)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&boat, "boat", "", "boat id (default: the active boat)")
	addCmd.Flags().StringVar(&description, "description", "", "what is done")
	addCmd.Flags().StringVar(&info, "info", "", "parts, torque values, ...")
	addCmd.Flags().IntVar(&days, "every-days", 0, "interval in days")
	addCmd.Flags().IntVar(&hours, "every-hours", 0, "interval in engine hours")

	var newDays, newHours int
	scheduleCmd := &cobra.Command{
		Use:   "schedule ID",
		Short: "Change the interval of a template",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			_, err := app.Logbook.Templates.UpdateSchedule(cmd.Context(), args[0], newDays, newHours)
			return err
		}),
	}
	scheduleCmd.Flags().IntVar(&newDays, "every-days", 0, "interval in days")
	scheduleCmd.Flags().IntVar(&newHours, "every-hours", 0, "interval in engine hours")

	var newDescription, newInfo string
	infoCmd := &cobra.Command{
		Use:   "info ID",
		Short: "Change the description and information of a template",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			_, err := app.Logbook.Templates.UpdateInformation(cmd.Context(), args[0], newDescription, newInfo)
			return err
		}),
	}
	infoCmd.Flags().StringVar(&newDescription, "description", "", "what is done")
	infoCmd.Flags().StringVar(&newInfo, "info", "", "parts, torque values, ...")

	cmd.AddCommand(addCmd, scheduleCmd, infoCmd)
	cmd.AddCommand(recordCommands(e, get, listing[*models.MaintenanceTemplate]{
		header: []string{"NAME", "BOAT", "DAYS", "HOURS"},
		row: func(m *models.MaintenanceTemplate) []string {
			return []string{m.Name, orDash(m.BoatID), strconv.Itoa(m.IntervalDays), strconv.Itoa(m.IntervalEngineHours)}
		},
	})...)
	return cmd
}

func newEventCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "event", GroupID: "logbook", Short: "Record performed maintenance"}
	get := func(a *App) *services.Records[*models.MaintenanceEvent] { return a.Logbook.Events }

	var boat, template, remarks, at string
	var hours float64
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record maintenance work",
		Args:  cobra.NoArgs,
		RunE: e.runE(func(cmd *cobra.Command, app *App, _ []string) error {
			boatID, err := boatOrActive(cmd.Context(), app, boat)
			if err != nil {
				return err
			}
			when, err := parseWhen(at)
			if err != nil {
				return err
			}
			if when == nil {
				when, _ = parseWhen("now")
			}
			ev, err := app.Logbook.Events.Create(cmd.Context(), &models.MaintenanceEvent{
				TemplateID:  template,
				BoatID:      boatID,
				PerformedAt: *when,
				EngineHours: hours,
				Remarks:     remarks,
			})
			if err != nil {
				return err
			}
			created(cmd, ev)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&boat, "boat", "", "boat id (default: the active boat)")
	addCmd.Flags().StringVar(&template, "template", "", "template the work follows")
	addCmd.Flags().StringVar(&remarks, "remarks", "", "remarks")
	addCmd.Flags().StringVar(&at, "at", "", "when, RFC3339 (default: now)")
	addCmd.Flags().Float64Var(&hours, "engine-hours", 0, "engine hours reading")

	cmd.AddCommand(addCmd)
	cmd.AddCommand(recordCommands(e, get, listing[*models.MaintenanceEvent]{
		header: []string{"PERFORMED", "BOAT", "TEMPLATE", "REMARKS"},
		row: func(ev *models.MaintenanceEvent) []string {
			return []string{ev.PerformedAt.Local().Format(time.DateTime), orDash(ev.BoatID), orDash(ev.TemplateID), orDash(ev.Remarks)}
		},
	})...)
	return cmd
}

func newLocationCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "location", GroupID: "logbook", Short: "Manage marked locations"}
	get := func(a *App) *services.Records[*models.MarkedLocation] { return a.Logbook.Locations }

	var trip, category string
	var lat, lon float64
	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Mark a location",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
				return fmt.Errorf("coordinates out of range: %v, %v", lat, lon)
			}
			l, err := app.Logbook.Locations.Create(cmd.Context(), &models.MarkedLocation{
				TripID: trip, Name: args[0], Latitude: lat, Longitude: lon, Category: category,
			})
			if err != nil {
				return err
			}
			created(cmd, l)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&trip, "trip", "", "trip the location was marked on")
	addCmd.Flags().StringVar(&category, "category", "", "anchorage, marina, hazard, ...")
	addCmd.Flags().Float64Var(&lat, "lat", 0, "latitude in decimal degrees")
	addCmd.Flags().Float64Var(&lon, "lon", 0, "longitude in decimal degrees")
	_ = addCmd.MarkFlagRequired("lat")
	_ = addCmd.MarkFlagRequired("lon")

	cmd.AddCommand(addCmd)
	cmd.AddCommand(recordCommands(e, get, listing[*models.MarkedLocation]{
		header: []string{"NAME", "LAT", "LON", "CATEGORY"},
		row: func(l *models.MarkedLocation) []string {
			return []string{l.Name, strconv.FormatFloat(l.Latitude, 'f', 5, 64), strconv.FormatFloat(l.Longitude, 'f', 5, 64), orDash(l.Category)}
		},
	})...)
	return cmd
}

func newPhotoCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "photo", GroupID: "logbook", Short: "Manage photos"}
	get := func(a *App) *services.Records[*models.Photo] { return a.Logbook.Photos.Records }

	var trip, caption string
	addCmd := &cobra.Command{
		Use:   "add FILE",
		Short: "Add a photo; it is uploaded on the next unmetered sync",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			p, err := app.Logbook.Photos.Add(cmd.Context(), trip, caption, args[0])
			if err != nil {
				return err
			}
			created(cmd, p)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&trip, "trip", "", "trip the photo belongs to")
	addCmd.Flags().StringVar(&caption, "caption", "", "caption")

	cmd.AddCommand(addCmd)
	cmd.AddCommand(recordCommands(e, get, listing[*models.Photo]{
		header: []string{"CAPTION", "TRIP", "UPLOADED"},
		row: func(p *models.Photo) []string {
			return []string{orDash(p.Caption), orDash(p.TripID), strconv.FormatBool(p.Local.Uploaded)}
		},
	})...)
	return cmd
}
