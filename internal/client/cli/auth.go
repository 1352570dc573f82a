package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/boatlog/internal/client/services"
	"github.com/spf13/cobra"
)

// credentials takes the username from args or a prompt and the password
// from the terminal or stdin.
func (e *env) credentials(cmd *cobra.Command, args []string) (string, string, error) {
	username := ""
	if len(args) > 0 {
		username = args[0]
	} else {
		u, err := GetSimpleText(e.in, "Username", cmd.OutOrStdout())
		if err != nil {
			return "", "", err
		}
		username = u
	}
	password, err := GetPassword(e.in, cmd.OutOrStdout())
	if err != nil {
		return "", "", err
	}
	return username, password, nil
}

func newRegisterCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "register [username]",
		GroupID: "account",
		Short:   "Create an account on the server and log in",
		Args:    cobra.MaximumNArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			username, password, err := e.credentials(cmd, args)
			if err != nil {
				return err
			}
			if err := app.Auth.Register(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", username)
			return nil
		}),
	}
}

func newLoginCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "login [username]",
		GroupID: "account",
		Short:   "Log in to the server",
		Args:    cobra.MaximumNArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			username, password, err := e.credentials(cmd, args)
			if err != nil {
				return err
			}
			if err := app.Auth.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
			return nil
		}),
	}
}

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		GroupID: "account",
		Short:   "Forget the session token; local data stays",
		Args:    cobra.NoArgs,
		RunE: e.runE(func(cmd *cobra.Command, app *App, _ []string) error {
			if err := app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func newWhoamiCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		GroupID: "account",
		Short:   "Show the account, device origin and crew name",
		Args:    cobra.NoArgs,
		RunE: e.runE(func(cmd *cobra.Command, app *App, _ []string) error {
			ctx := cmd.Context()
			username, err := app.Auth.Username(ctx)
			if err != nil {
				return err
			}
			origin, err := app.Device.Origin(ctx)
			if err != nil {
				return err
			}
			crew, err := app.Device.CrewName(ctx)
			if err != nil && !errors.Is(err, services.ErrNoCrewName) {
				return err
			}
			last, err := app.lastSync(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user:   %s\n", orDash(username))
			fmt.Fprintf(out, "device: %s\n", origin)
			fmt.Fprintf(out, "crew:   %s\n", orDash(crew))
			fmt.Fprintf(out, "synced: %s\n", orDash(last))
			return nil
		}),
	}
}

func newCrewNameCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "crew-name NAME",
		GroupID: "account",
		Short:   "Set the name this device joins crews under",
		Args:    cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			return app.Device.SetCrewName(cmd.Context(), args[0])
		}),
	}
}
