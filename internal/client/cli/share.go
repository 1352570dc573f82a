package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/boatlog/internal/filex"
	"github.com/spf13/cobra"
)

// writeChunks prints one chunk per line, or writes numbered files into dir.
func writeChunks(cmd *cobra.Command, chunks []string, dir string) error {
	if dir == "" {
		for _, c := range chunks {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), c); err != nil {
				return err
			}
		}
		return nil
	}

	target, err := filex.EnsureDir(dir)
	if err != nil {
		return err
	}
	for i, c := range chunks {
		name := filepath.Join(target, fmt.Sprintf("chunk-%03d.txt", i+1))
		if err := os.WriteFile(name, []byte(c+"\n"), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chunks to %s\n", len(chunks), target)
	return nil
}

func newShareCommand(e *env) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:     "share",
		GroupID: "sync",
		Short:   "Export records as chunks for another device to scan",
		Long: `Each chunk is one line of text, small enough for a QR code. Show them in
any order after the first one; the receiving device runs 'boatlog scan'.`,
	}
	cmd.PersistentFlags().StringVarP(&outDir, "out", "o", "", "write chunk files into this directory")

	boatCmd := &cobra.Command{
		Use:   "boat ID",
		Short: "Share a boat",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			chunks, err := app.Share.ShareBoat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeChunks(cmd, chunks, outDir)
		}),
	}

	tripCmd := &cobra.Command{
		Use:   "trip ID",
		Short: "Share a trip together with its boat",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			chunks, err := app.Share.ShareTrip(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeChunks(cmd, chunks, outDir)
		}),
	}

	crewCmd := &cobra.Command{
		Use:   "crew TRIP",
		Short: "Invite another device onto the crew of one of your trips",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			chunks, err := app.Share.InviteCrew(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeChunks(cmd, chunks, outDir)
		}),
	}

	var role string
	respondCmd := &cobra.Command{
		Use:   "respond TRIP",
		Short: "Answer a crew invitation so the skipper's device lists you",
		Args:  cobra.ExactArgs(1),
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			chunks, err := app.Share.RespondToCrew(cmd.Context(), args[0], role)
			if err != nil {
				return err
			}
			return writeChunks(cmd, chunks, outDir)
		}),
	}
	respondCmd.Flags().StringVar(&role, "role", "", "your role on board")

	cmd.AddCommand(boatCmd, tripCmd, crewCmd, respondCmd)
	return cmd
}
