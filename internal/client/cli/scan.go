package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/boatlog/internal/client/exchange"
	"github.com/dmitrijs2005/boatlog/internal/client/importer"
	"github.com/dmitrijs2005/boatlog/internal/filex"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// chunkScanner feeds chunk lines to one import session and reports what
// happened.
type chunkScanner struct {
	session *importer.Session
	out     io.Writer
	// resetOnFailure starts over after a failed chunk instead of waiting
	// for a reset line.
	resetOnFailure bool
}

// resetCommand is the input line that drops the assembly in progress.
const resetCommand = "reset"

func (s *chunkScanner) line(ctx context.Context, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	if strings.EqualFold(raw, resetCommand) {
		s.session.Reset()
		fmt.Fprintln(s.out, "scan reset")
		return
	}
	ev, err := s.session.Feed(ctx, raw)
	if err != nil {
		fmt.Fprintf(s.out, "unreadable chunk: %v\n", err)
		return
	}
	if ev.Repeat {
		return
	}
	switch r := ev.Chunk.(type) {
	case exchange.Progress:
		fmt.Fprintf(s.out, "%s %s: %d/%d\n", r.Type, r.ID, r.Collected, r.Total)
	case exchange.Failure:
		if s.resetOnFailure {
			s.session.Reset()
			fmt.Fprintf(s.out, "scan failed: %s; starting over\n", r.Reason)
			return
		}
		fmt.Fprintf(s.out, "scan failed: %s (send %q to start over)\n", r.Reason, resetCommand)
	case exchange.Complete:
		fmt.Fprintf(s.out, "%s %s: %s\n", r.Type, r.ID, importer.Describe(ev.Import))
	}
}

func (s *chunkScanner) read(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.line(ctx, sc.Text())
	}
	return sc.Err()
}

func (s *chunkScanner) finish() {
	if reason := s.session.Failed(); reason != "" {
		fmt.Fprintf(s.out, "stopped: %s\n", reason)
		return
	}
	if id, collected, total, ok := s.session.Pending(); ok {
		fmt.Fprintf(s.out, "incomplete: %s has %d of %d parts\n", id, collected, total)
	}
}

func isChunkFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".txt", ".json":
		return true
	}
	return false
}

// processFile scans one inbox file and moves it into done. Empty files are
// left for a later write event.
func (s *chunkScanner) processFile(ctx context.Context, path, done string) error {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() || fi.Size() == 0 {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	err = s.read(ctx, f)
	_ = f.Close()
	if err != nil {
		return err
	}
	_, err = filex.MoveInto(path, done)
	return err
}

// watch scans files dropped into dir until ctx is done. Writers should
// create files elsewhere and rename them into dir.
func (s *chunkScanner) watch(ctx context.Context, dir string) error {
	inbox, err := filex.EnsureDir(dir)
	if err != nil {
		return err
	}
	done := filepath.Join(inbox, "processed")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(inbox); err != nil {
		return fmt.Errorf("failed to watch %s: %w", inbox, err)
	}

	entries, err := os.ReadDir(inbox)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(inbox, entry.Name())
		if isChunkFile(path) {
			if err := s.processFile(ctx, path, done); err != nil {
				fmt.Fprintf(s.out, "%s: %v\n", entry.Name(), err)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.finish()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !isChunkFile(ev.Name) {
				continue
			}
			if err := s.processFile(ctx, ev.Name, done); err != nil {
				fmt.Fprintf(s.out, "%s: %v\n", filepath.Base(ev.Name), err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(s.out, "watch error: %v\n", err)
		}
	}
}

func newScanCommand(e *env) *cobra.Command {
	var (
		watchDir       string
		resetOnFailure bool
	)
	cmd := &cobra.Command{
		Use:     "scan [FILE...]",
		GroupID: "sync",
		Short:   "Import chunks shared by another device",
		Long: `Reads chunks, one per line, from the given files or from stdin and imports
every envelope that completes. A chunk that does not fit the envelope being
assembled stops the scan; a line reading "reset" (or --reset-on-failure)
starts over. With --watch the command keeps running and
scans every .txt or .json file that appears in the directory, e.g. from a QR
scanner app; processed files are moved to DIR/processed.`,
		RunE: e.runE(func(cmd *cobra.Command, app *App, args []string) error {
			ctx := cmd.Context()
			s := &chunkScanner{
				session:        importer.NewSession(app.Importer),
				out:            cmd.OutOrStdout(),
				resetOnFailure: resetOnFailure,
			}

			if watchDir != "" {
				return s.watch(ctx, watchDir)
			}
			if len(args) == 0 {
				if err := s.read(ctx, e.in); err != nil {
					return err
				}
				s.finish()
				return nil
			}
			for _, name := range args {
				f, err := os.Open(name)
				if err != nil {
					return err
				}
				err = s.read(ctx, f)
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			s.finish()
			return nil
		}),
	}
	cmd.Flags().StringVarP(&watchDir, "watch", "w", "", "keep scanning files dropped into this directory")
	cmd.Flags().BoolVar(&resetOnFailure, "reset-on-failure", false, "start over after a chunk that does not fit instead of stopping")
	return cmd
}
