package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// device is one client installation living in a temp directory.
type device struct {
	t      *testing.T
	dir    string
	server string
}

func newDevice(t *testing.T) *device {
	t.Helper()
	return &device{t: t, dir: t.TempDir(), server: "http://127.0.0.1:1"}
}

func (d *device) run(stdin string, args ...string) (string, error) {
	d.t.Helper()
	base := []string{
		"--db", filepath.Join(d.dir, "boatlog.db"),
		"--log-file", filepath.Join(d.dir, "boatlog.log"),
		"--photo-dir", filepath.Join(d.dir, "photos"),
		"--server", d.server,
		"--health-addr", "127.0.0.1:1",
	}
	var out bytes.Buffer
	err := Execute(context.Background(), append(args, base...), strings.NewReader(stdin), &out)
	return out.String(), err
}

func (d *device) mustRun(stdin string, args ...string) string {
	d.t.Helper()
	out, err := d.run(stdin, args...)
	require.NoError(d.t, err, out)
	return out
}

var createdRe = regexp.MustCompile(`Created (\S+)`)

func createdID(t *testing.T, out string) string {
	t.Helper()
	m := createdRe.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1]
}

func TestExecute_BoatAddAndList(t *testing.T) {
	d := newDevice(t)

	id := createdID(t, d.mustRun("", "boat", "add", "Orca", "--home-port", "Split", "--active"))

	out := d.mustRun("", "boat", "list")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Orca")
	assert.Contains(t, out, "Split")
	assert.Contains(t, out, "true")
	assert.Contains(t, out, "pending")

	out = d.mustRun("", "boat", "show", id)
	assert.Contains(t, out, "state:   pending")
	assert.Contains(t, out, `"name": "Orca"`)
}

func TestExecute_TripNeedsActiveBoat(t *testing.T) {
	d := newDevice(t)

	_, err := d.run("", "trip", "add", "Vis run")
	require.ErrorIs(t, err, errNoActiveBoat)

	d.mustRun("", "boat", "add", "Orca", "--active")
	createdID(t, d.mustRun("", "trip", "add", "Vis run", "--from", "Split", "--to", "Vis"))

	out := d.mustRun("", "trip", "list")
	assert.Contains(t, out, "Vis run")
}

func TestExecute_NoteBodyFromStdin(t *testing.T) {
	d := newDevice(t)

	id := createdID(t, d.mustRun("Reefed at 20 knots\nall well\n\n", "note", "add", "Day one"))

	out := d.mustRun("", "note", "show", id)
	assert.Contains(t, out, "Reefed at 20 knots")
	assert.Contains(t, out, "all well")
}

func TestExecute_DeleteHidesRecord(t *testing.T) {
	d := newDevice(t)
	id := createdID(t, d.mustRun("", "boat", "add", "Orca"))

	assert.Contains(t, d.mustRun("", "boat", "delete", id), "Deleted "+id)
	assert.NotContains(t, d.mustRun("", "boat", "list"), id)

	_, err := d.run("", "boat", "show", id)
	require.Error(t, err)
}

func TestExecute_QueueListsLocalChanges(t *testing.T) {
	d := newDevice(t)
	id := createdID(t, d.mustRun("", "boat", "add", "Orca"))

	out := d.mustRun("", "queue", "list")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "create")
	assert.Contains(t, out, "ready")

	assert.Contains(t, d.mustRun("", "queue", "retry", "boat", id), "Reset 1 change(s)")
	assert.Contains(t, d.mustRun("", "queue", "cleanup"), "Removed 0 change(s)")
}

func TestExecute_SyncOfflineKeepsQueue(t *testing.T) {
	d := newDevice(t)
	d.mustRun("", "boat", "add", "Orca")
	d.mustRun("", "boat", "add", "Tern")

	out := d.mustRun("", "sync")
	assert.Contains(t, out, "Server unreachable; 2 changes stay queued")
}

func TestExecute_ShareAndScan(t *testing.T) {
	skipper := newDevice(t)
	crew := newDevice(t)

	id := createdID(t, skipper.mustRun("", "boat", "add", "Orca", "--official-number", "HR-1234"))
	chunks := skipper.mustRun("", "share", "boat", id)
	require.NotEmpty(t, strings.TrimSpace(chunks))

	out := crew.mustRun(chunks, "scan")
	assert.Contains(t, out, "created")

	list := crew.mustRun("", "boat", "list")
	assert.Contains(t, list, "Orca")
	assert.Contains(t, list, "received")

	// the same chunks again change nothing
	out = crew.mustRun(chunks, "scan")
	assert.NotContains(t, out, "created")
}

func TestExecute_ScanStrayChunkNeedsReset(t *testing.T) {
	skipper := newDevice(t)
	crew := newDevice(t)

	orca := createdID(t, skipper.mustRun("", "boat", "add", "Orca", "--home-port", "Split"))
	tern := createdID(t, skipper.mustRun("", "boat", "add", "Tern", "--home-port", "Vis"))
	a := strings.Fields(skipper.mustRun("", "share", "boat", orca, "--fragment-size", "40"))
	b := strings.Fields(skipper.mustRun("", "share", "boat", tern, "--fragment-size", "40"))
	require.Greater(t, len(a), 2)
	require.Greater(t, len(b), 1)

	in := strings.Join([]string{a[0], a[1], b[1], a[2]}, "\n")
	out := crew.mustRun(in, "scan")
	assert.Contains(t, out, "scan failed")
	assert.Contains(t, out, `send "reset"`)
	assert.Contains(t, out, "stopped:")
	assert.NotContains(t, out, "created")

	in = strings.Join(append([]string{a[0], b[1], "reset"}, a...), "\n")
	out = crew.mustRun(in, "scan")
	assert.Contains(t, out, "scan reset")
	assert.Contains(t, out, "created")
	assert.Contains(t, crew.mustRun("", "boat", "list"), "Orca")

	out = crew.mustRun(strings.Join([]string{b[1], b[0]}, "\n"), "scan", "--reset-on-failure")
	assert.Contains(t, out, "starting over")
	assert.NotContains(t, out, "stopped:")
}

func TestExecute_ShareToDirectory(t *testing.T) {
	d := newDevice(t)
	id := createdID(t, d.mustRun("", "boat", "add", "Orca"))
	dir := filepath.Join(d.dir, "out")

	out := d.mustRun("", "share", "boat", id, "-o", dir)
	assert.Contains(t, out, "Wrote")

	files, err := filepath.Glob(filepath.Join(dir, "chunk-*.txt"))
	require.NoError(t, err)
	assert.NotEmpty(t, files)

	scanned := newDevice(t).mustRun("", append([]string{"scan"}, files...)...)
	assert.Contains(t, scanned, "created")
}

func TestExecute_LoginAndWhoami(t *testing.T) {
	oldTerm := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = oldTerm })

	var got credentialsBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"opaque"}`))
	}))
	defer srv.Close()

	d := newDevice(t)
	d.server = srv.URL

	out := d.mustRun("s3cret\n", "login", "ana")
	assert.Contains(t, out, "Logged in as ana")
	assert.Equal(t, credentialsBody{Username: "ana", Password: "s3cret"}, got)

	out = d.mustRun("", "whoami")
	assert.Contains(t, out, "user:   ana")
	assert.Contains(t, out, "device: device:")
	assert.Contains(t, out, "crew:   ana")

	d.mustRun("", "crew-name", "Ana the Navigator")
	assert.Contains(t, d.mustRun("", "whoami"), "crew:   Ana the Navigator")

	assert.Contains(t, d.mustRun("", "logout"), "Logged out")
}

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func TestExecute_DaemonRejectsZeroInterval(t *testing.T) {
	_, err := newDevice(t).run("", "daemon", "--sync-interval", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync-interval must be positive")
}

func TestExecute_Version(t *testing.T) {
	out := newDevice(t).mustRun("", "version")
	assert.Contains(t, out, "Build version:")
}
