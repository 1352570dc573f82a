package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/boatlog/internal/client/exchange"
	"github.com/dmitrijs2005/boatlog/internal/client/importer"
	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// device is one installation with its own database.
type device struct {
	db       *sql.DB
	identity *DeviceService
	logbook  *Logbook
	share    *ShareService
	importer *importer.Importer
}

func newDevice(t *testing.T, crewName string) *device {
	t.Helper()
	db := newDB(t)
	id := NewDeviceService(db)
	require.NoError(t, id.SetCrewName(context.Background(), crewName))
	return &device{
		db:       db,
		identity: id,
		logbook:  NewLogbook(db, queue.DefaultPolicy(), t.TempDir(), logging.Nop()),
		share:    NewShareService(db, id, 120),
		importer: importer.New(db, id, logging.Nop()),
	}
}

// scan feeds chunks to an assembler the way a camera session would.
func scan(t *testing.T, chunks []string) exchange.Complete {
	t.Helper()
	var a exchange.Assembler
	var res exchange.Result
	for _, c := range chunks {
		e, err := exchange.ParseChunk(c)
		require.NoError(t, err)
		res = a.Add(e)
	}
	complete, ok := res.(exchange.Complete)
	require.True(t, ok, "scan did not complete: %#v", res)
	return complete
}

func TestShareBoat_ImportedOnOtherDevice(t *testing.T) {
	ctx := context.Background()
	alice, bob := newDevice(t, "Alice"), newDevice(t, "Bob")

	boat, err := alice.logbook.Boats.Create(ctx, &models.Boat{Name: "Orca", HomePort: "Split", LengthMeters: 11.3})
	require.NoError(t, err)

	chunks, err := alice.share.ShareBoat(ctx, boat.ID)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	res := bob.importer.Import(ctx, scan(t, chunks))
	created, ok := res.(importer.Created)
	require.True(t, ok, "got %s", importer.Describe(res))

	got, err := repomanager.Boats(bob.db).GetByID(ctx, created.ID)
	require.NoError(t, err)
	aliceOrigin, err := alice.identity.Origin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Orca", got.Name)
	assert.Equal(t, "Split", got.HomePort)
	assert.Equal(t, aliceOrigin, got.OriginSource)
	assert.Equal(t, boat.ID, got.OriginID)
	assert.Equal(t, boat.UpdatedAt.UnixMilli(), got.OriginTimestamp)

	// the same share scanned back on the authoring device changes nothing
	res = alice.importer.Import(ctx, scan(t, chunks))
	assert.IsType(t, importer.Skipped{}, res)
}

func TestShareTrip_ReSharedKeepsOrigin(t *testing.T) {
	ctx := context.Background()
	alice, bob, carol := newDevice(t, "Alice"), newDevice(t, "Bob"), newDevice(t, "Carol")

	boat, err := alice.logbook.Boats.Create(ctx, &models.Boat{Name: "Orca"})
	require.NoError(t, err)
	trip, err := alice.logbook.Trips.Create(ctx, &models.Trip{BoatID: boat.ID, Title: "Vis run", Skipper: "Alice"})
	require.NoError(t, err)

	chunks, err := alice.share.ShareTrip(ctx, trip.ID)
	require.NoError(t, err)
	res := bob.importer.Import(ctx, scan(t, chunks))
	created, ok := res.(importer.Created)
	require.True(t, ok, "got %s", importer.Describe(res))

	bobTrip, err := repomanager.Trips(bob.db).GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, bobTrip.ReadOnly)
	bobBoat, err := repomanager.Boats(bob.db).GetByID(ctx, bobTrip.BoatID)
	require.NoError(t, err)
	assert.Equal(t, "Orca", bobBoat.Name)

	// Bob passes the trip on; Carol sees Alice as the origin
	chunks, err = bob.share.ShareTrip(ctx, bobTrip.ID)
	require.NoError(t, err)
	res = carol.importer.Import(ctx, scan(t, chunks))
	created, ok = res.(importer.Created)
	require.True(t, ok, "got %s", importer.Describe(res))

	carolTrip, err := repomanager.Trips(carol.db).GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, bobTrip.OriginSource, carolTrip.OriginSource)
	assert.Equal(t, trip.ID, carolTrip.OriginID)
	assert.NotEmpty(t, carolTrip.BoatID)
}

func TestCrewInvitationRoundTrip(t *testing.T) {
	ctx := context.Background()
	skipper, hand := newDevice(t, "Skipper"), newDevice(t, "Deckhand")

	trip, err := skipper.logbook.Trips.Create(ctx, &models.Trip{Title: "Night passage"})
	require.NoError(t, err)
	_, err = skipper.logbook.Trips.AddCrew(ctx, trip.ID, "Ben", "bowman")
	require.NoError(t, err)

	invite, err := skipper.share.InviteCrew(ctx, trip.ID)
	require.NoError(t, err)
	res := hand.importer.Import(ctx, scan(t, invite))
	created, ok := res.(importer.Created)
	require.True(t, ok, "got %s", importer.Describe(res))

	crew, err := hand.logbook.Trips.Crew(ctx, created.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(crew))
	for _, m := range crew {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Skipper", "Ben", "Deckhand"}, names)

	response, err := hand.share.RespondToCrew(ctx, created.ID, "navigator")
	require.NoError(t, err)
	res = skipper.importer.Import(ctx, scan(t, response))
	assert.Equal(t, importer.Updated{ID: trip.ID}, res)

	crew, err = skipper.logbook.Trips.Crew(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, crew, 2)
	assert.Equal(t, "Deckhand", crew[1].Name)
	assert.Equal(t, "navigator", crew[1].Role)

	// only received trips can be answered, only own trips can be offered
	_, err = skipper.share.RespondToCrew(ctx, trip.ID, "")
	assert.ErrorIs(t, err, ErrNotReceived)
	_, err = hand.share.InviteCrew(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotAuthored)
}
