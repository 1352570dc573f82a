// Package repomanager opens the client's SQLite database and hands out
// repositories bound to either the database or an open transaction.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/boatlog/internal/client/migrations"
	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/crew"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/pending"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/store"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Tables maps every entity kind to its table.
var Tables = map[models.DataType]string{
	models.DataTypeBoat:             "boats",
	models.DataTypeTrip:             "trips",
	models.DataTypeNote:             "notes",
	models.DataTypeTodo:             "todos",
	models.DataTypeTemplate:         "templates",
	models.DataTypeMaintenanceEvent: "maintenance_events",
	models.DataTypeLocation:         "locations",
	models.DataTypePhoto:            "photos",
}

// boatChildren lists the tables whose JSON body points at a boat.
var boatChildren = []models.DataType{
	models.DataTypeTrip,
	models.DataTypeTodo,
	models.DataTypeTemplate,
	models.DataTypeMaintenanceEvent,
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the SQLite database at dsn and migrates it.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; SQLite serializes anyway and this keeps :memory: on one connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func Boats(db dbx.DBTX) store.Repository[*models.Boat] {
	return store.NewSQLiteRepository(db, Tables[models.DataTypeBoat], func() *models.Boat { return &models.Boat{} })
}

func Trips(db dbx.DBTX) store.Repository[*models.Trip] {
	return store.NewSQLiteRepository(db, Tables[models.DataTypeTrip], func() *models.Trip { return &models.Trip{} })
}

func Notes(db dbx.DBTX) store.Repository[*models.Note] {
	return store.NewSQLiteRepository(db, Tables[models.DataTypeNote], func() *models.Note { return &models.Note{} })
}

func Todos(db dbx.DBTX) store.Repository[*models.TodoList] {
	return store.NewSQLiteRepository(db, Tables[models.DataTypeTodo], func() *models.TodoList { return &models.TodoList{} })
}

func Templates(db dbx.DBTX) store.Repository[*models.MaintenanceTemplate] {
	return store.NewSQLiteRepository(db, Tables[models.DataTypeTemplate], func() *models.MaintenanceTemplate {
		return &models.MaintenanceTemplate{}
	})
}

func Events(db dbx.DBTX) store.Repository[*models.MaintenanceEvent] {
	return store.NewSQLiteRepository(db, Tables[models.DataTypeMaintenanceEvent], func() *models.MaintenanceEvent {
		return &models.MaintenanceEvent{}
	})
}

func Locations(db dbx.DBTX) store.Repository[*models.MarkedLocation] {
	return store.NewSQLiteRepository(db, Tables[models.DataTypeLocation], func() *models.MarkedLocation {
		return &models.MarkedLocation{}
	})
}

func Photos(db dbx.DBTX) store.Repository[*models.Photo] {
	return store.NewSQLiteRepository(db, Tables[models.DataTypePhoto], func() *models.Photo { return &models.Photo{} })
}

func Crew(db dbx.DBTX) crew.Repository {
	return crew.NewSQLiteRepository(db)
}

func Pending(db dbx.DBTX) pending.Repository {
	return pending.NewSQLiteRepository(db)
}

func Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// ReidentifyBoat gives a local boat the identity of an existing remote boat:
// the row takes the remote id and version, child records are re-pointed and
// journaled changes follow the new id. A pulled copy of the remote boat is
// dropped first; the local boat replaces it. Runs in one transaction.
func ReidentifyBoat(ctx context.Context, db *sql.DB, oldID, newID string, version int64) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		boats := Boats(tx)
		if err := boats.Purge(ctx, newID); err != nil {
			return err
		}
		if err := boats.ReplaceID(ctx, oldID, newID, version); err != nil {
			return fmt.Errorf("replace boat id: %w", err)
		}
		for _, dt := range boatChildren {
			if _, err := store.Repoint(ctx, tx, Tables[dt], "boat_id", oldID, newID); err != nil {
				return err
			}
		}
		return Pending(tx).RenameEntity(ctx, models.DataTypeBoat, oldID, newID)
	})
}
