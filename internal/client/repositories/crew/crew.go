// Package crew stores the per-trip crew lists. Crew never syncs through the
// remote API; it travels in crew exchange payloads only.
package crew

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
	"github.com/google/uuid"
)

type Repository interface {
	ListByTrip(ctx context.Context, tripID string) ([]models.CrewMember, error)
	// ReplaceForTrip drops the current crew of tripID and stores members in
	// the given order. Run it inside a transaction.
	ReplaceForTrip(ctx context.Context, tripID string, members []models.CrewMember) error
	// Append adds m at the end of the trip's crew.
	Append(ctx context.Context, m models.CrewMember) (models.CrewMember, error)
	FindByDevice(ctx context.Context, tripID, deviceOrigin string) (models.CrewMember, error)
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ListByTrip(ctx context.Context, tripID string) ([]models.CrewMember, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, trip_id, name, role, device_origin, position
		FROM crew_members WHERE trip_id = ? ORDER BY position, id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list crew: %w", err)
	}
	defer rows.Close()

	var result []models.CrewMember
	for rows.Next() {
		var m models.CrewMember
		if err := rows.Scan(&m.ID, &m.TripID, &m.Name, &m.Role, &m.DeviceOrigin, &m.Position); err != nil {
			return nil, fmt.Errorf("failed to scan crew row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate crew rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) insert(ctx context.Context, m models.CrewMember) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO crew_members (id, trip_id, name, role, device_origin, position)
		VALUES (?, ?, ?, ?, ?, ?)`, m.ID, m.TripID, m.Name, m.Role, m.DeviceOrigin, m.Position)
	if err != nil {
		return fmt.Errorf("failed to insert crew member: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceForTrip(ctx context.Context, tripID string, members []models.CrewMember) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM crew_members WHERE trip_id = ?`, tripID); err != nil {
		return fmt.Errorf("failed to clear crew: %w", err)
	}
	for i, m := range members {
		m.ID = uuid.NewString()
		m.TripID = tripID
		m.Position = i
		if err := r.insert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) Append(ctx context.Context, m models.CrewMember) (models.CrewMember, error) {
	var next int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM crew_members WHERE trip_id = ?`,
		m.TripID).Scan(&next)
	if err != nil {
		return m, fmt.Errorf("failed to read crew position: %w", err)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Position = next
	return m, r.insert(ctx, m)
}

func (r *SQLiteRepository) FindByDevice(ctx context.Context, tripID, deviceOrigin string) (models.CrewMember, error) {
	var m models.CrewMember
	err := r.db.QueryRowContext(ctx, `SELECT id, trip_id, name, role, device_origin, position
		FROM crew_members WHERE trip_id = ? AND device_origin = ? LIMIT 1`, tripID, deviceOrigin).
		Scan(&m.ID, &m.TripID, &m.Name, &m.Role, &m.DeviceOrigin, &m.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return m, common.ErrNotFound
	}
	if err != nil {
		return m, fmt.Errorf("failed to find crew member: %w", err)
	}
	return m, nil
}
