// Package records stores every entity type of the records API in one
// PostgreSQL table keyed by owner, type and id.
package records

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/server/models"
)

type Repository interface {
	// List returns every record of t owned by userID, tombstones included.
	List(ctx context.Context, userID string, t models.RecordType) ([]models.Record, error)
	Get(ctx context.Context, userID string, t models.RecordType, id string) (*models.Record, error)
	// Insert stores a new record. A tombstone with the same id is revived;
	// a live one yields common.ErrAlreadyExists.
	Insert(ctx context.Context, rec *models.Record) (*models.Record, error)
	// Update replaces a live record's body and metadata.
	Update(ctx context.Context, rec *models.Record) (*models.Record, error)
	// Patch merges the top-level fields of patch into a live record's body.
	Patch(ctx context.Context, userID string, t models.RecordType, id string, patch json.RawMessage, at time.Time) (*models.Record, error)
	SoftDelete(ctx context.Context, userID string, t models.RecordType, id string, at time.Time) error
}
