package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/server/models"
	"github.com/dmitrijs2005/boatlog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/timex"
)

// RecordService is the authority for every user's records. The server keeps
// whatever a client last wrote; versions only tell clients what changed.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager) *RecordService {
	return &RecordService{db: db, repomanager: m, now: timex.Now}
}

func (s *RecordService) List(ctx context.Context, userID string, t models.RecordType) ([]models.Record, error) {
	return s.repomanager.Records(s.db).List(ctx, userID, t)
}

func (s *RecordService) Get(ctx context.Context, userID string, t models.RecordType, id string) (*models.Record, error) {
	return s.repomanager.Records(s.db).Get(ctx, userID, t, id)
}

// stamp fills the server-owned fields of rec.
func (s *RecordService) stamp(userID string, t models.RecordType, rec *models.Record) error {
	if !json.Valid(rec.Data) {
		return fmt.Errorf("%w: data is not valid JSON", common.ErrValidation)
	}
	rec.UserID = userID
	rec.Type = t
	rec.UpdatedAt = s.now()
	return nil
}

// Create stores a new record; a live record with the same id yields
// common.ErrAlreadyExists.
func (s *RecordService) Create(ctx context.Context, userID string, t models.RecordType, rec *models.Record) (*models.Record, error) {
	if err := s.stamp(userID, t, rec); err != nil {
		return nil, err
	}
	return s.repomanager.Records(s.db).Insert(ctx, rec)
}

// Update replaces a live record; a missing or deleted one yields
// common.ErrNotFound.
func (s *RecordService) Update(ctx context.Context, userID string, t models.RecordType, rec *models.Record) (*models.Record, error) {
	if err := s.stamp(userID, t, rec); err != nil {
		return nil, err
	}
	return s.repomanager.Records(s.db).Update(ctx, rec)
}

// Patch merges the top-level fields into the record's body.
func (s *RecordService) Patch(ctx context.Context, userID string, t models.RecordType, id string, fields map[string]json.RawMessage) (*models.Record, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty patch", common.ErrValidation)
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return s.repomanager.Records(s.db).Patch(ctx, userID, t, id, patch, s.now())
}

// Delete leaves a tombstone that other devices pull.
func (s *RecordService) Delete(ctx context.Context, userID string, t models.RecordType, id string) error {
	return s.repomanager.Records(s.db).SoftDelete(ctx, userID, t, id, s.now())
}
