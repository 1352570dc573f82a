package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/google/uuid"
)

var ErrNoCrewName = errors.New("crew name is not set")

// DeviceService owns this installation's identity. The origin is generated
// on first use and never changes afterwards.
type DeviceService struct {
	db *sql.DB

	mu     sync.Mutex
	origin string
}

func NewDeviceService(db *sql.DB) *DeviceService {
	return &DeviceService{db: db}
}

// Origin returns "device:<uuid>", creating and persisting it once.
func (s *DeviceService) Origin(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.origin != "" {
		return s.origin, nil
	}

	origin, err := repomanager.Metadata(s.db).EnsureDeviceOrigin(ctx, func() string {
		return common.DeviceOriginPrefix + uuid.NewString()
	})
	if err != nil {
		return "", fmt.Errorf("device origin: %w", err)
	}
	s.origin = origin
	return origin, nil
}

// CrewName is the explicit crew name, or the account username when none was
// set.
func (s *DeviceService) CrewName(ctx context.Context) (string, error) {
	repo := repomanager.Metadata(s.db)
	for _, get := range []func(context.Context) (string, error){repo.CrewName, repo.Username} {
		v, err := get(ctx)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
	}
	return "", ErrNoCrewName
}

func (s *DeviceService) SetCrewName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: crew name is empty", common.ErrValidation)
	}
	return repomanager.Metadata(s.db).SetCrewName(ctx, name)
}
