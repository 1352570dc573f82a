// Package metadata stores device-level settings: the device origin, the
// account session and sync bookkeeping. Each setting has its own accessor;
// the underlying key/value table is not exposed.
package metadata

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidOrigin  = errors.New("invalid device origin")
	ErrInvalidSession = errors.New("session needs a username and a token")
)

// Session is the account the device last logged in with. Token is empty
// after logout; Username survives it.
type Session struct {
	Username string
	Token    string
}

type Repository interface {
	// EnsureDeviceOrigin returns the stored origin, or stores the one mint
	// returns when none exists yet. A stored origin is never replaced.
	EnsureDeviceOrigin(ctx context.Context, mint func() string) (string, error)
	// DeviceOrigin returns "" before EnsureDeviceOrigin first ran.
	DeviceOrigin(ctx context.Context) (string, error)

	Session(ctx context.Context) (Session, error)
	SaveSession(ctx context.Context, s Session) error
	ClearToken(ctx context.Context) error
	Username(ctx context.Context) (string, error)

	CrewName(ctx context.Context) (string, error)
	SetCrewName(ctx context.Context, name string) error

	// LastSyncAt is the zero time when no sync has been recorded.
	LastSyncAt(ctx context.Context) (time.Time, error)
	SetLastSyncAt(ctx context.Context, t time.Time) error
}
