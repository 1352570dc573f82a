package client

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
)

// Record is the server's envelope around one entity. Data is the entity's
// JSON body as stored locally.
type Record struct {
	ID              string          `json:"id"`
	Version         int64           `json:"version,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at,omitzero"`
	Deleted         bool            `json:"deleted,omitempty"`
	OriginSource    string          `json:"origin_source,omitempty"`
	OriginID        string          `json:"origin_id,omitempty"`
	OriginTimestamp int64           `json:"origin_timestamp,omitempty"`
	ReadOnly        bool            `json:"read_only,omitempty"`
	Data            json.RawMessage `json:"data"`
}

// UploadURL is a presigned PUT target for a photo.
type UploadURL struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type Client interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error)

	// List returns every record of the type, tombstones included.
	List(ctx context.Context, t models.DataType) ([]Record, error)
	Get(ctx context.Context, t models.DataType, id string) (Record, error)
	Create(ctx context.Context, t models.DataType, rec Record) (Record, error)
	Update(ctx context.Context, t models.DataType, rec Record) (Record, error)
	// Patch merges fields into the record's body.
	Patch(ctx context.Context, t models.DataType, id string, fields map[string]any) (Record, error)
	Delete(ctx context.Context, t models.DataType, id string) error

	PhotoUploadURL(ctx context.Context, photoID string) (UploadURL, error)
	Upload(ctx context.Context, url string, body io.Reader, size int64) error
}

// TokenSource supplies the bearer token for record calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken always returns the same token.
func StaticToken(token string) TokenSource {
	return TokenFunc(func(context.Context) (string, error) { return token, nil })
}
