package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/dmitrijs2005/boatlog/internal/netx"
)

const apiPrefix = "/api/v1"

type HTTPClient struct {
	baseURL string
	hc      *http.Client
	tokens  TokenSource
	logger  logging.Logger
}

// NewHTTPClient returns a client for the server at baseURL
// (e.g. "http://localhost:8080").
func NewHTTPClient(baseURL string, tokens TokenSource, timeout time.Duration, logger logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  logger.With("module", "gateway"),
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/register", false, credentials{username, password}, nil)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", false, credentials{username, password}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func recordsPath(t models.DataType, id string) string {
	p := "/records/" + url.PathEscape(string(t))
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (c *HTTPClient) List(ctx context.Context, t models.DataType) ([]Record, error) {
	var out []Record
	if err := c.do(ctx, http.MethodGet, recordsPath(t, ""), true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Get(ctx context.Context, t models.DataType, id string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodGet, recordsPath(t, id), true, nil, &out)
	return out, err
}

func (c *HTTPClient) Create(ctx context.Context, t models.DataType, rec Record) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPost, recordsPath(t, ""), true, rec, &out)
	return out, err
}

func (c *HTTPClient) Update(ctx context.Context, t models.DataType, rec Record) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPut, recordsPath(t, rec.ID), true, rec, &out)
	return out, err
}

func (c *HTTPClient) Patch(ctx context.Context, t models.DataType, id string, fields map[string]any) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPatch, recordsPath(t, id), true, fields, &out)
	return out, err
}

func (c *HTTPClient) Delete(ctx context.Context, t models.DataType, id string) error {
	return c.do(ctx, http.MethodDelete, recordsPath(t, id), true, nil, nil)
}

func (c *HTTPClient) PhotoUploadURL(ctx context.Context, photoID string) (UploadURL, error) {
	var out UploadURL
	err := c.do(ctx, http.MethodPost, "/photos/"+url.PathEscape(photoID)+"/upload-url", true, nil, &out)
	return out, err
}

func (c *HTTPClient) Upload(ctx context.Context, url string, body io.Reader, size int64) error {
	if err := netx.UploadToPresignedURL(ctx, c.hc, url, body, size); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, auth bool, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if auth {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Debug(ctx, "request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return mapStatus(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mapStatus(resp *http.Response) error {
	msg := resp.Status
	var e errorResponse
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		msg = e.Error
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}
	return fmt.Errorf("request failed: %s", msg)
}
