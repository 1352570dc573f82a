package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/client"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// TokenStore keeps the session token in local metadata. It satisfies
// client.TokenSource.
type TokenStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db, now: time.Now}
}

// Token returns the stored token. A missing or expired token is
// client.ErrUnauthorized so sync stops before calling the server.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	sess, err := repomanager.Metadata(s.db).Session(ctx)
	if err != nil {
		return "", err
	}
	tok := sess.Token
	if tok == "" {
		return "", client.ErrUnauthorized
	}
	if tokenExpired(tok, s.now()) {
		return "", fmt.Errorf("%w: %w", client.ErrUnauthorized, common.ErrTokenExpired)
	}
	return tok, nil
}

func (s *TokenStore) save(ctx context.Context, username, token string) error {
	return repomanager.Metadata(s.db).SaveSession(ctx, metadata.Session{Username: username, Token: token})
}

func (s *TokenStore) clear(ctx context.Context) error {
	return repomanager.Metadata(s.db).ClearToken(ctx)
}

// tokenExpired reads the exp claim without verifying the signature; the
// server remains the authority. Tokens that are not JWTs never expire here.
func tokenExpired(tok string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}

// AuthService manages the account session against the remote API.
type AuthService struct {
	client client.Client
	tokens *TokenStore
	logger logging.Logger
}

func NewAuthService(c client.Client, tokens *TokenStore, logger logging.Logger) *AuthService {
	return &AuthService{client: c, tokens: tokens, logger: logger.With("module", "auth")}
}

func checkCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}
	return nil
}

// Login authenticates and persists the session.
func (a *AuthService) Login(ctx context.Context, username, password string) error {
	if err := checkCredentials(username, password); err != nil {
		return err
	}
	token, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.tokens.save(ctx, username, token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	a.logger.Info(ctx, "logged in", "username", username)
	return nil
}

// Register creates the account and logs in.
func (a *AuthService) Register(ctx context.Context, username, password string) error {
	if err := checkCredentials(username, password); err != nil {
		return err
	}
	if err := a.client.Register(ctx, username, password); err != nil {
		return err
	}
	return a.Login(ctx, username, password)
}

// Logout forgets the token. Local records and the journal stay.
func (a *AuthService) Logout(ctx context.Context) error {
	return a.tokens.clear(ctx)
}

func (a *AuthService) Username(ctx context.Context) (string, error) {
	return repomanager.Metadata(a.tokens.db).Username(ctx)
}
