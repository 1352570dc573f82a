package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserID returns the authenticated user of the request.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func withUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// userCache remembers users known to exist so most requests skip the
// database. Deleted accounts stop working once their entry expires.
type userCache struct {
	lru *expirable.LRU[string, struct{}]
}

func newUserCache(size int, ttl time.Duration) *userCache {
	if size <= 0 {
		size = 1024
	}
	return &userCache{lru: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (c *userCache) known(id string) bool {
	_, ok := c.lru.Get(id)
	return ok
}

func (c *userCache) add(id string) {
	c.lru.Add(id, struct{}{})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(common.AuthorizationHeader)
	if !strings.HasPrefix(h, common.BearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
	return tok, tok != ""
}

// requireUser rejects requests without a valid token for an existing user.
func requireUser(users Users, cache *userCache, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tok, ok := bearerToken(r)
			if !ok {
				respondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			userID, err := users.Authenticate(tok)
			if err != nil {
				status, msg := statusFor(err)
				respondError(w, status, msg)
				return
			}

			if !cache.known(userID) {
				exists, err := users.Exists(ctx, userID)
				if err != nil {
					logger.Error(ctx, "user lookup failed", "user_id", userID, "error", err)
					respondError(w, http.StatusInternalServerError, common.ErrInternal.Error())
					return
				}
				if !exists {
					respondError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
					return
				}
				cache.add(userID)
			}

			next.ServeHTTP(w, r.WithContext(withUserID(ctx, userID)))
		})
	}
}
