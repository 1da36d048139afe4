package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// CONTEXT
// =============================================================================

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request's Identity, Anonymous when none was set.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(ctxKey{}).(Identity); ok {
		return id
	}
	return Anonymous{}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

// Middleware guards routes with bearer-token sessions.
type Middleware struct {
	tokens     *Tokens
	businessID string
	log        *zap.Logger
}

// NewMiddleware returns guards for a process serving businessID.
func NewMiddleware(tokens *Tokens, businessID string, log *zap.Logger) *Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	return &Middleware{tokens: tokens, businessID: businessID, log: log}
}

// Authenticate rejects requests without a valid bearer token (401) and
// otherwise stores the session in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			deny(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		session, err := m.tokens.Verify(strings.TrimSpace(raw))
		if err != nil {
			m.log.Debug("token rejected", zap.Error(err))
			deny(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), session)))
	})
}

// RequireBusiness rejects callers whose token does not grant the business
// this process serves (403).
func (m *Middleware) RequireBusiness(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := FromContext(r.Context()).CurrentUser()
		if !ok {
			deny(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !user.CanAccessBusiness(m.businessID) {
			m.log.Info("business access denied",
				zap.Int64("user_id", user.ID), zap.String("business_id", m.businessID))
			deny(w, http.StatusForbidden, "No access to this business")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission rejects callers without scope (403).
func RequirePermission(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			if !id.IsAuthenticated() {
				deny(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !id.HasPermission(scope) {
				deny(w, http.StatusForbidden, "No permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, status int, message string) {
	code := "unauthorized"
	if status == http.StatusForbidden {
		code = "forbidden"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
		"code":    code,
	})
}
