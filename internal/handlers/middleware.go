package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/prudhvinik1/medsync/internal/models"
	"github.com/prudhvinik1/medsync/internal/xerrors"
	"go.uber.org/zap"
)

type accountKey struct{}

func withAccount(ctx context.Context, account *models.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

func AccountFromContext(ctx context.Context) (*models.Account, bool) {
	account, ok := ctx.Value(accountKey{}).(*models.Account)
	return account, ok && account != nil
}

// Authenticate attaches the session's account to the request context. Requests
// with a missing or bad token carry on unauthenticated.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		account, err := h.sessions.Authenticate(r.Context(), token)
		if err != nil {
			if xerrors.Code(err) == "" {
				h.logger.Warn("session lookup failed", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account)))
	})
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, xerrors.ErrUnauthorized.Code, xerrors.ErrUnauthorized.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken prefers the session cookie and falls back to a bearer header.
func extractToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}
