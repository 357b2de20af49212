package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/fakturio/fakturio/internal/shared"
)

// Middleware resolves the signed-in identity and profile from the
// session into the request context. Requests without a user pass
// through unchanged; handlers decide how to treat the signed-out case.
func Middleware(logger *slog.Logger, service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := uuid.Parse(sess.User())
			if err != nil {
				logger.Warn("malformed session user id", slog.String("value", sess.User()))
				next.ServeHTTP(w, r)
				return
			}
			ctx := shared.ContextWithIdentity(r.Context(), &shared.Identity{UserID: userID})
			profile, err := service.Profile(ctx, userID)
			if err != nil {
				if !errors.Is(err, shared.ErrNotFound) {
					logger.Error("resolve profile", slog.String("user_id", userID.String()), slog.Any("error", err))
				}
			} else {
				ctx = shared.ContextWithProfile(ctx, profile)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
