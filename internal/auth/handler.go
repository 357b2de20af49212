package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fakturio/fakturio/internal/platform/httpx"
	"github.com/fakturio/fakturio/internal/shared"
)

// CompanyStateDropper discards per-user company selection state when a
// session ends or changes owner.
type CompanyStateDropper interface {
	Drop(userID uuid.UUID)
}

// Handler wires HTTP endpoints for session establishment and teardown.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	companyState   CompanyStateDropper
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, companyState CompanyStateDropper) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		companyState:   companyState,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/session", h.createSession)
	r.Delete("/session", h.destroySession)
	r.Get("/me", h.me)
}

type profileResponse struct {
	UserID              string `json:"user_id"`
	DisplayName         string `json:"display_name,omitempty"`
	Email               string `json:"email,omitempty"`
	LastActiveCompanyID string `json:"last_active_company_id,omitempty"`
}

// createSession exchanges an identity provider access token for a
// server session. A session change drops any previous user's company
// state so it is rebuilt against the new user.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	ident, err := h.service.VerifyToken(token)
	if err != nil {
		h.logger.Warn("verify token", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	profile, err := h.service.Profile(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		h.logger.Error("load profile", slog.String("user_id", ident.UserID.String()), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during sign-in")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if prev := sess.User(); prev != "" && prev != ident.UserID.String() {
		if prevID, err := uuid.Parse(prev); err == nil {
			h.companyState.Drop(prevID)
		}
		sess.SetActiveCompany("")
	}
	sess.SetUser(ident.UserID.String())

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, ident.UserID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusCreated, toProfileResponse(profile))
}

// destroySession signs the user out and discards their company state.
func (h *Handler) destroySession(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if userID, err := uuid.Parse(sess.User()); err == nil {
			h.companyState.Drop(userID)
		}
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	profile := shared.ProfileFromContext(r.Context())
	if profile == nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, toProfileResponse(profile))
}

func toProfileResponse(profile *shared.Profile) profileResponse {
	resp := profileResponse{
		UserID:      profile.UserID.String(),
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
	}
	if profile.LastActiveCompanyID != nil {
		resp.LastActiveCompanyID = profile.LastActiveCompanyID.String()
	}
	return resp
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
