package companies

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fakturio/fakturio/internal/i18n"
	"github.com/fakturio/fakturio/internal/platform/httpx"
	"github.com/fakturio/fakturio/internal/shared"
)

// Handler exposes the company-selection state over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.state)
	r.Post("/switch", h.switchCompany)
	r.Post("/refresh", h.refresh)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil || shared.ProfileFromContext(r.Context()) == nil {
		// Signed out, or the profile could not be resolved for this
		// request: cleared directory and selection, nothing loaded and
		// nothing persisted. Running the loader without the profile
		// would select the fallback and overwrite the saved preference.
		httpx.JSON(w, http.StatusOK, StateResponse{Companies: []Company{}})
		return
	}
	st := h.service.State(r.Context(), ident.UserID, preferenceFrom(r))
	h.syncSession(r, st)
	httpx.JSON(w, http.StatusOK, h.response(r, st))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if shared.ProfileFromContext(r.Context()) == nil {
		httpx.JSON(w, http.StatusOK, StateResponse{Companies: []Company{}})
		return
	}
	st := h.service.Refresh(r.Context(), ident.UserID, preferenceFrom(r))
	h.syncSession(r, st)
	httpx.JSON(w, http.StatusOK, h.response(r, st))
}

func (h *Handler) switchCompany(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req SwitchCompanyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	st, err := h.service.Switch(r.Context(), ident.UserID, companyID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, shared.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, shared.ErrAccessDenied):
			status = http.StatusForbidden
		}
		httpx.JSON(w, status, h.response(r, st))
		return
	}

	h.syncSession(r, st)
	httpx.JSON(w, http.StatusOK, h.response(r, st))
}

// syncSession mirrors the selection into the Redis-backed session so
// the rest of the application scopes its queries to it.
func (h *Handler) syncSession(r *http.Request, st State) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return
	}
	if st.Selected == nil {
		if sess.ActiveCompany() != "" {
			sess.SetActiveCompany("")
		}
		return
	}
	if sess.ActiveCompany() != st.Selected.ID.String() {
		sess.SetActiveCompany(st.Selected.ID.String())
	}
}

func (h *Handler) response(r *http.Request, st State) StateResponse {
	resp := StateResponse{
		Companies:       st.Companies,
		SelectedCompany: st.Selected,
		IsLoading:       st.Loading,
		Error:           i18n.Localize(r.Header.Get("Accept-Language"), st.ErrKey),
	}
	if resp.Companies == nil {
		resp.Companies = []Company{}
	}
	return resp
}

func preferenceFrom(r *http.Request) *uuid.UUID {
	profile := shared.ProfileFromContext(r.Context())
	if profile == nil {
		return nil
	}
	return profile.LastActiveCompanyID
}
