// AngelaMos | 2026
// handler.go

package reservation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ophrus/immo-api/internal/core"
	"github.com/ophrus/immo-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/reservations", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.Create)
		r.Get("/my", h.ListMine)
		r.Get("/owner", h.ListForOwner)
		r.Get("/{reservationID}", h.Get)
		r.Patch("/{reservationID}/confirm", h.Confirm)
		r.Patch("/{reservationID}/cancel", h.Cancel)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	res, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.Created(w, res)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Get(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.IsAdmin(r.Context()),
		chi.URLParam(r, "reservationID"),
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, res)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	params := listParamsFromQuery(r)

	items, total, err := h.service.ListMine(r.Context(), userID, params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, items, params.Page, params.PageSize, total)
}

func (h *Handler) ListForOwner(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	params := listParamsFromQuery(r)

	items, total, err := h.service.ListForOwner(r.Context(), userID, params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, items, params.Page, params.PageSize, total)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Confirm(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.IsAdmin(r.Context()),
		chi.URLParam(r, "reservationID"),
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, res)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Cancel(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.IsAdmin(r.Context()),
		chi.URLParam(r, "reservationID"),
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, res)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "reservation")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "not your reservation")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "visit date must be a valid future date")
	default:
		core.InternalServerError(w, err)
	}
}

func listParamsFromQuery(r *http.Request) ListReservationsParams {
	return ListReservationsParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Status:   r.URL.Query().Get("status"),
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
