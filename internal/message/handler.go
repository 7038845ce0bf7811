// AngelaMos | 2026
// handler.go

package message

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
	r.Route("/messages", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.Send)
		r.Get("/conversations", h.Conversations)
		r.Get("/with/{userID}", h.Thread)
		r.Get("/unread", h.UnreadCount)
	})
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	senderID := middleware.GetUserID(r.Context())

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	msg, err := h.service.Send(r.Context(), senderID, req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "recipient")
			return
		}
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, "cannot send a message to yourself")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, msg)
}

func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conversations, err := h.service.Conversations(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, conversations)
}

func (h *Handler) Thread(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	otherID := chi.URLParam(r, "userID")

	params := ListMessagesParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 50),
	}

	messages, total, err := h.service.Thread(
		r.Context(),
		userID,
		otherID,
		params,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, messages, params.Page, params.PageSize, total)
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	count, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, UnreadCountResponse{Unread: count})
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
