// AngelaMos | 2026
// handler.go

package property

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ophrus/immo-api/internal/core"
	"github.com/ophrus/immo-api/internal/middleware"
)

const (
	maxUploadSize = 32 << 20
	maxImages     = 10
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
	r.Route("/properties", func(r chi.Router) {
		r.Get("/", h.List)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/", h.Create)
			r.Get("/favorites", h.ListFavorites)
			r.Get("/visited", h.ListVisited)
			r.Put("/{propertyID}", h.Update)
			r.Delete("/{propertyID}", h.Delete)
			r.Post("/{propertyID}/favorite", h.ToggleFavorite)
			r.Post("/{propertyID}/visit", h.RecordVisit)
			r.Post("/{propertyID}/rate", h.Rate)
			r.Get("/{propertyID}/rating", h.GetRating)
		})

		r.Get("/{propertyID}", h.Get)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := listParamsFromQuery(r)

	properties, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, properties, params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "propertyID")

	property, err := h.service.Get(r.Context(), propertyID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "property")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, property)
}

// Create accepts a multipart form: listing fields plus up to ten "images"
// files.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		core.BadRequest(w, "invalid multipart body or upload too large")
		return
	}

	req, err := createRequestFromForm(r)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) > maxImages {
		core.BadRequest(w, "too many images, the limit is 10")
		return
	}

	uploads, closeFiles, err := openUploads(files)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}
	defer closeFiles()

	property, err := h.service.Create(r.Context(), userID, req, uploads)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, property)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	propertyID := chi.URLParam(r, "propertyID")

	var req UpdatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	property, err := h.service.Update(
		r.Context(),
		userID,
		middleware.IsAdmin(r.Context()),
		propertyID,
		req,
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, property)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	propertyID := chi.URLParam(r, "propertyID")

	err := h.service.Delete(
		r.Context(),
		userID,
		middleware.IsAdmin(r.Context()),
		propertyID,
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	propertyID := chi.URLParam(r, "propertyID")

	favorite, err := h.service.ToggleFavorite(r.Context(), userID, propertyID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, FavoriteResponse{PropertyID: propertyID, Favorite: favorite})
}

func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	params := listParamsFromQuery(r)

	properties, total, err := h.service.ListFavorites(
		r.Context(),
		userID,
		params,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, properties, params.Page, params.PageSize, total)
}

func (h *Handler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	propertyID := chi.URLParam(r, "propertyID")

	if err := h.service.RecordVisit(r.Context(), userID, propertyID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, map[string]string{"message": "visit recorded"})
}

func (h *Handler) ListVisited(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	params := listParamsFromQuery(r)

	properties, total, err := h.service.ListVisited(r.Context(), userID, params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, properties, params.Page, params.PageSize, total)
}

func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	propertyID := chi.URLParam(r, "propertyID")

	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	rating, err := h.service.Rate(r.Context(), userID, propertyID, req.Score)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, rating)
}

func (h *Handler) GetRating(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	propertyID := chi.URLParam(r, "propertyID")

	rating, err := h.service.GetRating(r.Context(), propertyID, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, rating)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "property")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "you do not own this listing")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid input")
	default:
		core.InternalServerError(w, err)
	}
}

func createRequestFromForm(r *http.Request) (CreatePropertyRequest, error) {
	var req CreatePropertyRequest

	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil {
		return req, errors.New("price must be a number")
	}

	surface, rooms := 0, 0
	if v := r.FormValue("surface"); v != "" {
		if surface, err = strconv.Atoi(v); err != nil {
			return req, errors.New("surface must be an integer")
		}
	}
	if v := r.FormValue("rooms"); v != "" {
		if rooms, err = strconv.Atoi(v); err != nil {
			return req, errors.New("rooms must be an integer")
		}
	}

	req = CreatePropertyRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       price,
		Category:    r.FormValue("category"),
		City:        r.FormValue("city"),
		Address:     r.FormValue("address"),
		Surface:     surface,
		Rooms:       rooms,
	}

	return req, nil
}

func openUploads(
	files []*multipart.FileHeader,
) ([]ImageUpload, func(), error) {
	uploads := make([]ImageUpload, 0, len(files))
	opened := make([]multipart.File, 0, len(files))

	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, header := range files {
		contentType := header.Header.Get("Content-Type")
		switch contentType {
		case "image/jpeg", "image/png", "image/webp":
		default:
			closeAll()
			return nil, nil, errors.New(
				"images must be jpeg, png or webp",
			)
		}

		file, err := header.Open()
		if err != nil {
			closeAll()
			return nil, nil, errors.New("unreadable image upload")
		}
		opened = append(opened, file)

		uploads = append(uploads, ImageUpload{
			Filename:    header.Filename,
			ContentType: contentType,
			Body:        file,
			Size:        header.Size,
		})
	}

	return uploads, closeAll, nil
}

func listParamsFromQuery(r *http.Request) ListPropertiesParams {
	q := r.URL.Query()

	minPrice, _ := strconv.ParseFloat(q.Get("min_price"), 64)
	maxPrice, _ := strconv.ParseFloat(q.Get("max_price"), 64)

	return ListPropertiesParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		City:     q.Get("city"),
		Category: q.Get("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Search:   q.Get("search"),
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
