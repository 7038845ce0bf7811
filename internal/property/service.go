// AngelaMos | 2026
// service.go

package property

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/ophrus/immo-api/internal/core"
)

type ImageStorage interface {
	Upload(
		ctx context.Context,
		key, contentType string,
		body io.Reader,
		size int64,
	) (string, error)
	Delete(ctx context.Context, key string) error
}

// ImageUpload is one file from the multipart create request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64
}

type Service struct {
	repo    Repository
	storage ImageStorage
	logger  *slog.Logger
}

func NewService(
	repo Repository,
	storage ImageStorage,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:    repo,
		storage: storage,
		logger:  logger,
	}
}

func (s *Service) List(
	ctx context.Context,
	params ListPropertiesParams,
) ([]PropertyResponse, int, error) {
	properties, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	responses, err := s.toResponses(ctx, properties)
	if err != nil {
		return nil, 0, err
	}

	return responses, total, nil
}

func (s *Service) Get(ctx context.Context, id string) (*PropertyResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	images, err := s.repo.GetImages(ctx, id)
	if err != nil {
		return nil, err
	}

	average, count, err := s.repo.GetRatingSummary(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := toResponse(p, images, average, count)
	return &resp, nil
}

func (s *Service) Create(
	ctx context.Context,
	ownerID string,
	req CreatePropertyRequest,
	uploads []ImageUpload,
) (*PropertyResponse, error) {
	p := &Property{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		City:        req.City,
		Address:     req.Address,
		Surface:     req.Surface,
		Rooms:       req.Rooms,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	images := make([]Image, 0, len(uploads))
	for i, upload := range uploads {
		img, err := s.storeImage(ctx, p.ID, i, upload)
		if err != nil {
			// The listing exists; a failed image upload should not roll
			// it back. The owner can retry from the edit screen.
			s.logger.Warn("store listing image",
				"property_id", p.ID,
				"filename", upload.Filename,
				"error", err,
			)
			continue
		}
		images = append(images, *img)
	}

	resp := toResponse(p, images, 0, 0)
	return &resp, nil
}

func (s *Service) storeImage(
	ctx context.Context,
	propertyID string,
	position int,
	upload ImageUpload,
) (*Image, error) {
	ext := strings.ToLower(path.Ext(upload.Filename))
	key := fmt.Sprintf(
		"properties/%s/%s%s",
		propertyID,
		uuid.New().String(),
		ext,
	)

	url, err := s.storage.Upload(
		ctx,
		key,
		upload.ContentType,
		upload.Body,
		upload.Size,
	)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	img := &Image{
		ID:         uuid.New().String(),
		PropertyID: propertyID,
		ObjectKey:  key,
		URL:        url,
		Position:   position,
	}

	if err := s.repo.AddImage(ctx, img); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("orphaned image object",
				"key", key,
				"error", delErr,
			)
		}
		return nil, err
	}

	return img, nil
}

func (s *Service) Update(
	ctx context.Context,
	actorID string,
	actorIsAdmin bool,
	id string,
	req UpdatePropertyRequest,
) (*PropertyResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.OwnerID != actorID && !actorIsAdmin {
		return nil, fmt.Errorf("update property: %w", core.ErrForbidden)
	}

	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.City != nil {
		p.City = *req.City
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.Surface != nil {
		p.Surface = *req.Surface
	}
	if req.Rooms != nil {
		p.Rooms = *req.Rooms
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

func (s *Service) Delete(
	ctx context.Context,
	actorID string,
	actorIsAdmin bool,
	id string,
) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if p.OwnerID != actorID && !actorIsAdmin {
		return fmt.Errorf("delete property: %w", core.ErrForbidden)
	}

	images, err := s.repo.GetImages(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	for _, img := range images {
		if delErr := s.storage.Delete(ctx, img.ObjectKey); delErr != nil {
			s.logger.Warn("delete listing image object",
				"property_id", id,
				"key", img.ObjectKey,
				"error", delErr,
			)
		}
	}

	return nil
}

// ToggleFavorite flips the favorite state and reports the new one.
func (s *Service) ToggleFavorite(
	ctx context.Context,
	userID, propertyID string,
) (bool, error) {
	if _, err := s.repo.GetByID(ctx, propertyID); err != nil {
		return false, err
	}

	favorite, err := s.repo.IsFavorite(ctx, userID, propertyID)
	if err != nil {
		return false, err
	}

	if favorite {
		if err := s.repo.RemoveFavorite(ctx, userID, propertyID); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.repo.AddFavorite(ctx, userID, propertyID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) ListFavorites(
	ctx context.Context,
	userID string,
	params ListPropertiesParams,
) ([]PropertyResponse, int, error) {
	properties, total, err := s.repo.ListFavorites(ctx, userID, params)
	if err != nil {
		return nil, 0, err
	}

	responses, err := s.toResponses(ctx, properties)
	if err != nil {
		return nil, 0, err
	}

	return responses, total, nil
}

// RecordVisit notes that the user viewed the listing. Repeat visits bump the
// counter and move the listing to the top of the history.
func (s *Service) RecordVisit(
	ctx context.Context,
	userID, propertyID string,
) error {
	if _, err := s.repo.GetByID(ctx, propertyID); err != nil {
		return err
	}

	return s.repo.RecordVisit(ctx, userID, propertyID)
}

// ListVisited returns the user's recently viewed listings, newest first.
func (s *Service) ListVisited(
	ctx context.Context,
	userID string,
	params ListPropertiesParams,
) ([]VisitedPropertyResponse, int, error) {
	visited, total, err := s.repo.ListVisited(ctx, userID, params)
	if err != nil {
		return nil, 0, err
	}

	properties := make([]Property, len(visited))
	for i := range visited {
		properties[i] = visited[i].Property
	}

	responses, err := s.toResponses(ctx, properties)
	if err != nil {
		return nil, 0, err
	}

	out := make([]VisitedPropertyResponse, 0, len(visited))
	for i := range visited {
		out = append(out, VisitedPropertyResponse{
			PropertyResponse: responses[i],
			VisitCount:       visited[i].VisitCount,
			LastVisitedAt:    visited[i].LastVisitedAt,
		})
	}

	return out, total, nil
}

// Rate records a 1-5 score. A second rating from the same user replaces the
// first.
func (s *Service) Rate(
	ctx context.Context,
	userID, propertyID string,
	score int,
) (*RatingResponse, error) {
	if score < 1 || score > 5 {
		return nil, fmt.Errorf(
			"rate property: score out of range: %w",
			core.ErrInvalidInput,
		)
	}

	if _, err := s.repo.GetByID(ctx, propertyID); err != nil {
		return nil, err
	}

	rating := &Rating{
		PropertyID: propertyID,
		UserID:     userID,
		Score:      score,
	}

	if err := s.repo.UpsertRating(ctx, rating); err != nil {
		return nil, err
	}

	return s.GetRating(ctx, propertyID, userID)
}

func (s *Service) GetRating(
	ctx context.Context,
	propertyID, userID string,
) (*RatingResponse, error) {
	if _, err := s.repo.GetByID(ctx, propertyID); err != nil {
		return nil, err
	}

	average, count, err := s.repo.GetRatingSummary(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	resp := &RatingResponse{Average: average, Count: count}

	userRating, err := s.repo.GetUserRating(ctx, propertyID, userID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	if err == nil {
		resp.UserScore = &userRating.Score
	}

	return resp, nil
}

// GetOwner reports who owns a listing, for cross-package authorization
// checks.
func (s *Service) GetOwner(
	ctx context.Context,
	propertyID string,
) (ownerID, title string, err error) {
	p, err := s.repo.GetByID(ctx, propertyID)
	if err != nil {
		return "", "", err
	}
	return p.OwnerID, p.Title, nil
}

func (s *Service) toResponses(
	ctx context.Context,
	properties []Property,
) ([]PropertyResponse, error) {
	ids := make([]string, 0, len(properties))
	for _, p := range properties {
		ids = append(ids, p.ID)
	}

	imagesByProperty, err := s.repo.GetImagesForProperties(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries, err := s.repo.GetRatingSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	responses := make([]PropertyResponse, 0, len(properties))
	for i := range properties {
		p := &properties[i]
		summary := summaries[p.ID]
		responses = append(responses, toResponse(
			p,
			imagesByProperty[p.ID],
			summary.Average,
			summary.Count,
		))
	}

	return responses, nil
}

func toResponse(
	p *Property,
	images []Image,
	average float64,
	count int,
) PropertyResponse {
	imageResponses := make([]ImageResponse, 0, len(images))
	for _, img := range images {
		imageResponses = append(imageResponses, ImageResponse{
			ID:       img.ID,
			URL:      img.URL,
			Position: img.Position,
		})
	}

	return PropertyResponse{
		ID:            p.ID,
		OwnerID:       p.OwnerID,
		Title:         p.Title,
		Description:   p.Description,
		Price:         p.Price,
		Category:      p.Category,
		City:          p.City,
		Address:       p.Address,
		Surface:       p.Surface,
		Rooms:         p.Rooms,
		Images:        imageResponses,
		AverageRating: average,
		RatingsCount:  count,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
