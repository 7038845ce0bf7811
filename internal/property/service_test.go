// AngelaMos | 2026
// service_test.go

package property

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ophrus/immo-api/internal/core"
)

type visitEntry struct {
	count int
	seq   int
	at    time.Time
}

type memoryRepo struct {
	properties    map[string]*Property
	images        map[string][]Image
	favorites     map[string]map[string]bool
	ratings       map[string]map[string]int
	visits        map[string]map[string]*visitEntry
	visitSeq      int
	userRatingErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		properties: make(map[string]*Property),
		images:     make(map[string][]Image),
		favorites:  make(map[string]map[string]bool),
		ratings:    make(map[string]map[string]int),
		visits:     make(map[string]map[string]*visitEntry),
	}
}

func (r *memoryRepo) Create(_ context.Context, p *Property) error {
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	r.properties[p.ID] = &stored
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*Property, error) {
	p, ok := r.properties[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	found := *p
	return &found, nil
}

func (r *memoryRepo) Update(_ context.Context, p *Property) error {
	if _, ok := r.properties[p.ID]; !ok {
		return core.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	stored := *p
	r.properties[p.ID] = &stored
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.properties[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.properties, id)
	delete(r.images, id)
	delete(r.ratings, id)
	for _, userVisits := range r.visits {
		delete(userVisits, id)
	}
	return nil
}

func (r *memoryRepo) List(
	_ context.Context,
	_ ListPropertiesParams,
) ([]Property, int, error) {
	var out []Property
	for _, p := range r.properties {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Count(_ context.Context) (int, error) {
	return len(r.properties), nil
}

func (r *memoryRepo) AddImage(_ context.Context, img *Image) error {
	r.images[img.PropertyID] = append(r.images[img.PropertyID], *img)
	return nil
}

func (r *memoryRepo) GetImages(
	_ context.Context,
	propertyID string,
) ([]Image, error) {
	return r.images[propertyID], nil
}

func (r *memoryRepo) GetImagesForProperties(
	_ context.Context,
	propertyIDs []string,
) (map[string][]Image, error) {
	out := make(map[string][]Image)
	for _, id := range propertyIDs {
		if imgs, ok := r.images[id]; ok {
			out[id] = imgs
		}
	}
	return out, nil
}

func (r *memoryRepo) IsFavorite(
	_ context.Context,
	userID, propertyID string,
) (bool, error) {
	return r.favorites[userID][propertyID], nil
}

func (r *memoryRepo) AddFavorite(
	_ context.Context,
	userID, propertyID string,
) error {
	if r.favorites[userID] == nil {
		r.favorites[userID] = make(map[string]bool)
	}
	r.favorites[userID][propertyID] = true
	return nil
}

func (r *memoryRepo) RemoveFavorite(
	_ context.Context,
	userID, propertyID string,
) error {
	delete(r.favorites[userID], propertyID)
	return nil
}

func (r *memoryRepo) ListFavorites(
	_ context.Context,
	userID string,
	_ ListPropertiesParams,
) ([]Property, int, error) {
	var out []Property
	for id := range r.favorites[userID] {
		if p, ok := r.properties[id]; ok {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) UpsertRating(_ context.Context, rating *Rating) error {
	if r.ratings[rating.PropertyID] == nil {
		r.ratings[rating.PropertyID] = make(map[string]int)
	}
	r.ratings[rating.PropertyID][rating.UserID] = rating.Score
	return nil
}

func (r *memoryRepo) GetRatingSummary(
	_ context.Context,
	propertyID string,
) (float64, int, error) {
	scores := r.ratings[propertyID]
	if len(scores) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores)), len(scores), nil
}

func (r *memoryRepo) GetRatingSummaries(
	ctx context.Context,
	propertyIDs []string,
) (map[string]ratingSummary, error) {
	out := make(map[string]ratingSummary)
	for _, id := range propertyIDs {
		average, count, _ := r.GetRatingSummary(ctx, id)
		if count > 0 {
			out[id] = ratingSummary{
				PropertyID: id,
				Average:    average,
				Count:      count,
			}
		}
	}
	return out, nil
}

func (r *memoryRepo) RecordVisit(
	_ context.Context,
	userID, propertyID string,
) error {
	if r.visits[userID] == nil {
		r.visits[userID] = make(map[string]*visitEntry)
	}

	r.visitSeq++
	if e, ok := r.visits[userID][propertyID]; ok {
		e.count++
		e.seq = r.visitSeq
		e.at = time.Now()
		return nil
	}

	r.visits[userID][propertyID] = &visitEntry{
		count: 1,
		seq:   r.visitSeq,
		at:    time.Now(),
	}

	for len(r.visits[userID]) > visitHistoryLimit {
		stalest := ""
		for id, e := range r.visits[userID] {
			if stalest == "" || e.seq < r.visits[userID][stalest].seq {
				stalest = id
			}
		}
		delete(r.visits[userID], stalest)
	}

	return nil
}

func (r *memoryRepo) ListVisited(
	_ context.Context,
	userID string,
	params ListPropertiesParams,
) ([]VisitedProperty, int, error) {
	params.Normalize()

	ids := make([]string, 0, len(r.visits[userID]))
	for id := range r.visits[userID] {
		if _, ok := r.properties[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.visits[userID][ids[i]].seq > r.visits[userID][ids[j]].seq
	})

	total := len(ids)
	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}

	out := make([]VisitedProperty, 0, end-start)
	for _, id := range ids[start:end] {
		e := r.visits[userID][id]
		out = append(out, VisitedProperty{
			Property:      *r.properties[id],
			VisitCount:    e.count,
			LastVisitedAt: e.at,
		})
	}

	return out, total, nil
}

func (r *memoryRepo) GetUserRating(
	_ context.Context,
	propertyID, userID string,
) (*Rating, error) {
	if r.userRatingErr != nil {
		return nil, r.userRatingErr
	}
	score, ok := r.ratings[propertyID][userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &Rating{PropertyID: propertyID, UserID: userID, Score: score}, nil
}

type memoryStorage struct {
	uploads   map[string]string
	deleted   []string
	uploadErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{uploads: make(map[string]string)}
}

func (s *memoryStorage) Upload(
	_ context.Context,
	key, contentType string,
	_ io.Reader,
	_ int64,
) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads[key] = contentType
	return "https://media.test/" + key, nil
}

func (s *memoryStorage) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

type propertyFixture struct {
	service *Service
	repo    *memoryRepo
	storage *memoryStorage
}

func newPropertyFixture(t *testing.T) *propertyFixture {
	t.Helper()

	repo := newMemoryRepo()
	storage := newMemoryStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &propertyFixture{
		service: NewService(repo, storage, logger),
		repo:    repo,
		storage: storage,
	}
}

func validCreateRequest() CreatePropertyRequest {
	return CreatePropertyRequest{
		Title:       "Loft in the old town",
		Description: "Bright two-room loft",
		Price:       245000,
		Category:    CategoryApartment,
		City:        "Lyon",
		Address:     "12 rue de la Soie",
		Surface:     64,
		Rooms:       2,
	}
}

func TestCreate_WithImages(t *testing.T) {
	f := newPropertyFixture(t)

	resp, err := f.service.Create(
		context.Background(),
		"owner-1",
		validCreateRequest(),
		[]ImageUpload{
			{
				Filename:    "front.jpg",
				ContentType: "image/jpeg",
				Body:        bytes.NewReader([]byte("a")),
				Size:        1,
			},
			{
				Filename:    "kitchen.png",
				ContentType: "image/png",
				Body:        bytes.NewReader([]byte("b")),
				Size:        1,
			},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, "owner-1", resp.OwnerID)
	require.Len(t, resp.Images, 2)
	assert.Equal(t, 0, resp.Images[0].Position)
	assert.Equal(t, 1, resp.Images[1].Position)

	for key := range f.storage.uploads {
		assert.True(t, strings.HasPrefix(key, "properties/"+resp.ID+"/"))
	}
}

func TestCreate_ImageFailureKeepsListing(t *testing.T) {
	f := newPropertyFixture(t)
	f.storage.uploadErr = errors.New("bucket unavailable")

	resp, err := f.service.Create(
		context.Background(),
		"owner-1",
		validCreateRequest(),
		[]ImageUpload{{
			Filename:    "front.jpg",
			ContentType: "image/jpeg",
			Body:        bytes.NewReader([]byte("a")),
			Size:        1,
		}},
	)
	require.NoError(t, err, "a failed upload must not sink the listing")

	assert.Empty(t, resp.Images)

	_, err = f.service.Get(context.Background(), resp.ID)
	assert.NoError(t, err)
}

func TestUpdate_OwnerOnly(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "owner-1", validCreateRequest(), nil)
	require.NoError(t, err)

	newPrice := 250000.0
	_, err = f.service.Update(ctx, "intruder", false, created.ID, UpdatePropertyRequest{
		Price: &newPrice,
	})
	assert.ErrorIs(t, err, core.ErrForbidden)

	updated, err := f.service.Update(ctx, "owner-1", false, created.ID, UpdatePropertyRequest{
		Price: &newPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, 250000.0, updated.Price)

	// Admins can edit anyone's listing.
	title := "Edited by staff"
	updated, err = f.service.Update(ctx, "admin-1", true, created.ID, UpdatePropertyRequest{
		Title: &title,
	})
	require.NoError(t, err)
	assert.Equal(t, "Edited by staff", updated.Title)
}

func TestDelete_RemovesImages(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "owner-1", validCreateRequest(),
		[]ImageUpload{{
			Filename:    "front.jpg",
			ContentType: "image/jpeg",
			Body:        bytes.NewReader([]byte("a")),
			Size:        1,
		}},
	)
	require.NoError(t, err)

	err = f.service.Delete(ctx, "intruder", false, created.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, f.service.Delete(ctx, "owner-1", false, created.ID))

	_, err = f.service.Get(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Len(t, f.storage.deleted, 1)
}

func TestToggleFavorite(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "owner-1", validCreateRequest(), nil)
	require.NoError(t, err)

	favorite, err := f.service.ToggleFavorite(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.True(t, favorite)

	favorites, total, err := f.service.ListFavorites(
		ctx,
		"user-1",
		ListPropertiesParams{},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, favorites, 1)
	assert.Equal(t, created.ID, favorites[0].ID)

	favorite, err = f.service.ToggleFavorite(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.False(t, favorite)

	_, total, err = f.service.ListFavorites(ctx, "user-1", ListPropertiesParams{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestToggleFavorite_UnknownListing(t *testing.T) {
	f := newPropertyFixture(t)

	_, err := f.service.ToggleFavorite(context.Background(), "user-1", "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRate(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "owner-1", validCreateRequest(), nil)
	require.NoError(t, err)

	_, err = f.service.Rate(ctx, "user-1", created.ID, 0)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = f.service.Rate(ctx, "user-1", created.ID, 6)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	rating, err := f.service.Rate(ctx, "user-1", created.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, rating.Average)
	assert.Equal(t, 1, rating.Count)
	require.NotNil(t, rating.UserScore)
	assert.Equal(t, 4, *rating.UserScore)

	_, err = f.service.Rate(ctx, "user-2", created.ID, 2)
	require.NoError(t, err)

	// Re-rating replaces the previous score instead of adding a second one.
	rating, err = f.service.Rate(ctx, "user-1", created.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 3.5, rating.Average)
	assert.Equal(t, 2, rating.Count)
}

func TestRecordVisit_UnknownProperty(t *testing.T) {
	f := newPropertyFixture(t)

	err := f.service.RecordVisit(context.Background(), "user-1", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRecordVisit_RepeatBumpsCount(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "owner-1", validCreateRequest(), nil)
	require.NoError(t, err)

	require.NoError(t, f.service.RecordVisit(ctx, "user-1", created.ID))
	require.NoError(t, f.service.RecordVisit(ctx, "user-1", created.ID))

	visited, total, err := f.service.ListVisited(
		ctx,
		"user-1",
		ListPropertiesParams{},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, visited, 1)
	assert.Equal(t, created.ID, visited[0].ID)
	assert.Equal(t, 2, visited[0].VisitCount)
}

func TestListVisited_NewestFirst(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()

	ids := make([]string, 3)
	for i := range ids {
		created, err := f.service.Create(
			ctx,
			"owner-1",
			validCreateRequest(),
			nil,
		)
		require.NoError(t, err)
		ids[i] = created.ID
		require.NoError(t, f.service.RecordVisit(ctx, "user-1", created.ID))
	}

	// Revisiting the oldest listing moves it back to the top.
	require.NoError(t, f.service.RecordVisit(ctx, "user-1", ids[0]))

	visited, total, err := f.service.ListVisited(
		ctx,
		"user-1",
		ListPropertiesParams{},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, visited, 3)
	assert.Equal(t, ids[0], visited[0].ID)
	assert.Equal(t, ids[2], visited[1].ID)
	assert.Equal(t, ids[1], visited[2].ID)

	// Another user's history is empty.
	_, total, err = f.service.ListVisited(
		ctx,
		"user-2",
		ListPropertiesParams{},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestRecordVisit_HistoryCap(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()

	first := ""
	for i := 0; i < visitHistoryLimit+1; i++ {
		created, err := f.service.Create(
			ctx,
			"owner-1",
			validCreateRequest(),
			nil,
		)
		require.NoError(t, err)
		if first == "" {
			first = created.ID
		}
		require.NoError(t, f.service.RecordVisit(ctx, "user-1", created.ID))
	}

	visited, total, err := f.service.ListVisited(
		ctx,
		"user-1",
		ListPropertiesParams{PageSize: visitHistoryLimit},
	)
	require.NoError(t, err)
	assert.Equal(t, visitHistoryLimit, total)

	// The oldest entry fell off the capped history.
	for _, v := range visited {
		assert.NotEqual(t, first, v.ID)
	}
}

func TestGetRating_AnonymousUser(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "owner-1", validCreateRequest(), nil)
	require.NoError(t, err)

	_, err = f.service.Rate(ctx, "user-1", created.ID, 3)
	require.NoError(t, err)

	rating, err := f.service.GetRating(ctx, created.ID, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, 3.0, rating.Average)
	assert.Nil(t, rating.UserScore)
}

func TestGetRating_UserRatingLookupError(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "owner-1", validCreateRequest(), nil)
	require.NoError(t, err)

	// A storage failure must surface, not masquerade as "no rating yet".
	f.repo.userRatingErr = errors.New("connection reset")

	_, err = f.service.GetRating(ctx, created.ID, "user-1")
	assert.ErrorContains(t, err, "connection reset")
}

func TestGetOwner(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "owner-1", validCreateRequest(), nil)
	require.NoError(t, err)

	ownerID, title, err := f.service.GetOwner(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", ownerID)
	assert.Equal(t, "Loft in the old town", title)

	_, _, err = f.service.GetOwner(ctx, "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestList_IncludesRatingsAndImages(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "owner-1", validCreateRequest(),
		[]ImageUpload{{
			Filename:    "front.webp",
			ContentType: "image/webp",
			Body:        bytes.NewReader([]byte("a")),
			Size:        1,
		}},
	)
	require.NoError(t, err)

	_, err = f.service.Rate(ctx, "user-1", created.ID, 5)
	require.NoError(t, err)

	listed, total, err := f.service.List(ctx, ListPropertiesParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, listed, 1)

	assert.Len(t, listed[0].Images, 1)
	assert.Equal(t, 5.0, listed[0].AverageRating)
	assert.Equal(t, 1, listed[0].RatingsCount)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategoryHouse))
	assert.True(t, ValidCategory(CategoryApartment))
	assert.True(t, ValidCategory(CategoryLand))
	assert.True(t, ValidCategory(CategoryCommercial))
	assert.False(t, ValidCategory("castle"))
	assert.False(t, ValidCategory(""))
}
