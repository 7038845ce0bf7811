// AngelaMos | 2026
// repository.go

package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ophrus/immo-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Property) error
	GetByID(ctx context.Context, id string) (*Property, error)
	Update(ctx context.Context, p *Property) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListPropertiesParams) ([]Property, int, error)
	Count(ctx context.Context) (int, error)

	AddImage(ctx context.Context, img *Image) error
	GetImages(ctx context.Context, propertyID string) ([]Image, error)
	GetImagesForProperties(
		ctx context.Context,
		propertyIDs []string,
	) (map[string][]Image, error)

	IsFavorite(ctx context.Context, userID, propertyID string) (bool, error)
	AddFavorite(ctx context.Context, userID, propertyID string) error
	RemoveFavorite(ctx context.Context, userID, propertyID string) error
	ListFavorites(
		ctx context.Context,
		userID string,
		params ListPropertiesParams,
	) ([]Property, int, error)

	RecordVisit(ctx context.Context, userID, propertyID string) error
	ListVisited(
		ctx context.Context,
		userID string,
		params ListPropertiesParams,
	) ([]VisitedProperty, int, error)

	UpsertRating(ctx context.Context, rating *Rating) error
	GetRatingSummary(
		ctx context.Context,
		propertyID string,
	) (float64, int, error)
	GetRatingSummaries(
		ctx context.Context,
		propertyIDs []string,
	) (map[string]ratingSummary, error)
	GetUserRating(
		ctx context.Context,
		propertyID, userID string,
	) (*Rating, error)
}

type ratingSummary struct {
	PropertyID string  `db:"property_id"`
	Average    float64 `db:"average"`
	Count      int     `db:"count"`
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const propertyColumns = `id, owner_id, title, description, price, category,
	       city, address, surface, rooms, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Property) error {
	query := `
		INSERT INTO properties (
			id, owner_id, title, description, price, category,
			city, address, surface, rooms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID,
		p.OwnerID,
		p.Title,
		p.Description,
		p.Price,
		p.Category,
		p.City,
		p.Address,
		p.Surface,
		p.Rooms,
	)
	if err != nil {
		return fmt.Errorf("create property: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Property, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM properties
		WHERE id = $1`, propertyColumns)

	var p Property
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get property: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}

	return &p, nil
}

func (r *repository) Update(ctx context.Context, p *Property) error {
	query := `
		UPDATE properties
		SET title = $2, description = $3, price = $4, category = $5,
		    city = $6, address = $7, surface = $8, rooms = $9,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &p.UpdatedAt, query,
		p.ID,
		p.Title,
		p.Description,
		p.Price,
		p.Category,
		p.City,
		p.Address,
		p.Surface,
		p.Rooms,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update property: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM properties WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete property: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListPropertiesParams,
) ([]Property, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.City != "" {
		conditions = append(conditions, fmt.Sprintf("city ILIKE $%d", argIdx))
		args = append(args, params.City)
		argIdx++
	}

	if params.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, params.Category)
		argIdx++
	}

	if params.MinPrice > 0 {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIdx))
		args = append(args, params.MinPrice)
		argIdx++
	}

	if params.MaxPrice > 0 {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIdx))
		args = append(args, params.MaxPrice)
		argIdx++
	}

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM properties WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM properties
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		propertyColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var properties []Property
	if err := r.db.SelectContext(ctx, &properties, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}

	return properties, total, nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(
		ctx,
		&count,
		`SELECT COUNT(*) FROM properties`,
	)
	if err != nil {
		return 0, fmt.Errorf("count properties: %w", err)
	}

	return count, nil
}

func (r *repository) AddImage(ctx context.Context, img *Image) error {
	query := `
		INSERT INTO property_images (id, property_id, object_key, url, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &img.CreatedAt, query,
		img.ID,
		img.PropertyID,
		img.ObjectKey,
		img.URL,
		img.Position,
	)
	if err != nil {
		return fmt.Errorf("add property image: %w", err)
	}

	return nil
}

func (r *repository) GetImages(
	ctx context.Context,
	propertyID string,
) ([]Image, error) {
	query := `
		SELECT id, property_id, object_key, url, position, created_at
		FROM property_images
		WHERE property_id = $1
		ORDER BY position, created_at`

	var images []Image
	if err := r.db.SelectContext(ctx, &images, query, propertyID); err != nil {
		return nil, fmt.Errorf("get property images: %w", err)
	}

	return images, nil
}

func (r *repository) GetImagesForProperties(
	ctx context.Context,
	propertyIDs []string,
) (map[string][]Image, error) {
	if len(propertyIDs) == 0 {
		return map[string][]Image{}, nil
	}

	query := `
		SELECT id, property_id, object_key, url, position, created_at
		FROM property_images
		WHERE property_id = ANY($1)
		ORDER BY position, created_at`

	var images []Image
	if err := r.db.SelectContext(ctx, &images, query, propertyIDs); err != nil {
		return nil, fmt.Errorf("get property images: %w", err)
	}

	byProperty := make(map[string][]Image, len(propertyIDs))
	for _, img := range images {
		byProperty[img.PropertyID] = append(byProperty[img.PropertyID], img)
	}

	return byProperty, nil
}

func (r *repository) IsFavorite(
	ctx context.Context,
	userID, propertyID string,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM property_favorites
			WHERE user_id = $1 AND property_id = $2
		)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, userID, propertyID)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}

	return exists, nil
}

func (r *repository) AddFavorite(
	ctx context.Context,
	userID, propertyID string,
) error {
	query := `
		INSERT INTO property_favorites (user_id, property_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID, propertyID); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}

	return nil
}

func (r *repository) RemoveFavorite(
	ctx context.Context,
	userID, propertyID string,
) error {
	query := `
		DELETE FROM property_favorites
		WHERE user_id = $1 AND property_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, propertyID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}

	return nil
}

func (r *repository) ListFavorites(
	ctx context.Context,
	userID string,
	params ListPropertiesParams,
) ([]Property, int, error) {
	params.Normalize()

	countQuery := `
		SELECT COUNT(*)
		FROM property_favorites f
		JOIN properties p ON p.id = f.property_id
		WHERE f.user_id = $1`

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count favorites: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM property_favorites f
		JOIN properties p ON p.id = f.property_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3`,
		prefixColumns(propertyColumns, "p"))

	var properties []Property
	err := r.db.SelectContext(
		ctx,
		&properties,
		query,
		userID,
		params.PageSize,
		params.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}

	return properties, total, nil
}

// Only the most recent visitHistoryLimit listings are kept per user; older
// rows are pruned on each new visit.
const visitHistoryLimit = 100

func (r *repository) RecordVisit(
	ctx context.Context,
	userID, propertyID string,
) error {
	query := `
		INSERT INTO property_visits (user_id, property_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, property_id)
		DO UPDATE SET count = property_visits.count + 1,
		              last_visited_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, userID, propertyID); err != nil {
		return fmt.Errorf("record visit: %w", err)
	}

	prune := `
		DELETE FROM property_visits
		WHERE user_id = $1
			AND property_id NOT IN (
				SELECT property_id
				FROM property_visits
				WHERE user_id = $1
				ORDER BY last_visited_at DESC
				LIMIT $2
			)`

	if _, err := r.db.ExecContext(ctx, prune, userID, visitHistoryLimit); err != nil {
		return fmt.Errorf("prune visit history: %w", err)
	}

	return nil
}

func (r *repository) ListVisited(
	ctx context.Context,
	userID string,
	params ListPropertiesParams,
) ([]VisitedProperty, int, error) {
	params.Normalize()

	countQuery := `
		SELECT COUNT(*)
		FROM property_visits v
		JOIN properties p ON p.id = v.property_id
		WHERE v.user_id = $1`

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count visited: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s, v.count AS visit_count, v.last_visited_at
		FROM property_visits v
		JOIN properties p ON p.id = v.property_id
		WHERE v.user_id = $1
		ORDER BY v.last_visited_at DESC
		LIMIT $2 OFFSET $3`,
		prefixColumns(propertyColumns, "p"))

	var visited []VisitedProperty
	err := r.db.SelectContext(
		ctx,
		&visited,
		query,
		userID,
		params.PageSize,
		params.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list visited: %w", err)
	}

	return visited, total, nil
}

func (r *repository) UpsertRating(ctx context.Context, rating *Rating) error {
	query := `
		INSERT INTO property_ratings (property_id, user_id, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (property_id, user_id)
		DO UPDATE SET score = EXCLUDED.score, updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, rating, query,
		rating.PropertyID,
		rating.UserID,
		rating.Score,
	)
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}

	return nil
}

func (r *repository) GetRatingSummary(
	ctx context.Context,
	propertyID string,
) (float64, int, error) {
	query := `
		SELECT COALESCE(AVG(score), 0) AS average, COUNT(*) AS count
		FROM property_ratings
		WHERE property_id = $1`

	var summary struct {
		Average float64 `db:"average"`
		Count   int     `db:"count"`
	}
	if err := r.db.GetContext(ctx, &summary, query, propertyID); err != nil {
		return 0, 0, fmt.Errorf("rating summary: %w", err)
	}

	return summary.Average, summary.Count, nil
}

func (r *repository) GetRatingSummaries(
	ctx context.Context,
	propertyIDs []string,
) (map[string]ratingSummary, error) {
	if len(propertyIDs) == 0 {
		return map[string]ratingSummary{}, nil
	}

	query := `
		SELECT property_id,
		       COALESCE(AVG(score), 0) AS average,
		       COUNT(*) AS count
		FROM property_ratings
		WHERE property_id = ANY($1)
		GROUP BY property_id`

	var summaries []ratingSummary
	if err := r.db.SelectContext(ctx, &summaries, query, propertyIDs); err != nil {
		return nil, fmt.Errorf("rating summaries: %w", err)
	}

	byProperty := make(map[string]ratingSummary, len(summaries))
	for _, s := range summaries {
		byProperty[s.PropertyID] = s
	}

	return byProperty, nil
}

func (r *repository) GetUserRating(
	ctx context.Context,
	propertyID, userID string,
) (*Rating, error) {
	query := `
		SELECT property_id, user_id, score, created_at, updated_at
		FROM property_ratings
		WHERE property_id = $1 AND user_id = $2`

	var rating Rating
	err := r.db.GetContext(ctx, &rating, query, propertyID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get rating: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}

	return &rating, nil
}

// prefixColumns qualifies a comma separated column list with a table alias
// for use in joins.
func prefixColumns(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
