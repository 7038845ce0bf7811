// AngelaMos | 2026
// dto.go

package property

import (
	"time"
)

type CreatePropertyRequest struct {
	Title       string  `json:"title"       validate:"required,min=3,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Price       float64 `json:"price"       validate:"required,gt=0"`
	Category    string  `json:"category"    validate:"required,oneof=house apartment land commercial"`
	City        string  `json:"city"        validate:"required,min=1,max=120"`
	Address     string  `json:"address"     validate:"max=255"`
	Surface     int     `json:"surface"     validate:"omitempty,gte=0"`
	Rooms       int     `json:"rooms"       validate:"omitempty,gte=0"`
}

type UpdatePropertyRequest struct {
	Title       *string  `json:"title,omitempty"       validate:"omitempty,min=3,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price,omitempty"       validate:"omitempty,gt=0"`
	Category    *string  `json:"category,omitempty"    validate:"omitempty,oneof=house apartment land commercial"`
	City        *string  `json:"city,omitempty"        validate:"omitempty,min=1,max=120"`
	Address     *string  `json:"address,omitempty"     validate:"omitempty,max=255"`
	Surface     *int     `json:"surface,omitempty"     validate:"omitempty,gte=0"`
	Rooms       *int     `json:"rooms,omitempty"       validate:"omitempty,gte=0"`
}

type RateRequest struct {
	Score int `json:"score" validate:"required,min=1,max=5"`
}

type ImageResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type PropertyResponse struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Price         float64         `json:"price"`
	Category      string          `json:"category"`
	City          string          `json:"city"`
	Address       string          `json:"address,omitempty"`
	Surface       int             `json:"surface"`
	Rooms         int             `json:"rooms"`
	Images        []ImageResponse `json:"images"`
	AverageRating float64         `json:"average_rating"`
	RatingsCount  int             `json:"ratings_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type RatingResponse struct {
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
	UserScore *int    `json:"user_score,omitempty"`
}

type FavoriteResponse struct {
	PropertyID string `json:"property_id"`
	Favorite   bool   `json:"favorite"`
}

type VisitedPropertyResponse struct {
	PropertyResponse
	VisitCount    int       `json:"visit_count"`
	LastVisitedAt time.Time `json:"last_visited_at"`
}

type ListPropertiesParams struct {
	Page     int
	PageSize int
	City     string
	Category string
	MinPrice float64
	MaxPrice float64
	Search   string
}

func (p *ListPropertiesParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListPropertiesParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
