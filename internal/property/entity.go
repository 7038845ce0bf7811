// AngelaMos | 2026
// entity.go

package property

import (
	"time"
)

type Property struct {
	ID          string    `db:"id"`
	OwnerID     string    `db:"owner_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Price       float64   `db:"price"`
	Category    string    `db:"category"`
	City        string    `db:"city"`
	Address     string    `db:"address"`
	Surface     int       `db:"surface"`
	Rooms       int       `db:"rooms"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type Image struct {
	ID         string    `db:"id"`
	PropertyID string    `db:"property_id"`
	ObjectKey  string    `db:"object_key"`
	URL        string    `db:"url"`
	Position   int       `db:"position"`
	CreatedAt  time.Time `db:"created_at"`
}

type Rating struct {
	PropertyID string    `db:"property_id"`
	UserID     string    `db:"user_id"`
	Score      int       `db:"score"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// VisitedProperty is a listing joined with the viewer's visit history row.
type VisitedProperty struct {
	Property
	VisitCount    int       `db:"visit_count"`
	LastVisitedAt time.Time `db:"last_visited_at"`
}

const (
	CategoryHouse      = "house"
	CategoryApartment  = "apartment"
	CategoryLand       = "land"
	CategoryCommercial = "commercial"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryHouse, CategoryApartment, CategoryLand, CategoryCommercial:
		return true
	}
	return false
}
