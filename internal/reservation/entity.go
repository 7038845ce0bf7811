// AngelaMos | 2026
// entity.go

package reservation

import (
	"time"
)

type Reservation struct {
	ID         string    `db:"id"`
	PropertyID string    `db:"property_id"`
	UserID     string    `db:"user_id"`
	VisitDate  time.Time `db:"visit_date"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`

	// Joined from properties on reads.
	PropertyTitle string `db:"property_title"`
	OwnerID       string `db:"owner_id"`
}

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// CanTransitionTo encodes the reservation state machine: pending may be
// confirmed or cancelled, confirmed may only be cancelled, cancelled is
// final.
func (r *Reservation) CanTransitionTo(status string) bool {
	switch r.Status {
	case StatusPending:
		return status == StatusConfirmed || status == StatusCancelled
	case StatusConfirmed:
		return status == StatusCancelled
	default:
		return false
	}
}
