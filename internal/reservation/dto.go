// AngelaMos | 2026
// dto.go

package reservation

import (
	"time"
)

type CreateReservationRequest struct {
	PropertyID string `json:"property_id" validate:"required,uuid4"`
	// VisitDate is RFC 3339; date-only values are accepted as midnight UTC.
	VisitDate string `json:"visit_date" validate:"required"`
}

type ReservationResponse struct {
	ID            string    `json:"id"`
	PropertyID    string    `json:"property_id"`
	PropertyTitle string    `json:"property_title,omitempty"`
	UserID        string    `json:"user_id"`
	VisitDate     time.Time `json:"visit_date"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ListReservationsParams struct {
	Page     int
	PageSize int
	Status   string
}

func (p *ListReservationsParams) Normalize() {
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

func (p *ListReservationsParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToReservationResponse(r *Reservation) ReservationResponse {
	return ReservationResponse{
		ID:            r.ID,
		PropertyID:    r.PropertyID,
		PropertyTitle: r.PropertyTitle,
		UserID:        r.UserID,
		VisitDate:     r.VisitDate,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func ToReservationResponseList(items []Reservation) []ReservationResponse {
	responses := make([]ReservationResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToReservationResponse(&items[i]))
	}
	return responses
}
