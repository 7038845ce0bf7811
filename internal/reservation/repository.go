// AngelaMos | 2026
// repository.go

package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ophrus/immo-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, res *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	UpdateStatus(ctx context.Context, id, status string) error
	HasActiveForDay(
		ctx context.Context,
		propertyID, userID string,
		day time.Time,
	) (bool, error)
	ListByRequester(
		ctx context.Context,
		userID string,
		params ListReservationsParams,
	) ([]Reservation, int, error)
	ListByOwner(
		ctx context.Context,
		ownerID string,
		params ListReservationsParams,
	) ([]Reservation, int, error)
	CountAll(ctx context.Context) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const reservationColumns = `r.id, r.property_id, r.user_id, r.visit_date,
	       r.status, r.created_at, r.updated_at,
	       p.title AS property_title, p.owner_id AS owner_id`

func (r *repository) Create(ctx context.Context, res *Reservation) error {
	query := `
		INSERT INTO reservations (id, property_id, user_id, visit_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, res, query,
		res.ID,
		res.PropertyID,
		res.UserID,
		res.VisitDate,
		res.Status,
	)
	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Reservation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reservations r
		JOIN properties p ON p.id = r.property_id
		WHERE r.id = $1`, reservationColumns)

	var res Reservation
	err := r.db.GetContext(ctx, &res, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get reservation: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}

	return &res, nil
}

func (r *repository) UpdateStatus(
	ctx context.Context,
	id, status string,
) error {
	query := `
		UPDATE reservations
		SET status = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update reservation status: %w", core.ErrNotFound)
	}

	return nil
}

// HasActiveForDay reports whether the user already holds a pending or
// confirmed reservation on the same property for the same calendar day.
func (r *repository) HasActiveForDay(
	ctx context.Context,
	propertyID, userID string,
	day time.Time,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM reservations
			WHERE property_id = $1
				AND user_id = $2
				AND status IN ('pending', 'confirmed')
				AND visit_date::date = $3::date
		)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, propertyID, userID, day)
	if err != nil {
		return false, fmt.Errorf("check reservation conflict: %w", err)
	}

	return exists, nil
}

func (r *repository) ListByRequester(
	ctx context.Context,
	userID string,
	params ListReservationsParams,
) ([]Reservation, int, error) {
	return r.list(ctx, "r.user_id = $1", userID, params)
}

func (r *repository) ListByOwner(
	ctx context.Context,
	ownerID string,
	params ListReservationsParams,
) ([]Reservation, int, error) {
	return r.list(ctx, "p.owner_id = $1", ownerID, params)
}

func (r *repository) list(
	ctx context.Context,
	scope, scopeArg string,
	params ListReservationsParams,
) ([]Reservation, int, error) {
	params.Normalize()

	conditions := []string{scope}
	args := []any{scopeArg}
	argIdx := 2

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM reservations r
		JOIN properties p ON p.id = r.property_id
		WHERE %s`, whereClause)

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM reservations r
		JOIN properties p ON p.id = r.property_id
		WHERE %s
		ORDER BY r.visit_date DESC
		LIMIT $%d OFFSET $%d`,
		reservationColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var reservations []Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	return reservations, total, nil
}

func (r *repository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(
		ctx,
		&count,
		`SELECT COUNT(*) FROM reservations`,
	)
	if err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}

	return count, nil
}
