// AngelaMos | 2026
// service.go

package reservation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ophrus/immo-api/internal/core"
)

type PropertyProvider interface {
	GetOwner(
		ctx context.Context,
		propertyID string,
	) (ownerID, title string, err error)
}

// Notifier delivers the in-app contact messages reservations generate.
type Notifier interface {
	SendDirect(ctx context.Context, senderID, recipientID, body string) error
}

type Service struct {
	repo       Repository
	properties PropertyProvider
	notifier   Notifier
	logger     *slog.Logger
}

func NewService(
	repo Repository,
	properties PropertyProvider,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		properties: properties,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *Service) Create(
	ctx context.Context,
	userID string,
	req CreateReservationRequest,
) (*ReservationResponse, error) {
	visitDate, err := parseVisitDate(req.VisitDate)
	if err != nil {
		return nil, err
	}

	if !visitDate.After(time.Now()) {
		return nil, fmt.Errorf(
			"create reservation: visit date must be in the future: %w",
			core.ErrInvalidInput,
		)
	}

	ownerID, title, err := s.properties.GetOwner(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	duplicate, err := s.repo.HasActiveForDay(
		ctx,
		req.PropertyID,
		userID,
		visitDate,
	)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, core.ConflictError(
			"you already have a reservation on this property for that day",
		)
	}

	res := &Reservation{
		ID:         uuid.New().String(),
		PropertyID: req.PropertyID,
		UserID:     userID,
		VisitDate:  visitDate,
		Status:     StatusPending,
	}

	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}

	res.PropertyTitle = title
	res.OwnerID = ownerID

	s.notify(ctx, userID, ownerID, fmt.Sprintf(
		"New visit request for %q on %s.",
		title,
		visitDate.Format("2006-01-02"),
	))

	resp := ToReservationResponse(res)
	return &resp, nil
}

func (s *Service) Get(
	ctx context.Context,
	actorID string,
	actorIsAdmin bool,
	id string,
) (*ReservationResponse, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if res.UserID != actorID && res.OwnerID != actorID && !actorIsAdmin {
		return nil, fmt.Errorf("get reservation: %w", core.ErrForbidden)
	}

	resp := ToReservationResponse(res)
	return &resp, nil
}

func (s *Service) ListMine(
	ctx context.Context,
	userID string,
	params ListReservationsParams,
) ([]ReservationResponse, int, error) {
	items, total, err := s.repo.ListByRequester(ctx, userID, params)
	if err != nil {
		return nil, 0, err
	}
	return ToReservationResponseList(items), total, nil
}

// ListForOwner returns reservations made on the caller's listings.
func (s *Service) ListForOwner(
	ctx context.Context,
	ownerID string,
	params ListReservationsParams,
) ([]ReservationResponse, int, error) {
	items, total, err := s.repo.ListByOwner(ctx, ownerID, params)
	if err != nil {
		return nil, 0, err
	}
	return ToReservationResponseList(items), total, nil
}

func (s *Service) Confirm(
	ctx context.Context,
	actorID string,
	actorIsAdmin bool,
	id string,
) (*ReservationResponse, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if res.OwnerID != actorID && !actorIsAdmin {
		return nil, fmt.Errorf("confirm reservation: %w", core.ErrForbidden)
	}

	if !res.CanTransitionTo(StatusConfirmed) {
		return nil, core.ConflictError(fmt.Sprintf(
			"cannot confirm a %s reservation", res.Status,
		))
	}

	if err := s.repo.UpdateStatus(ctx, id, StatusConfirmed); err != nil {
		return nil, err
	}
	res.Status = StatusConfirmed

	s.notify(ctx, actorID, res.UserID, fmt.Sprintf(
		"Your visit of %q on %s has been confirmed.",
		res.PropertyTitle,
		res.VisitDate.Format("2006-01-02"),
	))

	resp := ToReservationResponse(res)
	return &resp, nil
}

func (s *Service) Cancel(
	ctx context.Context,
	actorID string,
	actorIsAdmin bool,
	id string,
) (*ReservationResponse, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if res.UserID != actorID && res.OwnerID != actorID && !actorIsAdmin {
		return nil, fmt.Errorf("cancel reservation: %w", core.ErrForbidden)
	}

	if !res.CanTransitionTo(StatusCancelled) {
		return nil, core.ConflictError(fmt.Sprintf(
			"cannot cancel a %s reservation", res.Status,
		))
	}

	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}
	res.Status = StatusCancelled

	// Tell the other party, whichever side cancelled.
	recipient := res.UserID
	if actorID == res.UserID {
		recipient = res.OwnerID
	}
	s.notify(ctx, actorID, recipient, fmt.Sprintf(
		"The visit of %q on %s has been cancelled.",
		res.PropertyTitle,
		res.VisitDate.Format("2006-01-02"),
	))

	resp := ToReservationResponse(res)
	return &resp, nil
}

// notify is best-effort: a messaging failure never fails the reservation
// operation that triggered it.
func (s *Service) notify(ctx context.Context, from, to, body string) {
	if from == to {
		return
	}
	if err := s.notifier.SendDirect(ctx, from, to, body); err != nil {
		s.logger.Warn("send reservation notification",
			"from", from,
			"to", to,
			"error", err,
		)
	}
}

func parseVisitDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf(
		"parse visit date %q: %w",
		raw,
		core.ErrInvalidInput,
	)
}
