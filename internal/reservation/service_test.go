// AngelaMos | 2026
// service_test.go

package reservation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ophrus/immo-api/internal/core"
)

// memoryRepo emulates the joined reads: owner and title come from the
// property, not the reservation row.
type memoryRepo struct {
	reservations map[string]*Reservation
	props        *fakeProperties
}

func newMemoryRepo(props *fakeProperties) *memoryRepo {
	return &memoryRepo{
		reservations: make(map[string]*Reservation),
		props:        props,
	}
}

func (r *memoryRepo) joined(res *Reservation) Reservation {
	found := *res
	found.OwnerID = r.props.owners[res.PropertyID]
	found.PropertyTitle = r.props.titles[res.PropertyID]
	return found
}

func (r *memoryRepo) Create(_ context.Context, res *Reservation) error {
	res.CreatedAt = time.Now()
	res.UpdatedAt = res.CreatedAt
	stored := *res
	r.reservations[res.ID] = &stored
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*Reservation, error) {
	res, ok := r.reservations[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	found := r.joined(res)
	return &found, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id, status string) error {
	res, ok := r.reservations[id]
	if !ok {
		return core.ErrNotFound
	}
	res.Status = status
	res.UpdatedAt = time.Now()
	return nil
}

func (r *memoryRepo) HasActiveForDay(
	_ context.Context,
	propertyID, userID string,
	day time.Time,
) (bool, error) {
	for _, res := range r.reservations {
		if res.PropertyID != propertyID || res.UserID != userID {
			continue
		}
		if res.Status != StatusPending && res.Status != StatusConfirmed {
			continue
		}
		y1, m1, d1 := res.VisitDate.Date()
		y2, m2, d2 := day.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) ListByRequester(
	_ context.Context,
	userID string,
	params ListReservationsParams,
) ([]Reservation, int, error) {
	var out []Reservation
	for _, res := range r.reservations {
		if res.UserID == userID && matchesStatus(res, params.Status) {
			out = append(out, r.joined(res))
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) ListByOwner(
	_ context.Context,
	ownerID string,
	params ListReservationsParams,
) ([]Reservation, int, error) {
	var out []Reservation
	for _, res := range r.reservations {
		joined := r.joined(res)
		if joined.OwnerID == ownerID && matchesStatus(res, params.Status) {
			out = append(out, joined)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) CountAll(_ context.Context) (int, error) {
	return len(r.reservations), nil
}

func matchesStatus(res *Reservation, status string) bool {
	return status == "" || res.Status == status
}

type fakeProperties struct {
	owners map[string]string
	titles map[string]string
}

func (p *fakeProperties) GetOwner(
	_ context.Context,
	propertyID string,
) (string, string, error) {
	owner, ok := p.owners[propertyID]
	if !ok {
		return "", "", core.ErrNotFound
	}
	return owner, p.titles[propertyID], nil
}

type notification struct {
	from, to, body string
}

type fakeNotifier struct {
	sent    []notification
	sendErr error
}

func (n *fakeNotifier) SendDirect(
	_ context.Context,
	senderID, recipientID, body string,
) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, notification{senderID, recipientID, body})
	return nil
}

type reservationFixture struct {
	service    *Service
	repo       *memoryRepo
	properties *fakeProperties
	notifier   *fakeNotifier
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()

	properties := &fakeProperties{
		owners: map[string]string{"prop-1": "owner-1"},
		titles: map[string]string{"prop-1": "Loft in the old town"},
	}
	repo := newMemoryRepo(properties)
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &reservationFixture{
		service:    NewService(repo, properties, notifier, logger),
		repo:       repo,
		properties: properties,
		notifier:   notifier,
	}
}

func tomorrow() string {
	return time.Now().Add(24 * time.Hour).Format("2006-01-02")
}

func TestCreate(t *testing.T) {
	f := newReservationFixture(t)

	resp, err := f.service.Create(context.Background(), "visitor-1",
		CreateReservationRequest{
			PropertyID: "prop-1",
			VisitDate:  tomorrow(),
		})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, resp.Status)
	assert.Equal(t, "prop-1", resp.PropertyID)
	assert.Equal(t, "Loft in the old town", resp.PropertyTitle)

	// The owner hears about the request.
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "visitor-1", f.notifier.sent[0].from)
	assert.Equal(t, "owner-1", f.notifier.sent[0].to)
}

func TestCreate_PastDate(t *testing.T) {
	f := newReservationFixture(t)

	_, err := f.service.Create(context.Background(), "visitor-1",
		CreateReservationRequest{
			PropertyID: "prop-1",
			VisitDate:  "2020-01-01",
		})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestCreate_BadDate(t *testing.T) {
	f := newReservationFixture(t)

	_, err := f.service.Create(context.Background(), "visitor-1",
		CreateReservationRequest{
			PropertyID: "prop-1",
			VisitDate:  "next tuesday",
		})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestCreate_UnknownProperty(t *testing.T) {
	f := newReservationFixture(t)

	_, err := f.service.Create(context.Background(), "visitor-1",
		CreateReservationRequest{
			PropertyID: "ghost",
			VisitDate:  tomorrow(),
		})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreate_SameDayDuplicate(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	day := tomorrow()

	_, err := f.service.Create(ctx, "visitor-1", CreateReservationRequest{
		PropertyID: "prop-1",
		VisitDate:  day,
	})
	require.NoError(t, err)

	_, err = f.service.Create(ctx, "visitor-1", CreateReservationRequest{
		PropertyID: "prop-1",
		VisitDate:  day,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestCreate_CancelledFreesTheDay(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	day := tomorrow()

	first, err := f.service.Create(ctx, "visitor-1", CreateReservationRequest{
		PropertyID: "prop-1",
		VisitDate:  day,
	})
	require.NoError(t, err)

	_, err = f.service.Cancel(ctx, "visitor-1", false, first.ID)
	require.NoError(t, err)

	_, err = f.service.Create(ctx, "visitor-1", CreateReservationRequest{
		PropertyID: "prop-1",
		VisitDate:  day,
	})
	assert.NoError(t, err)
}

func TestConfirm(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "visitor-1", CreateReservationRequest{
		PropertyID: "prop-1",
		VisitDate:  tomorrow(),
	})
	require.NoError(t, err)

	// Only the listing owner may confirm.
	_, err = f.service.Confirm(ctx, "visitor-1", false, created.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	confirmed, err := f.service.Confirm(ctx, "owner-1", false, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	// The requester is told.
	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, "visitor-1", last.to)

	// Confirming twice conflicts.
	_, err = f.service.Confirm(ctx, "owner-1", false, created.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestCancel(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "visitor-1", CreateReservationRequest{
		PropertyID: "prop-1",
		VisitDate:  tomorrow(),
	})
	require.NoError(t, err)

	_, err = f.service.Cancel(ctx, "stranger", false, created.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	// The owner cancels; the visitor is notified.
	cancelled, err := f.service.Cancel(ctx, "owner-1", false, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, "visitor-1", last.to)

	// Cancelled is final.
	_, err = f.service.Cancel(ctx, "owner-1", false, created.ID)
	assert.ErrorIs(t, err, core.ErrConflict)
	_, err = f.service.Confirm(ctx, "owner-1", false, created.ID)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestCancel_ConfirmedReservation(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "visitor-1", CreateReservationRequest{
		PropertyID: "prop-1",
		VisitDate:  tomorrow(),
	})
	require.NoError(t, err)

	_, err = f.service.Confirm(ctx, "owner-1", false, created.ID)
	require.NoError(t, err)

	// The visitor cancels a confirmed visit; the owner is told.
	cancelled, err := f.service.Cancel(ctx, "visitor-1", false, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, "owner-1", last.to)
}

func TestNotificationFailureIsNotFatal(t *testing.T) {
	f := newReservationFixture(t)
	f.notifier.sendErr = errors.New("messaging down")

	resp, err := f.service.Create(context.Background(), "visitor-1",
		CreateReservationRequest{
			PropertyID: "prop-1",
			VisitDate:  tomorrow(),
		})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, resp.Status)
}

func TestGet_Visibility(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "visitor-1", CreateReservationRequest{
		PropertyID: "prop-1",
		VisitDate:  tomorrow(),
	})
	require.NoError(t, err)

	_, err = f.service.Get(ctx, "visitor-1", false, created.ID)
	assert.NoError(t, err)

	_, err = f.service.Get(ctx, "owner-1", false, created.ID)
	assert.NoError(t, err)

	_, err = f.service.Get(ctx, "stranger", false, created.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = f.service.Get(ctx, "stranger", true, created.ID)
	assert.NoError(t, err, "admins see everything")
}

func TestListMineAndForOwner(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "visitor-1", CreateReservationRequest{
		PropertyID: "prop-1",
		VisitDate:  tomorrow(),
	})
	require.NoError(t, err)

	mine, total, err := f.service.ListMine(ctx, "visitor-1", ListReservationsParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	owned, total, err := f.service.ListForOwner(
		ctx,
		"owner-1",
		ListReservationsParams{},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, owned, 1)

	_, err = f.service.Cancel(ctx, "visitor-1", false, created.ID)
	require.NoError(t, err)

	pending, _, err := f.service.ListMine(ctx, "visitor-1", ListReservationsParams{
		Status: StatusPending,
	})
	require.NoError(t, err)
	assert.Empty(t, pending)
}
