package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evora/ticketing/internal/model"
	"github.com/evora/ticketing/internal/repository"
)

func newSeatStore(t *testing.T, showID uint64, n int) *repository.MemorySeatStore {
	t.Helper()
	store := repository.NewMemorySeatStore()
	for i := 1; i <= n; i++ {
		store.AddSeat(model.Seat{
			ID:         uint64(i),
			ShowID:     showID,
			SectionID:  1,
			RowLabel:   "A",
			SeatNumber: uint32(i),
			PriceCents: 2500,
		})
	}
	return store
}

func TestCreateHoldsSeats(t *testing.T) {
	seats := newSeatStore(t, 1, 4)
	reservations := repository.NewMemoryReservationStore()
	manager := NewReservationManager(seats, reservations, 10*time.Minute)
	ctx := context.Background()

	res, err := manager.Create(ctx, 1, []uint64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusPending, res.Status)
	assert.Equal(t, []uint64{1, 2}, res.SeatIDs)
	assert.True(t, res.ExpiresAt.After(res.CreatedAt))

	for _, sid := range res.SeatIDs {
		seat, ok := seats.Seat(sid)
		require.True(t, ok)
		assert.Equal(t, model.SeatStatusHeld, seat.Status)
		require.NotNil(t, seat.HoldReservationID)
		assert.Equal(t, res.ID, *seat.HoldReservationID)
	}

	// A second buyer asking for an overlapping set is refused with the
	// exact conflicting seats, and untouched seats stay available.
	_, err = manager.Create(ctx, 1, []uint64{2, 3})
	var unavailable *repository.SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []uint64{2}, unavailable.ConflictingSeatIDs)
	seat, _ := seats.Seat(3)
	assert.Equal(t, model.SeatStatusAvailable, seat.Status)
}

func TestCreateCollapsesDuplicateSeatIDs(t *testing.T) {
	seats := newSeatStore(t, 1, 2)
	manager := NewReservationManager(seats, repository.NewMemoryReservationStore(), 0)

	res, err := manager.Create(context.Background(), 1, []uint64{1, 1, 2, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, res.SeatIDs)
}

func TestCreateRejectsEmptySeatSet(t *testing.T) {
	seats := newSeatStore(t, 1, 1)
	manager := NewReservationManager(seats, repository.NewMemoryReservationStore(), 0)

	_, err := manager.Create(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrNoSeatsRequested)
	_, err = manager.Create(context.Background(), 1, []uint64{0})
	assert.ErrorIs(t, err, ErrNoSeatsRequested)
}

// failingReservationStore rejects Create to exercise the compensating
// seat release.
type failingReservationStore struct {
	*repository.MemoryReservationStore
}

func (f *failingReservationStore) Create(ctx context.Context, res *model.Reservation) error {
	return errors.New("insert failed")
}

func TestCreateReleasesSeatsWhenPersistFails(t *testing.T) {
	seats := newSeatStore(t, 1, 2)
	store := &failingReservationStore{repository.NewMemoryReservationStore()}
	manager := NewReservationManager(seats, store, 10*time.Minute)

	_, err := manager.Create(context.Background(), 1, []uint64{1, 2})
	require.Error(t, err)

	// The holds taken before the failed insert must be rolled back.
	for _, sid := range []uint64{1, 2} {
		seat, _ := seats.Seat(sid)
		assert.Equal(t, model.SeatStatusAvailable, seat.Status)
		assert.Nil(t, seat.HoldReservationID)
	}
}

func TestExtendMovesDeadlineForwardOnly(t *testing.T) {
	seats := newSeatStore(t, 1, 1)
	reservations := repository.NewMemoryReservationStore()
	manager := NewReservationManager(seats, reservations, 10*time.Minute)
	ctx := context.Background()

	res, err := manager.Create(ctx, 1, []uint64{1})
	require.NoError(t, err)

	err = manager.Extend(ctx, res.ID, res.ExpiresAt.Add(5*time.Minute))
	require.NoError(t, err)
	got, err := manager.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(res.ExpiresAt.Add(5*time.Minute)))

	// Shrinking the deadline is refused.
	err = manager.Extend(ctx, res.ID, res.ExpiresAt.Add(-time.Minute))
	assert.ErrorIs(t, err, repository.ErrReservationNotPending)

	err = manager.Extend(ctx, "no-such-id", res.ExpiresAt.Add(time.Hour))
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
}

func TestExtendRefusesLapsedReservation(t *testing.T) {
	seats := newSeatStore(t, 1, 1)
	reservations := repository.NewMemoryReservationStore()
	manager := NewReservationManager(seats, reservations, 10*time.Minute)
	ctx := context.Background()

	now := time.Now().UTC()
	lapsed := &model.Reservation{
		ID:        "lapsed",
		ShowID:    1,
		SeatIDs:   []uint64{1},
		Status:    model.ReservationStatusPending,
		CreatedAt: now.Add(-20 * time.Minute),
		ExpiresAt: now.Add(-10 * time.Minute),
	}
	require.NoError(t, reservations.Create(ctx, lapsed))

	err := manager.Extend(ctx, "lapsed", now.Add(10*time.Minute))
	assert.ErrorIs(t, err, repository.ErrReservationNotPending)
}

func TestCancelReleasesSeatsAndIsIdempotent(t *testing.T) {
	seats := newSeatStore(t, 1, 2)
	reservations := repository.NewMemoryReservationStore()
	manager := NewReservationManager(seats, reservations, 10*time.Minute)
	ctx := context.Background()

	res, err := manager.Create(ctx, 1, []uint64{1, 2})
	require.NoError(t, err)

	require.NoError(t, manager.Cancel(ctx, res.ID))
	got, err := manager.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusCancelled, got.Status)
	for _, sid := range []uint64{1, 2} {
		seat, _ := seats.Seat(sid)
		assert.Equal(t, model.SeatStatusAvailable, seat.Status)
	}

	// Repeated cancellation succeeds without effect.
	require.NoError(t, manager.Cancel(ctx, res.ID))

	// The freed seats are immediately reservable by someone else.
	_, err = manager.Create(ctx, 1, []uint64{1, 2})
	require.NoError(t, err)
}

func TestCancelRefusesConfirmedReservation(t *testing.T) {
	seats := newSeatStore(t, 1, 1)
	reservations := repository.NewMemoryReservationStore()
	manager := NewReservationManager(seats, reservations, 10*time.Minute)
	ctx := context.Background()

	res, err := manager.Create(ctx, 1, []uint64{1})
	require.NoError(t, err)
	won, err := reservations.Confirm(ctx, res.ID, "pay_123")
	require.NoError(t, err)
	require.True(t, won)

	err = manager.Cancel(ctx, res.ID)
	assert.ErrorIs(t, err, repository.ErrReservationNotPending)

	err = manager.Cancel(ctx, "no-such-id")
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
}
