package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evora/ticketing/internal/model"
)

func seedSeats(store *MemorySeatStore, showID uint64, n int) []uint64 {
	ids := make([]uint64, 0, n)
	for i := 1; i <= n; i++ {
		store.AddSeat(model.Seat{
			ID:         uint64(i),
			ShowID:     showID,
			SectionID:  1,
			RowLabel:   "A",
			SeatNumber: uint32(i),
			PriceCents: 2500,
		})
		ids = append(ids, uint64(i))
	}
	return ids
}

func TestReserveConflictReportsSeats(t *testing.T) {
	store := NewMemorySeatStore()
	seedSeats(store, 1, 3)
	ctx := context.Background()

	require.NoError(t, store.Reserve(ctx, 1, []uint64{1, 2}, "res-1", time.Minute))

	err := store.Reserve(ctx, 1, []uint64{2, 3}, "res-2", time.Minute)
	var unavailable *SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []uint64{2}, unavailable.ConflictingSeatIDs)

	// The failed call must not have touched seat 3.
	seat, ok := store.Seat(3)
	require.True(t, ok)
	assert.Equal(t, model.SeatStatusAvailable, seat.Status)
}

func TestReserveUnknownSeatIsConflicting(t *testing.T) {
	store := NewMemorySeatStore()
	seedSeats(store, 1, 1)

	err := store.Reserve(context.Background(), 1, []uint64{1, 99}, "res-1", time.Minute)
	var unavailable *SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []uint64{99}, unavailable.ConflictingSeatIDs)

	seat, _ := store.Seat(1)
	assert.Equal(t, model.SeatStatusAvailable, seat.Status)
}

// Overlapping concurrent reservations must never both win a seat: the
// union of all successful holds allocates each seat at most once.
func TestReserveConcurrentOverlap(t *testing.T) {
	store := NewMemorySeatStore()
	seatIDs := seedSeats(store, 1, 10)
	ctx := context.Background()

	const attempts = 100
	var wg sync.WaitGroup
	type result struct {
		reservationID string
		seats         []uint64
	}
	results := make(chan result, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each attempt targets a pair overlapping its neighbours.
			first := seatIDs[i%len(seatIDs)]
			second := seatIDs[(i+1)%len(seatIDs)]
			rid := fmt.Sprintf("res-%d", i)
			if err := store.Reserve(ctx, 1, []uint64{first, second}, rid, time.Minute); err == nil {
				results <- result{reservationID: rid, seats: []uint64{first, second}}
			}
		}(i)
	}
	wg.Wait()
	close(results)

	ownerBySeat := make(map[uint64]string)
	for r := range results {
		for _, sid := range r.seats {
			prev, taken := ownerBySeat[sid]
			assert.Falsef(t, taken, "seat %d allocated to both %s and %s", sid, prev, r.reservationID)
			ownerBySeat[sid] = r.reservationID
		}
	}

	// Every winner must actually own its seats in the store, and the
	// held+booked count can never exceed capacity.
	held := 0
	for _, sid := range seatIDs {
		seat, ok := store.Seat(sid)
		require.True(t, ok)
		if seat.Status == model.SeatStatusHeld {
			held++
			require.NotNil(t, seat.HoldReservationID)
			assert.Equal(t, ownerBySeat[sid], *seat.HoldReservationID)
		}
	}
	assert.LessOrEqual(t, held, len(seatIDs))
	assert.Equal(t, len(ownerBySeat), held)
}

func TestReleaseIsIdempotent(t *testing.T) {
	store := NewMemorySeatStore()
	seedSeats(store, 1, 2)
	ctx := context.Background()

	require.NoError(t, store.Reserve(ctx, 1, []uint64{1, 2}, "res-1", time.Minute))
	require.NoError(t, store.Release(ctx, "res-1", []uint64{1, 2}))
	// Releasing again, and releasing seats never held, is a no-op.
	require.NoError(t, store.Release(ctx, "res-1", []uint64{1, 2}))
	require.NoError(t, store.Release(ctx, "res-other", []uint64{1}))

	for _, sid := range []uint64{1, 2} {
		seat, _ := store.Seat(sid)
		assert.Equal(t, model.SeatStatusAvailable, seat.Status)
		assert.Nil(t, seat.HoldReservationID)
		assert.Nil(t, seat.HoldExpiresAt)
	}
}

func TestReleaseSkipsSeatsOwnedByOthers(t *testing.T) {
	store := NewMemorySeatStore()
	seedSeats(store, 1, 1)
	ctx := context.Background()

	require.NoError(t, store.Reserve(ctx, 1, []uint64{1}, "res-1", time.Minute))
	require.NoError(t, store.Release(ctx, "res-2", []uint64{1}))

	seat, _ := store.Seat(1)
	assert.Equal(t, model.SeatStatusHeld, seat.Status)
	require.NotNil(t, seat.HoldReservationID)
	assert.Equal(t, "res-1", *seat.HoldReservationID)
}

func TestConfirmRequiresMatchingHold(t *testing.T) {
	store := NewMemorySeatStore()
	seedSeats(store, 1, 2)
	ctx := context.Background()

	require.NoError(t, store.Reserve(ctx, 1, []uint64{1, 2}, "res-1", time.Minute))
	require.NoError(t, store.Release(ctx, "res-1", []uint64{1, 2}))
	require.NoError(t, store.Reserve(ctx, 1, []uint64{1, 2}, "res-2", time.Minute))

	err := store.Confirm(ctx, "res-1", []uint64{1, 2}, "booking-1")
	require.ErrorIs(t, err, ErrSeatOwnershipMismatch)

	// No partial mutation: both seats still belong to res-2.
	for _, sid := range []uint64{1, 2} {
		seat, _ := store.Seat(sid)
		assert.Equal(t, model.SeatStatusHeld, seat.Status)
		assert.Equal(t, "res-2", *seat.HoldReservationID)
	}
}

func TestConfirmMarksSeatsBooked(t *testing.T) {
	store := NewMemorySeatStore()
	seedSeats(store, 1, 2)
	ctx := context.Background()

	require.NoError(t, store.Reserve(ctx, 1, []uint64{1, 2}, "res-1", time.Minute))
	require.NoError(t, store.Confirm(ctx, "res-1", []uint64{1, 2}, "booking-1"))

	for _, sid := range []uint64{1, 2} {
		seat, _ := store.Seat(sid)
		assert.Equal(t, model.SeatStatusBooked, seat.Status)
		require.NotNil(t, seat.BookingID)
		assert.Equal(t, "booking-1", *seat.BookingID)
		assert.Nil(t, seat.HoldReservationID)
		assert.Nil(t, seat.HoldExpiresAt)
	}
}

func TestReservationTransitionIsConditional(t *testing.T) {
	store := NewMemoryReservationStore()
	ctx := context.Background()
	res := &model.Reservation{
		ID:        "res-1",
		ShowID:    1,
		SeatIDs:   []uint64{1},
		Status:    model.ReservationStatusPending,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}
	require.NoError(t, store.Create(ctx, res))

	won, err := store.Transition(ctx, "res-1", model.ReservationStatusPending, model.ReservationStatusExpired)
	require.NoError(t, err)
	assert.True(t, won)

	// Terminal states admit no further transitions.
	won, err = store.Transition(ctx, "res-1", model.ReservationStatusPending, model.ReservationStatusCancelled)
	require.NoError(t, err)
	assert.False(t, won)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestReservationExtendForwardOnly(t *testing.T) {
	store := NewMemoryReservationStore()
	ctx := context.Background()
	now := time.Now().UTC()
	res := &model.Reservation{
		ID:        "res-1",
		ShowID:    1,
		SeatIDs:   []uint64{1},
		Status:    model.ReservationStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
	require.NoError(t, store.Create(ctx, res))

	// Backwards extension is refused.
	ok, err := store.Extend(ctx, "res-1", now.Add(5*time.Minute), now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Extend(ctx, "res-1", now.Add(15*time.Minute), now)
	require.NoError(t, err)
	assert.True(t, ok)

	// A lapsed deadline cannot be revived even while still PENDING.
	lapsed := &model.Reservation{
		ID:        "res-2",
		ShowID:    1,
		SeatIDs:   []uint64{2},
		Status:    model.ReservationStatusPending,
		CreatedAt: now.Add(-20 * time.Minute),
		ExpiresAt: now.Add(-10 * time.Minute),
	}
	require.NoError(t, store.Create(ctx, lapsed))
	ok, err = store.Extend(ctx, "res-2", now.Add(10*time.Minute), now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBookingStoreUniquePerReservation(t *testing.T) {
	store := NewMemoryBookingStore()
	ctx := context.Background()

	b := &model.Booking{ID: "booking-1", ReservationID: "res-1", ShowID: 1, SeatIDs: []uint64{1}}
	require.NoError(t, store.Create(ctx, b))

	dup := &model.Booking{ID: "booking-2", ReservationID: "res-1", ShowID: 1, SeatIDs: []uint64{1}}
	err := store.Create(ctx, dup)
	require.Error(t, err)

	got, err := store.GetByReservationID(ctx, "res-1")
	require.NoError(t, err)
	assert.Equal(t, "booking-1", got.ID)

	_, err = store.GetByReservationID(ctx, "res-2")
	assert.True(t, errors.Is(err, ErrBookingNotFound))
}
