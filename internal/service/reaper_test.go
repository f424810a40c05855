package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evora/ticketing/internal/model"
	"github.com/evora/ticketing/internal/repository"
)

func TestSweepReclaimsLapsedHolds(t *testing.T) {
	seats := newSeatStore(t, 1, 2)
	reservations := repository.NewMemoryReservationStore()
	manager := NewReservationManager(seats, reservations, 10*time.Minute)
	reaper := NewReaper(seats, reservations, time.Second, 100)
	ctx := context.Background()

	res, err := manager.Create(ctx, 1, []uint64{1, 2})
	require.NoError(t, err)

	// Before the deadline nothing is touched.
	reclaimed, err := reaper.Sweep(ctx, res.ExpiresAt.Add(-time.Second))
	require.NoError(t, err)
	assert.Zero(t, reclaimed)

	reclaimed, err = reaper.Sweep(ctx, res.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	got, err := reservations.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusExpired, got.Status)
	for _, sid := range []uint64{1, 2} {
		seat, _ := seats.Seat(sid)
		assert.Equal(t, model.SeatStatusAvailable, seat.Status)
		assert.Nil(t, seat.HoldReservationID)
	}

	// The reclaimed seats are immediately reservable again.
	_, err = manager.Create(ctx, 1, []uint64{1, 2})
	require.NoError(t, err)
}

func TestSweepSkipsConfirmedReservations(t *testing.T) {
	seats := newSeatStore(t, 1, 1)
	reservations := repository.NewMemoryReservationStore()
	manager := NewReservationManager(seats, reservations, 10*time.Minute)
	reaper := NewReaper(seats, reservations, time.Second, 100)
	ctx := context.Background()

	res, err := manager.Create(ctx, 1, []uint64{1})
	require.NoError(t, err)
	won, err := reservations.Confirm(ctx, res.ID, "pay_123")
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, seats.Confirm(ctx, res.ID, res.SeatIDs, "booking-1"))

	reclaimed, err := reaper.Sweep(ctx, res.ExpiresAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, reclaimed)

	// The booked seat is untouched.
	seat, _ := seats.Seat(1)
	assert.Equal(t, model.SeatStatusBooked, seat.Status)
}

func TestSweepHonoursBatchSize(t *testing.T) {
	seats := newSeatStore(t, 1, 5)
	reservations := repository.NewMemoryReservationStore()
	manager := NewReservationManager(seats, reservations, time.Minute)
	reaper := NewReaper(seats, reservations, time.Second, 2)
	ctx := context.Background()

	var deadline time.Time
	for i := uint64(1); i <= 5; i++ {
		res, err := manager.Create(ctx, 1, []uint64{i})
		require.NoError(t, err)
		deadline = res.ExpiresAt
	}

	after := deadline.Add(time.Second)
	reclaimed, err := reaper.Sweep(ctx, after)
	require.NoError(t, err)
	assert.Equal(t, 2, reclaimed)

	// Later sweeps drain the rest.
	total := reclaimed
	for total < 5 {
		n, err := reaper.Sweep(ctx, after)
		require.NoError(t, err)
		require.Positive(t, n)
		total += n
	}
	assert.Equal(t, 5, total)
}

// Concurrent sweepers reclaim each lapsed reservation exactly once.
func TestSweepConcurrentInstances(t *testing.T) {
	seats := repository.NewMemorySeatStore()
	reservations := repository.NewMemoryReservationStore()
	ctx := context.Background()
	now := time.Now().UTC()

	const lapsed = 20
	for i := 1; i <= lapsed; i++ {
		sid := uint64(i)
		rid := fmt.Sprintf("res-%d", i)
		seats.AddSeat(model.Seat{ID: sid, ShowID: 1, SectionID: 1, RowLabel: "A", SeatNumber: uint32(i), PriceCents: 2500})
		require.NoError(t, seats.Reserve(ctx, 1, []uint64{sid}, rid, time.Minute))
		require.NoError(t, reservations.Create(ctx, &model.Reservation{
			ID:        rid,
			ShowID:    1,
			SeatIDs:   []uint64{sid},
			Status:    model.ReservationStatusPending,
			CreatedAt: now.Add(-20 * time.Minute),
			ExpiresAt: now.Add(-10 * time.Minute),
		}))
	}

	const sweepers = 4
	var wg sync.WaitGroup
	counts := make(chan int, sweepers)
	for i := 0; i < sweepers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reaper := NewReaper(seats, reservations, time.Second, lapsed)
			n, err := reaper.Sweep(ctx, now)
			assert.NoError(t, err)
			counts <- n
		}()
	}
	wg.Wait()
	close(counts)

	total := 0
	for n := range counts {
		total += n
	}
	assert.Equal(t, lapsed, total)

	for i := 1; i <= lapsed; i++ {
		seat, _ := seats.Seat(uint64(i))
		assert.Equal(t, model.SeatStatusAvailable, seat.Status)
	}
}
