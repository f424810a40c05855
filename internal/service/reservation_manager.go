// Package service implements the reservation lifecycle: creating and
// extending time-limited holds, converting paid holds into permanent
// bookings, and reclaiming abandoned holds.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/evora/ticketing/internal/model"
	"github.com/evora/ticketing/internal/repository"
)

// DefaultHoldTTL is how long a new reservation holds its seats before
// the reaper may reclaim them.
const DefaultHoldTTL = 600 * time.Second

// ErrNoSeatsRequested is returned when a reservation is requested with
// an empty seat set.
var ErrNoSeatsRequested = errors.New("no seats requested")

// ReservationManager owns the reservation lifecycle and the TTL policy.
// It is the only caller of the inventory store's Reserve and Release
// (the confirmation service owns Confirm).
type ReservationManager struct {
	inventory    repository.InventoryStore
	reservations repository.ReservationStore
	holdTTL      time.Duration
	now          func() time.Time
}

// NewReservationManager constructs a manager over the given stores.  A
// non-positive ttl selects DefaultHoldTTL.
func NewReservationManager(inventory repository.InventoryStore, reservations repository.ReservationStore, ttl time.Duration) *ReservationManager {
	if inventory == nil || reservations == nil {
		panic("nil store passed to NewReservationManager")
	}
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return &ReservationManager{
		inventory:    inventory,
		reservations: reservations,
		holdTTL:      ttl,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create holds the requested seats and persists a PENDING reservation
// that owns them.  Duplicate seat IDs are collapsed.  On
// *SeatUnavailableError no reservation row is created and no seat is
// modified.  If persisting the reservation fails after the seats were
// held, the holds are released again so no seat is left owned by a
// reservation that does not exist.
func (m *ReservationManager) Create(ctx context.Context, showID uint64, seatIDs []uint64) (*model.Reservation, error) {
	unique := make([]uint64, 0, len(seatIDs))
	seen := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, ErrNoSeatsRequested
	}

	id := uuid.NewString()
	now := m.now()
	if err := m.inventory.Reserve(ctx, showID, unique, id, m.holdTTL); err != nil {
		return nil, err
	}

	res := &model.Reservation{
		ID:        id,
		ShowID:    showID,
		SeatIDs:   unique,
		Status:    model.ReservationStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(m.holdTTL),
	}
	if err := m.reservations.Create(ctx, res); err != nil {
		if relErr := m.inventory.Release(ctx, id, unique); relErr != nil {
			log.Printf("reservation: failed to release seats after create error: reservation=%s: %v", id, relErr)
		}
		return nil, err
	}
	return res, nil
}

// Extend moves a PENDING reservation's deadline forward, typically to
// grant extra time while a payment is processing.  Reservations that
// have expired or reached a terminal state are refused with
// ErrReservationNotPending; an unknown ID yields
// ErrReservationNotFound.
func (m *ReservationManager) Extend(ctx context.Context, reservationID string, newExpiresAt time.Time) error {
	ok, err := m.reservations.Extend(ctx, reservationID, newExpiresAt.UTC(), m.now())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	// Distinguish the missing reservation from one in the wrong state.
	if _, err := m.reservations.GetByID(ctx, reservationID); err != nil {
		return err
	}
	return repository.ErrReservationNotPending
}

// Cancel transitions a PENDING reservation to CANCELLED and releases
// its seats.  Cancelling an already-cancelled reservation succeeds
// without effect; any other terminal state is refused with
// ErrReservationNotPending.
func (m *ReservationManager) Cancel(ctx context.Context, reservationID string) error {
	res, err := m.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}
	ok, err := m.reservations.Transition(ctx, reservationID, model.ReservationStatusPending, model.ReservationStatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		// Lost the transition: repeated cancellation is a success,
		// anything else is a lifecycle conflict.
		current, err := m.reservations.GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if current.Status == model.ReservationStatusCancelled {
			return nil
		}
		return repository.ErrReservationNotPending
	}
	if err := m.inventory.Release(ctx, reservationID, res.SeatIDs); err != nil {
		log.Printf("reservation: release after cancel failed: reservation=%s: %v", reservationID, err)
		return err
	}
	return nil
}

// Get loads a reservation with its seat set.
func (m *ReservationManager) Get(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return m.reservations.GetByID(ctx, reservationID)
}
