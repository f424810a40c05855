package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/evora/ticketing/internal/model"
)

// In-memory implementations of the three stores, each guarded by a
// mutex so every operation has the same atomicity as one database
// transaction.  They back the test suites and local development without
// a MySQL instance.

// MemorySeatStore is the in-memory InventoryStore.
type MemorySeatStore struct {
	mu    sync.Mutex
	seats map[uint64]*model.Seat
}

// NewMemorySeatStore returns an empty MemorySeatStore.
func NewMemorySeatStore() *MemorySeatStore {
	return &MemorySeatStore{seats: make(map[uint64]*model.Seat)}
}

// AddSeat seeds one seat row.  Seeding helper; not part of InventoryStore.
func (s *MemorySeatStore) AddSeat(seat model.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seat.Status == "" {
		seat.Status = model.SeatStatusAvailable
	}
	row := seat
	s.seats[seat.ID] = &row
}

// Seat returns a copy of the seat row and whether it exists.
func (s *MemorySeatStore) Seat(id uint64) (model.Seat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[id]
	if !ok {
		return model.Seat{}, false
	}
	return *seat, true
}

func (s *MemorySeatStore) Reserve(ctx context.Context, showID uint64, seatIDs []uint64, reservationID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var conflicting []uint64
	for _, id := range seatIDs {
		seat, ok := s.seats[id]
		if !ok || seat.ShowID != showID || seat.Status != model.SeatStatusAvailable {
			conflicting = append(conflicting, id)
		}
	}
	if len(conflicting) > 0 {
		return &SeatUnavailableError{ConflictingSeatIDs: conflicting}
	}

	expiresAt := time.Now().UTC().Add(ttl)
	for _, id := range seatIDs {
		seat := s.seats[id]
		rid := reservationID
		exp := expiresAt
		seat.Status = model.SeatStatusHeld
		seat.HoldReservationID = &rid
		seat.HoldExpiresAt = &exp
		seat.BookingID = nil
	}
	return nil
}

func (s *MemorySeatStore) Confirm(ctx context.Context, reservationID string, seatIDs []uint64, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range seatIDs {
		seat, ok := s.seats[id]
		if !ok || seat.Status != model.SeatStatusHeld ||
			seat.HoldReservationID == nil || *seat.HoldReservationID != reservationID {
			return ErrSeatOwnershipMismatch
		}
	}
	for _, id := range seatIDs {
		seat := s.seats[id]
		bid := bookingID
		seat.Status = model.SeatStatusBooked
		seat.BookingID = &bid
		seat.HoldReservationID = nil
		seat.HoldExpiresAt = nil
	}
	return nil
}

func (s *MemorySeatStore) Release(ctx context.Context, reservationID string, seatIDs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range seatIDs {
		seat, ok := s.seats[id]
		if !ok || seat.Status != model.SeatStatusHeld ||
			seat.HoldReservationID == nil || *seat.HoldReservationID != reservationID {
			continue
		}
		seat.Status = model.SeatStatusAvailable
		seat.HoldReservationID = nil
		seat.HoldExpiresAt = nil
	}
	return nil
}

func (s *MemorySeatStore) SeatsByShow(ctx context.Context, showID uint64) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seats []model.Seat
	for _, seat := range s.seats {
		if seat.ShowID == showID {
			seats = append(seats, *seat)
		}
	}
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].SectionID != seats[j].SectionID {
			return seats[i].SectionID < seats[j].SectionID
		}
		if seats[i].RowLabel != seats[j].RowLabel {
			return seats[i].RowLabel < seats[j].RowLabel
		}
		return seats[i].SeatNumber < seats[j].SeatNumber
	})
	return seats, nil
}

func (s *MemorySeatStore) PricesBySeatIDs(ctx context.Context, seatIDs []uint64) (map[uint64]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices := make(map[uint64]uint32, len(seatIDs))
	for _, id := range seatIDs {
		if seat, ok := s.seats[id]; ok {
			prices[id] = seat.PriceCents
		}
	}
	return prices, nil
}

// MemoryReservationStore is the in-memory ReservationStore.  The
// conditional transitions run under the mutex, giving the same
// compare-and-set semantics as the SQL WHERE-clause guards.
type MemoryReservationStore struct {
	mu           sync.Mutex
	reservations map[string]*model.Reservation
}

// NewMemoryReservationStore returns an empty MemoryReservationStore.
func NewMemoryReservationStore() *MemoryReservationStore {
	return &MemoryReservationStore{reservations: make(map[string]*model.Reservation)}
}

func (s *MemoryReservationStore) Create(ctx context.Context, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reservations[res.ID]; exists {
		return errors.New("reservation already exists")
	}
	row := *res
	row.SeatIDs = append([]uint64(nil), res.SeatIDs...)
	s.reservations[res.ID] = &row
	return nil
}

func (s *MemoryReservationStore) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	out := *res
	out.SeatIDs = append([]uint64(nil), res.SeatIDs...)
	return &out, nil
}

func (s *MemoryReservationStore) Transition(ctx context.Context, id, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok || res.Status != from {
		return false, nil
	}
	res.Status = to
	return true, nil
}

func (s *MemoryReservationStore) Confirm(ctx context.Context, id, paymentRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok || res.Status != model.ReservationStatusPending {
		return false, nil
	}
	ref := paymentRef
	res.Status = model.ReservationStatusConfirmed
	res.PaymentRef = &ref
	return true, nil
}

func (s *MemoryReservationStore) Extend(ctx context.Context, id string, newExpiresAt, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok || res.Status != model.ReservationStatusPending {
		return false, nil
	}
	if !res.ExpiresAt.After(now) || !newExpiresAt.After(res.ExpiresAt) {
		return false, nil
	}
	res.ExpiresAt = newExpiresAt
	return true, nil
}

func (s *MemoryReservationStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []model.Reservation
	for _, res := range s.reservations {
		if res.Status == model.ReservationStatusPending && res.ExpiresAt.Before(now) {
			out := *res
			out.SeatIDs = append([]uint64(nil), res.SeatIDs...)
			expired = append(expired, out)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

// MemoryBookingStore is the in-memory BookingStore.  Uniqueness per
// reservation is enforced the same way the SQL schema does with its
// unique key on reservation_id.
type MemoryBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking // keyed by reservation ID
}

// NewMemoryBookingStore returns an empty MemoryBookingStore.
func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{bookings: make(map[string]*model.Booking)}
}

func (s *MemoryBookingStore) Create(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bookings[b.ReservationID]; exists {
		return errors.New("booking already exists for reservation")
	}
	row := *b
	row.SeatIDs = append([]uint64(nil), b.SeatIDs...)
	s.bookings[b.ReservationID] = &row
	return nil
}

func (s *MemoryBookingStore) GetByReservationID(ctx context.Context, reservationID string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[reservationID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	out := *b
	out.SeatIDs = append([]uint64(nil), b.SeatIDs...)
	return &out, nil
}
