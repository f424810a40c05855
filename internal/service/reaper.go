package service

import (
	"context"
	"log"
	"time"

	"github.com/evora/ticketing/internal/model"
	"github.com/evora/ticketing/internal/repository"
)

// Reaper reclaims seats held by reservations whose deadline passed
// without confirmation.  Any number of reaper instances may sweep
// concurrently: the conditional PENDING -> EXPIRED transition is the
// mutual-exclusion mechanism, so each lapsed reservation is reclaimed
// by exactly one instance and a reservation that a concurrent
// confirmation wins is silently skipped.
type Reaper struct {
	inventory    repository.InventoryStore
	reservations repository.ReservationStore
	interval     time.Duration
	batchSize    int
}

// NewReaper constructs a reaper sweeping every interval, reclaiming at
// most batchSize reservations per sweep.
func NewReaper(inventory repository.InventoryStore, reservations repository.ReservationStore, interval time.Duration, batchSize int) *Reaper {
	if inventory == nil || reservations == nil {
		panic("nil store passed to NewReaper")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reaper{
		inventory:    inventory,
		reservations: reservations,
		interval:     interval,
		batchSize:    batchSize,
	}
}

// Sweep expires every lapsed PENDING reservation it can win the status
// transition for and releases its seats, returning the number of
// reservations reclaimed.  Losing a transition is not an error; the
// reservation was confirmed or cancelled concurrently and keeps or
// frees its seats through that path.
func (r *Reaper) Sweep(ctx context.Context, now time.Time) (int, error) {
	lapsed, err := r.reservations.FindExpired(ctx, now, r.batchSize)
	if err != nil {
		return 0, err
	}
	reclaimed := 0
	for _, res := range lapsed {
		won, err := r.reservations.Transition(ctx, res.ID, model.ReservationStatusPending, model.ReservationStatusExpired)
		if err != nil {
			log.Printf("reaper: expire transition failed: reservation=%s: %v", res.ID, err)
			continue
		}
		if !won {
			continue
		}
		if err := r.inventory.Release(ctx, res.ID, res.SeatIDs); err != nil {
			// The reservation is already EXPIRED; a later sweep cannot
			// retry the release, so this needs operator attention.
			log.Printf("reaper: seat release failed after expiry: reservation=%s seats=%v: %v", res.ID, res.SeatIDs, err)
			continue
		}
		reclaimed++
	}
	return reclaimed, nil
}

// Run sweeps on a fixed interval until the context is cancelled.  It is
// intended to run as a background goroutine next to the HTTP server or
// as a standalone worker process.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	log.Printf("reaper: sweeping every %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("reaper: stopped")
			return
		case <-ticker.C:
			count, err := r.Sweep(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("reaper: sweep failed: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("reaper: reclaimed %d expired reservations", count)
			}
		}
	}
}
