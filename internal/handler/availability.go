package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evora/ticketing/internal/repository"
)

// AvailabilityHandler serves the read-only seat status view consumed by
// the seat-map renderer.  It never writes: availability is advisory and
// the authoritative check happens inside the reserve transaction.
type AvailabilityHandler struct {
	Inventory repository.InventoryStore
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(inventory repository.InventoryStore) *AvailabilityHandler {
	if inventory == nil {
		panic("nil inventory passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Inventory: inventory}
}

// seatView is the wire shape of one seat in the availability listing.
// Hold ownership is internal and never exposed; the renderer only needs
// the status and, for HELD seats, when the hold lapses.
type seatView struct {
	SeatID        uint64  `json:"seat_id"`
	SectionID     uint64  `json:"section_id"`
	RowLabel      string  `json:"row_label"`
	SeatNumber    uint32  `json:"seat_number"`
	Status        string  `json:"status"`
	PriceCents    uint32  `json:"price_cents"`
	HoldExpiresAt *string `json:"hold_expires_at,omitempty"`
}

// ListShowSeats handles GET /v1/shows/:id/seats.
func (h *AvailabilityHandler) ListShowSeats(c echo.Context) error {
	showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	seats, err := h.Inventory.SeatsByShow(c.Request().Context(), showID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}

	views := make([]seatView, 0, len(seats))
	for _, s := range seats {
		v := seatView{
			SeatID:     s.ID,
			SectionID:  s.SectionID,
			RowLabel:   s.RowLabel,
			SeatNumber: s.SeatNumber,
			Status:     s.Status,
			PriceCents: s.PriceCents,
		}
		if s.HoldExpiresAt != nil {
			formatted := s.HoldExpiresAt.UTC().Format(time.RFC3339)
			v.HoldExpiresAt = &formatted
		}
		views = append(views, v)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"show_id": showID,
		"seats":   views,
	})
}
