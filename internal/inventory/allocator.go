// Package inventory decides which physical units can serve a booking.
//
// Availability is interval based: every unit carries a calendar of
// reservations over half-open intervals [start, end), and a unit can serve a
// new booking when no active reservation overlaps the requested interval and
// no scheduled maintenance falls inside it.
package inventory

import (
	"sort"
	"time"

	"gearhire-backend/internal/domain"
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Calendar groups reservations by unit id.
func Calendar(reservations []domain.Reservation) map[int32][]domain.Reservation {
	cal := make(map[int32][]domain.Reservation)
	for _, r := range reservations {
		if r.Status != domain.ReservationActive {
			continue
		}
		cal[r.UnitID] = append(cal[r.UnitID], r)
	}
	return cal
}

// Eligible reports whether unit can be booked for [start, end) given its
// active reservations.
//
// A unit that is off the shelf without any active reservation has been pulled
// from service and is never eligible.
func Eligible(unit domain.InventoryUnit, reservations []domain.Reservation, start, end time.Time) bool {
	active := 0
	for i := range reservations {
		r := &reservations[i]
		if r.Status != domain.ReservationActive {
			continue
		}
		active++
		if r.Overlaps(start, end) {
			return false
		}
	}
	if !unit.IsAvailable && active == 0 {
		return false
	}
	if unit.NextMaintenanceAt != nil {
		m := *unit.NextMaintenanceAt
		if !m.Before(start) && m.Before(end) {
			return false
		}
	}
	return true
}

// EligibleUnits returns the units free for [start, end), best first: by
// condition (excellent before poor), then by serial number.
func EligibleUnits(units []domain.InventoryUnit, reservations []domain.Reservation, start, end time.Time) []domain.InventoryUnit {
	cal := Calendar(reservations)
	out := make([]domain.InventoryUnit, 0, len(units))
	for _, u := range units {
		if Eligible(u, cal[u.ID], start, end) {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Condition.Rank(), out[j].Condition.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].SerialNumber < out[j].SerialNumber
	})
	return out
}

// CountAvailable returns how many units could be booked for [start, end).
func CountAvailable(units []domain.InventoryUnit, reservations []domain.Reservation, start, end time.Time) int {
	return len(EligibleUnits(units, reservations, start, end))
}

// Allocate picks quantity units of productID for [start, end). It fails with
// InsufficientInventoryError when fewer units are free.
func Allocate(productID int32, units []domain.InventoryUnit, reservations []domain.Reservation, start, end time.Time, quantity int) ([]domain.InventoryUnit, error) {
	if quantity < 1 {
		return nil, domain.NewValidationError("quantity must be at least 1").WithField("quantity", "must be at least 1")
	}
	if !end.After(start) {
		return nil, domain.NewValidationError("rental end must be after rental start").WithField("rentalEnd", "must be after rentalStart")
	}

	free := EligibleUnits(units, reservations, start, end)
	if len(free) < quantity {
		return nil, &domain.InsufficientInventoryError{
			ProductID: productID,
			Requested: quantity,
			Available: len(free),
		}
	}
	return free[:quantity], nil
}
