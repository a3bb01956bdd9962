package domain

import "time"

type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "active"
	ReservationReleased ReservationStatus = "released"
)

// Reservation books one inventory unit for the half-open interval [Start, End).
type Reservation struct {
	ID          int32             `json:"id"`
	UnitID      int32             `json:"unitId"`
	OrderID     int32             `json:"orderId"`
	OrderItemID int32             `json:"orderItemId"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Status      ReservationStatus `json:"status"`
}

// Overlaps reports whether the reservation blocks [start, end).
// Released reservations never block.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	if r.Status != ReservationActive {
		return false
	}
	return r.Start.Before(end) && start.Before(r.End)
}
