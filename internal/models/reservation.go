package models

import "time"

// ReservationStatus enumerates reservation lifecycle states.
type ReservationStatus string

const (
	ReservationStatusHeld           ReservationStatus = "Held"
	ReservationStatusAwaitingPickup ReservationStatus = "Awaiting Pickup"
	ReservationStatusCancelled      ReservationStatus = "Cancelled"
)

// ValidReservationStatus reports whether s is a known status value.
func ValidReservationStatus(s ReservationStatus) bool {
	switch s {
	case ReservationStatusHeld, ReservationStatusAwaitingPickup, ReservationStatusCancelled:
		return true
	}
	return false
}

// Reservation represents a student's place in a title's pickup queue.
// AvailableDate and PickupDeadline are set when the reservation enters
// Awaiting Pickup and are only moved afterwards by an explicit extension.
type Reservation struct {
	ID              string            `db:"id" json:"id"`
	StudentID       string            `db:"student_id" json:"student_id"`
	BookID          string            `db:"book_id" json:"book_id"`
	ReservationDate time.Time         `db:"reservation_date" json:"reservation_date"`
	Status          ReservationStatus `db:"status" json:"status"`
	AvailableDate   *time.Time        `db:"available_date" json:"available_date,omitempty"`
	PickupDeadline  *time.Time        `db:"pickup_deadline" json:"pickup_deadline,omitempty"`
	DaysUntilExpiry int               `db:"days_until_expiry" json:"days_until_expiry"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// ReservationDetail joins reservation rows with display fields.
type ReservationDetail struct {
	Reservation
	BookTitle   string `db:"book_title" json:"book_title"`
	StudentName string `db:"student_name" json:"student_name"`
}

// ReservationFilter encapsulates allowed search parameters for listing reservations.
type ReservationFilter struct {
	BookID    string
	StudentID string
	Status    ReservationStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
