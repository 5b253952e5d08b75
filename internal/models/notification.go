package models

import "time"

// Notification categories emitted by the circulation core.
const (
	NotificationCategoryBan         = "ban"
	NotificationCategoryDueDate     = "due_date"
	NotificationCategoryOverdue     = "overdue"
	NotificationCategoryReservation = "reservation"
	NotificationCategoryBorrowing   = "borrowing"
)

// Notification is a fire-and-forget message for a student. Nothing
// references notifications; failing to create one never fails the
// operation that emitted it.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Message   string    `db:"message" json:"message"`
	Category  string    `db:"category" json:"category"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NotificationFilter encapsulates search parameters for listing notifications.
type NotificationFilter struct {
	StudentID string
	Read      *bool
	Page      int
	PageSize  int
}
