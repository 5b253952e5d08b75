package models

import "time"

// BorrowingStatus enumerates loan lifecycle states.
type BorrowingStatus string

const (
	BorrowingStatusBorrowed BorrowingStatus = "Borrowed"
	BorrowingStatusOverdue  BorrowingStatus = "Overdue"
	BorrowingStatusReturned BorrowingStatus = "Returned"
)

// Borrowing represents a single loan of one copy to one student.
type Borrowing struct {
	ID               string          `db:"id" json:"id"`
	BookID           string          `db:"book_id" json:"book_id"`
	StudentID        string          `db:"student_id" json:"student_id"`
	BorrowingDate    time.Time       `db:"borrowing_date" json:"borrowing_date"`
	DueDate          time.Time       `db:"due_date" json:"due_date"`
	ReturnDate       *time.Time      `db:"return_date" json:"return_date,omitempty"`
	LendingCondition string          `db:"lending_condition" json:"lending_condition"`
	ReturnCondition  *string         `db:"return_condition" json:"return_condition,omitempty"`
	Status           BorrowingStatus `db:"status" json:"status"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Active reports whether the loan still holds a copy.
func (b *Borrowing) Active() bool {
	return b.Status == BorrowingStatusBorrowed || b.Status == BorrowingStatusOverdue
}

// BorrowingDetail joins loan rows with book and student display fields.
type BorrowingDetail struct {
	Borrowing
	BookTitle   string `db:"book_title" json:"book_title"`
	StudentName string `db:"student_name" json:"student_name"`
}

// BorrowingFilter encapsulates allowed search parameters for listing loans.
type BorrowingFilter struct {
	BookID    string
	StudentID string
	Status    BorrowingStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
