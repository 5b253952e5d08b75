package models

import "time"

// BookLendingRights overrides the category lending policy for one title.
// At most one row exists per book.
type BookLendingRights struct {
	ID                    string    `db:"id" json:"id"`
	BookID                string    `db:"book_id" json:"book_id"`
	LoanDurationDays      int       `db:"loan_duration_days" json:"loan_duration_days"`
	LoanExtensionAllowed  bool      `db:"loan_extension_allowed" json:"loan_extension_allowed"`
	ExtensionLimit        int       `db:"extension_limit" json:"extension_limit"`
	ExtensionDurationDays int       `db:"extension_duration_days" json:"extension_duration_days"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// LendingPolicy is the resolved set of loan terms applied to one
// (book, student) pair at a single point in time.
type LendingPolicy struct {
	LoanDurationDays      int  `json:"loan_duration_days"`
	LoanExtensionAllowed  bool `json:"loan_extension_allowed"`
	ExtensionLimit        int  `json:"extension_limit"`
	ExtensionDurationDays int  `json:"extension_duration_days"`
}

// DefaultLendingPolicy is the terminal fallback when neither a book
// override nor a student category supplies loan terms.
func DefaultLendingPolicy() LendingPolicy {
	return LendingPolicy{
		LoanDurationDays:      14,
		LoanExtensionAllowed:  true,
		ExtensionLimit:        1,
		ExtensionDurationDays: 7,
	}
}
