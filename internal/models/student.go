package models

import "time"

// Student represents a registered library patron.
type Student struct {
	ID          string     `db:"id" json:"id"`
	CardNumber  string     `db:"card_number" json:"card_number"`
	FullName    string     `db:"full_name" json:"full_name"`
	Email       string     `db:"email" json:"email"`
	CategoryID  *string    `db:"category_id" json:"category_id,omitempty"`
	Banned      bool       `db:"banned" json:"banned"`
	BannedUntil *time.Time `db:"banned_until" json:"banned_until,omitempty"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// BanLapsed reports whether a timed ban has expired.
// Banned with a nil BannedUntil means an indefinite ban.
func (s *Student) BanLapsed(now time.Time) bool {
	return s.Banned && s.BannedUntil != nil && s.BannedUntil.Before(now)
}

// StudentCategory groups patrons and carries the default lending policy.
type StudentCategory struct {
	ID                     string    `db:"id" json:"id"`
	Name                   string    `db:"name" json:"name"`
	BorrowingLimit         int       `db:"borrowing_limit" json:"borrowing_limit"`
	LoanDurationDays       int       `db:"loan_duration_days" json:"loan_duration_days"`
	LoanExtensionAllowed   bool      `db:"loan_extension_allowed" json:"loan_extension_allowed"`
	ExtensionLimit         int       `db:"extension_limit" json:"extension_limit"`
	ExtensionDurationDays  int       `db:"extension_duration_days" json:"extension_duration_days"`
	DefaultBanDurationDays int       `db:"default_ban_duration_days" json:"default_ban_duration_days"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail contains student information with its category populated.
type StudentDetail struct {
	Student
	CategoryName           *string `db:"category_name" json:"category_name,omitempty"`
	BorrowingLimit         *int    `db:"borrowing_limit" json:"borrowing_limit,omitempty"`
	LoanDurationDays       *int    `db:"loan_duration_days" json:"loan_duration_days,omitempty"`
	LoanExtensionAllowed   *bool   `db:"loan_extension_allowed" json:"loan_extension_allowed,omitempty"`
	ExtensionLimit         *int    `db:"extension_limit" json:"extension_limit,omitempty"`
	ExtensionDurationDays  *int    `db:"extension_duration_days" json:"extension_duration_days,omitempty"`
	DefaultBanDurationDays *int    `db:"default_ban_duration_days" json:"default_ban_duration_days,omitempty"`
}

// Category reconstructs the populated category, or nil when unset.
func (d *StudentDetail) Category() *StudentCategory {
	if d.CategoryID == nil || d.CategoryName == nil {
		return nil
	}
	cat := &StudentCategory{ID: *d.CategoryID, Name: *d.CategoryName}
	if d.BorrowingLimit != nil {
		cat.BorrowingLimit = *d.BorrowingLimit
	}
	if d.LoanDurationDays != nil {
		cat.LoanDurationDays = *d.LoanDurationDays
	}
	if d.LoanExtensionAllowed != nil {
		cat.LoanExtensionAllowed = *d.LoanExtensionAllowed
	}
	if d.ExtensionLimit != nil {
		cat.ExtensionLimit = *d.ExtensionLimit
	}
	if d.ExtensionDurationDays != nil {
		cat.ExtensionDurationDays = *d.ExtensionDurationDays
	}
	if d.DefaultBanDurationDays != nil {
		cat.DefaultBanDurationDays = *d.DefaultBanDurationDays
	}
	return cat
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	CategoryID string
	Banned     *bool
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
