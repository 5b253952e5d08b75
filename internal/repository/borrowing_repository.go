package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/libris-api/internal/models"
)

// BorrowingRepository manages persistence for loan records.
type BorrowingRepository struct {
	db *sqlx.DB
}

// NewBorrowingRepository constructs a BorrowingRepository.
func NewBorrowingRepository(db *sqlx.DB) *BorrowingRepository {
	return &BorrowingRepository{db: db}
}

// List returns loans matching the provided filters.
func (r *BorrowingRepository) List(ctx context.Context, filter models.BorrowingFilter) ([]models.BorrowingDetail, int, error) {
	base := "FROM borrowings br JOIN books b ON b.id = br.book_id JOIN students s ON s.id = br.student_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.BookID != "" {
		conditions = append(conditions, fmt.Sprintf("br.book_id = $%d", len(args)+1))
		args = append(args, filter.BookID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("br.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("br.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"borrowing_date": "br.borrowing_date",
		"due_date":       "br.due_date",
		"created_at":     "br.created_at",
	}
	if sortBy == "" {
		sortBy = "borrowing_date"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "br.borrowing_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT br.id, br.book_id, br.student_id, br.borrowing_date, br.due_date, br.return_date, br.lending_condition, br.return_condition, br.status, br.created_at, br.updated_at,
        b.title AS book_title, s.full_name AS student_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var borrowings []models.BorrowingDetail
	if err := r.db.SelectContext(ctx, &borrowings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list borrowings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count borrowings: %w", err)
	}
	return borrowings, total, nil
}

// FindByID fetches a loan by ID.
func (r *BorrowingRepository) FindByID(ctx context.Context, id string) (*models.Borrowing, error) {
	const query = `SELECT id, book_id, student_id, borrowing_date, due_date, return_date, lending_condition, return_condition, status, created_at, updated_at
        FROM borrowings WHERE id = $1`
	var borrowing models.Borrowing
	if err := r.db.GetContext(ctx, &borrowing, query, id); err != nil {
		return nil, err
	}
	return &borrowing, nil
}

// Create inserts a new loan record.
func (r *BorrowingRepository) Create(ctx context.Context, borrowing *models.Borrowing) error {
	if borrowing.ID == "" {
		borrowing.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if borrowing.CreatedAt.IsZero() {
		borrowing.CreatedAt = now
	}
	borrowing.UpdatedAt = now
	const query = `INSERT INTO borrowings (id, book_id, student_id, borrowing_date, due_date, return_date, lending_condition, return_condition, status, created_at, updated_at)
        VALUES (:id, :book_id, :student_id, :borrowing_date, :due_date, :return_date, :lending_condition, :return_condition, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, borrowing); err != nil {
		return fmt.Errorf("create borrowing: %w", err)
	}
	return nil
}

// Update modifies an existing loan.
func (r *BorrowingRepository) Update(ctx context.Context, borrowing *models.Borrowing) error {
	borrowing.UpdatedAt = time.Now().UTC()
	const query = `UPDATE borrowings SET due_date = :due_date, return_date = :return_date, return_condition = :return_condition,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, borrowing); err != nil {
		return fmt.Errorf("update borrowing: %w", err)
	}
	return nil
}

// Delete removes a loan record.
func (r *BorrowingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM borrowings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete borrowing: %w", err)
	}
	return nil
}

// CountActiveByStudent counts a student's Borrowed and Overdue loans.
func (r *BorrowingRepository) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM borrowings WHERE student_id = $1 AND status IN ($2, $3)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, models.BorrowingStatusBorrowed, models.BorrowingStatusOverdue); err != nil {
		return 0, fmt.Errorf("count active borrowings: %w", err)
	}
	return count, nil
}

// CountOverdueByStudent counts a student's Overdue loans.
func (r *BorrowingRepository) CountOverdueByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM borrowings WHERE student_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, models.BorrowingStatusOverdue); err != nil {
		return 0, fmt.Errorf("count overdue borrowings: %w", err)
	}
	return count, nil
}

// ExistsActiveByStudentAndBook reports whether the student currently holds a
// copy of the book.
func (r *BorrowingRepository) ExistsActiveByStudentAndBook(ctx context.Context, studentID, bookID string) (bool, error) {
	const query = `SELECT 1 FROM borrowings WHERE student_id = $1 AND book_id = $2 AND status IN ($3, $4) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, bookID, models.BorrowingStatusBorrowed, models.BorrowingStatusOverdue); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active borrowing: %w", err)
	}
	return true, nil
}

// ListOverdueCandidates returns Borrowed loans whose due date has passed.
func (r *BorrowingRepository) ListOverdueCandidates(ctx context.Context, now time.Time) ([]models.Borrowing, error) {
	const query = `SELECT id, book_id, student_id, borrowing_date, due_date, return_date, lending_condition, return_condition, status, created_at, updated_at
        FROM borrowings WHERE status = $1 AND due_date < $2 ORDER BY due_date ASC`
	var borrowings []models.Borrowing
	if err := r.db.SelectContext(ctx, &borrowings, query, models.BorrowingStatusBorrowed, now); err != nil {
		return nil, fmt.Errorf("list overdue candidates: %w", err)
	}
	return borrowings, nil
}

// MarkOverdue flips a Borrowed loan to Overdue.
func (r *BorrowingRepository) MarkOverdue(ctx context.Context, id string) error {
	const query = `UPDATE borrowings SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	if _, err := r.db.ExecContext(ctx, query, id, models.BorrowingStatusOverdue, time.Now().UTC(), models.BorrowingStatusBorrowed); err != nil {
		return fmt.Errorf("mark overdue: %w", err)
	}
	return nil
}
