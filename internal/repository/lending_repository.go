package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/libris-api/internal/models"
)

// LendingRepository manages book lending-rights overrides and student
// categories, the two sources the policy resolver consults.
type LendingRepository struct {
	db *sqlx.DB
}

// NewLendingRepository constructs a LendingRepository.
func NewLendingRepository(db *sqlx.DB) *LendingRepository {
	return &LendingRepository{db: db}
}

// FindRightsByBookID fetches the lending-rights override for a book, if any.
func (r *LendingRepository) FindRightsByBookID(ctx context.Context, bookID string) (*models.BookLendingRights, error) {
	const query = `SELECT id, book_id, loan_duration_days, loan_extension_allowed, extension_limit, extension_duration_days, created_at, updated_at
        FROM book_lending_rights WHERE book_id = $1`
	var rights models.BookLendingRights
	if err := r.db.GetContext(ctx, &rights, query, bookID); err != nil {
		return nil, err
	}
	return &rights, nil
}

// UpsertRights creates or replaces the single override row for a book.
func (r *LendingRepository) UpsertRights(ctx context.Context, rights *models.BookLendingRights) error {
	if rights.ID == "" {
		rights.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rights.CreatedAt.IsZero() {
		rights.CreatedAt = now
	}
	rights.UpdatedAt = now
	const query = `INSERT INTO book_lending_rights (id, book_id, loan_duration_days, loan_extension_allowed, extension_limit, extension_duration_days, created_at, updated_at)
        VALUES (:id, :book_id, :loan_duration_days, :loan_extension_allowed, :extension_limit, :extension_duration_days, :created_at, :updated_at)
        ON CONFLICT (book_id) DO UPDATE SET
            loan_duration_days = EXCLUDED.loan_duration_days,
            loan_extension_allowed = EXCLUDED.loan_extension_allowed,
            extension_limit = EXCLUDED.extension_limit,
            extension_duration_days = EXCLUDED.extension_duration_days,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, rights); err != nil {
		return fmt.Errorf("upsert lending rights: %w", err)
	}
	return nil
}

// DeleteRights removes a book's override, restoring category defaults.
func (r *LendingRepository) DeleteRights(ctx context.Context, bookID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM book_lending_rights WHERE book_id = $1`, bookID); err != nil {
		return fmt.Errorf("delete lending rights: %w", err)
	}
	return nil
}

// ListCategories returns all student categories.
func (r *LendingRepository) ListCategories(ctx context.Context) ([]models.StudentCategory, error) {
	const query = `SELECT id, name, borrowing_limit, loan_duration_days, loan_extension_allowed, extension_limit, extension_duration_days, default_ban_duration_days, created_at, updated_at
        FROM student_categories ORDER BY name ASC`
	var categories []models.StudentCategory
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindCategoryByID fetches a student category.
func (r *LendingRepository) FindCategoryByID(ctx context.Context, id string) (*models.StudentCategory, error) {
	const query = `SELECT id, name, borrowing_limit, loan_duration_days, loan_extension_allowed, extension_limit, extension_duration_days, default_ban_duration_days, created_at, updated_at
        FROM student_categories WHERE id = $1`
	var category models.StudentCategory
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory inserts a new student category.
func (r *LendingRepository) CreateCategory(ctx context.Context, category *models.StudentCategory) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = now
	const query = `INSERT INTO student_categories (id, name, borrowing_limit, loan_duration_days, loan_extension_allowed, extension_limit, extension_duration_days, default_ban_duration_days, created_at, updated_at)
        VALUES (:id, :name, :borrowing_limit, :loan_duration_days, :loan_extension_allowed, :extension_limit, :extension_duration_days, :default_ban_duration_days, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// UpdateCategory modifies an existing student category.
func (r *LendingRepository) UpdateCategory(ctx context.Context, category *models.StudentCategory) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_categories SET name = :name, borrowing_limit = :borrowing_limit, loan_duration_days = :loan_duration_days,
        loan_extension_allowed = :loan_extension_allowed, extension_limit = :extension_limit, extension_duration_days = :extension_duration_days,
        default_ban_duration_days = :default_ban_duration_days, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}
