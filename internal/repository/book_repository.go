package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/libris-api/internal/models"
)

// ErrNoAvailableCopies is returned when a guarded debit finds no free copy.
var ErrNoAvailableCopies = errors.New("no available copies")

// BookRepository manages persistence for catalog titles and owns every
// mutation of the available-copies counter.
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository constructs a BookRepository.
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

// List returns books matching the provided filters.
func (r *BookRepository) List(ctx context.Context, filter models.BookFilter) ([]models.Book, int, error) {
	base := "FROM books b"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(b.title) LIKE $%d OR LOWER(b.author) LIKE $%d OR b.isbn = $%d)", len(args)+1, len(args)+1, len(args)+2))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%", filter.Search)
	}
	if filter.Available != nil {
		if *filter.Available {
			conditions = append(conditions, "b.available_copies > 0")
		} else {
			conditions = append(conditions, "b.available_copies = 0")
		}
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"title":      "b.title",
		"author":     "b.author",
		"created_at": "b.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "b.created_at"
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

	query := fmt.Sprintf(`SELECT b.id, b.title, b.author, b.isbn, b.total_copies, b.available_copies, b.created_at, b.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var books []models.Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}
	return books, total, nil
}

// FindByID fetches a book by ID.
func (r *BookRepository) FindByID(ctx context.Context, id string) (*models.Book, error) {
	const query = `SELECT id, title, author, isbn, total_copies, available_copies, created_at, updated_at FROM books WHERE id = $1`
	var book models.Book
	if err := r.db.GetContext(ctx, &book, query, id); err != nil {
		return nil, err
	}
	return &book, nil
}

// Create inserts a new book record.
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = now
	const query = `INSERT INTO books (id, title, author, isbn, total_copies, available_copies, created_at, updated_at)
        VALUES (:id, :title, :author, :isbn, :total_copies, :available_copies, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, book); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// Update modifies an existing book. available_copies is clamped into
// [0, total_copies] on every write path.
func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	book.UpdatedAt = time.Now().UTC()
	const query = `UPDATE books SET title = :title, author = :author, isbn = :isbn, total_copies = :total_copies,
        available_copies = LEAST(GREATEST(:available_copies, 0), :total_copies), updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, book); err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

// Delete removes a book record.
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

// AdjustAvailable applies delta to available_copies in one guarded statement.
// Debits fail with ErrNoAvailableCopies instead of driving the counter below
// zero; credits are clamped at total_copies.
func (r *BookRepository) AdjustAvailable(ctx context.Context, bookID string, delta int) error {
	const query = `UPDATE books
        SET available_copies = LEAST(available_copies + $2, total_copies), updated_at = $3
        WHERE id = $1 AND available_copies + $2 >= 0`
	res, err := r.db.ExecContext(ctx, query, bookID, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("adjust available copies: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust available copies: %w", err)
	}
	if affected == 0 {
		if _, findErr := r.FindByID(ctx, bookID); findErr != nil {
			return findErr
		}
		return ErrNoAvailableCopies
	}
	return nil
}
