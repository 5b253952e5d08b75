package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/libris-api/internal/models"
)

// ReservationRepository manages persistence for the pickup queue.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs a ReservationRepository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// List returns reservations matching the provided filters.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, int, error) {
	base := "FROM reservations rs JOIN books b ON b.id = rs.book_id JOIN students s ON s.id = rs.student_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.BookID != "" {
		conditions = append(conditions, fmt.Sprintf("rs.book_id = $%d", len(args)+1))
		args = append(args, filter.BookID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("rs.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("rs.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"reservation_date": "rs.reservation_date",
		"pickup_deadline":  "rs.pickup_deadline",
		"created_at":       "rs.created_at",
	}
	if sortBy == "" {
		sortBy = "reservation_date"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "rs.reservation_date"
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

	query := fmt.Sprintf(`SELECT rs.id, rs.student_id, rs.book_id, rs.reservation_date, rs.status, rs.available_date, rs.pickup_deadline, rs.days_until_expiry, rs.created_at, rs.updated_at,
        b.title AS book_title, s.full_name AS student_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var reservations []models.ReservationDetail
	if err := r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}
	return reservations, total, nil
}

// FindByID fetches a reservation by ID.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	const query = `SELECT id, student_id, book_id, reservation_date, status, available_date, pickup_deadline, days_until_expiry, created_at, updated_at
        FROM reservations WHERE id = $1`
	var reservation models.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, id); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Create inserts a new reservation.
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	reservation.UpdatedAt = now
	const query = `INSERT INTO reservations (id, student_id, book_id, reservation_date, status, available_date, pickup_deadline, days_until_expiry, created_at, updated_at)
        VALUES (:id, :student_id, :book_id, :reservation_date, :status, :available_date, :pickup_deadline, :days_until_expiry, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reservation); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// Update persists status, pickup dates and expiry changes.
func (r *ReservationRepository) Update(ctx context.Context, reservation *models.Reservation) error {
	reservation.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reservations SET status = :status, available_date = :available_date, pickup_deadline = :pickup_deadline,
        days_until_expiry = :days_until_expiry, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, reservation); err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	return nil
}

// Delete removes a reservation document entirely. Checkout consumes
// reservations this way rather than retaining a terminal row.
func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return nil
}

// FindActiveByStudentAndBook fetches the student's non-terminal reservation
// for a book, if one exists. At most one such row may exist per pair.
func (r *ReservationRepository) FindActiveByStudentAndBook(ctx context.Context, studentID, bookID string) (*models.Reservation, error) {
	const query = `SELECT id, student_id, book_id, reservation_date, status, available_date, pickup_deadline, days_until_expiry, created_at, updated_at
        FROM reservations WHERE student_id = $1 AND book_id = $2 AND status IN ($3, $4) LIMIT 1`
	var reservation models.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, studentID, bookID, models.ReservationStatusHeld, models.ReservationStatusAwaitingPickup); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// FindOldestHeld fetches the FCFS head of a book's Held queue.
func (r *ReservationRepository) FindOldestHeld(ctx context.Context, bookID string) (*models.Reservation, error) {
	const query = `SELECT id, student_id, book_id, reservation_date, status, available_date, pickup_deadline, days_until_expiry, created_at, updated_at
        FROM reservations WHERE book_id = $1 AND status = $2 ORDER BY reservation_date ASC LIMIT 1`
	var reservation models.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, bookID, models.ReservationStatusHeld); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ListActiveByStudent returns a student's Held and Awaiting Pickup reservations.
func (r *ReservationRepository) ListActiveByStudent(ctx context.Context, studentID string) ([]models.Reservation, error) {
	const query = `SELECT id, student_id, book_id, reservation_date, status, available_date, pickup_deadline, days_until_expiry, created_at, updated_at
        FROM reservations WHERE student_id = $1 AND status IN ($2, $3) ORDER BY reservation_date ASC`
	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, studentID, models.ReservationStatusHeld, models.ReservationStatusAwaitingPickup); err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	return reservations, nil
}
