package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/libris-api/internal/models"
	"github.com/noah-isme/libris-api/internal/repository"
)

type mockBookStore struct {
	books map[string]*models.Book
}

func (m *mockBookStore) FindByID(ctx context.Context, id string) (*models.Book, error) {
	if book, ok := m.books[id]; ok {
		cp := *book
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBookStore) AdjustAvailable(ctx context.Context, bookID string, delta int) error {
	book, ok := m.books[bookID]
	if !ok {
		return sql.ErrNoRows
	}
	next := book.AvailableCopies + delta
	if next < 0 {
		return repository.ErrNoAvailableCopies
	}
	if next > book.TotalCopies {
		next = book.TotalCopies
	}
	book.AvailableCopies = next
	return nil
}

type mockStudentStore struct {
	students map[string]*models.StudentDetail
	bans     map[string]*time.Time
}

func (m *mockStudentStore) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if student, ok := m.students[id]; ok {
		cp := *student
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentStore) SetBan(ctx context.Context, id string, until *time.Time) error {
	if m.bans == nil {
		m.bans = make(map[string]*time.Time)
	}
	m.bans[id] = until
	if student, ok := m.students[id]; ok {
		student.Banned = true
		student.BannedUntil = until
	}
	return nil
}

type mockPolicy struct {
	policy models.LendingPolicy
	err    error
}

func (m *mockPolicy) Resolve(ctx context.Context, bookID string, student *models.StudentDetail) (models.LendingPolicy, error) {
	if m.err != nil {
		return models.LendingPolicy{}, m.err
	}
	return m.policy, nil
}

type sentNotification struct {
	StudentID string
	Category  string
	Message   string
}

type mockNotifier struct {
	sent []sentNotification
}

func (m *mockNotifier) Notify(studentID, category, message string) {
	m.sent = append(m.sent, sentNotification{StudentID: studentID, Category: category, Message: message})
}

func (m *mockNotifier) byCategory(category string) []sentNotification {
	var out []sentNotification
	for _, n := range m.sent {
		if n.Category == category {
			out = append(out, n)
		}
	}
	return out
}

type mockCascader struct {
	cancelled []string
}

func (m *mockCascader) CancelAllForStudent(ctx context.Context, studentID string) error {
	m.cancelled = append(m.cancelled, studentID)
	return nil
}

type mockLoanRepo struct {
	items             map[string]*models.Borrowing
	activeCounts      map[string]int
	overdueCounts     map[string]int
	overdueCandidates []models.Borrowing
	markedOverdue     []string
	deleted           []string
	createErr         error
}

func (m *mockLoanRepo) List(ctx context.Context, filter models.BorrowingFilter) ([]models.BorrowingDetail, int, error) {
	return nil, 0, nil
}

func (m *mockLoanRepo) FindByID(ctx context.Context, id string) (*models.Borrowing, error) {
	if borrowing, ok := m.items[id]; ok {
		cp := *borrowing
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLoanRepo) Create(ctx context.Context, borrowing *models.Borrowing) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.items == nil {
		m.items = make(map[string]*models.Borrowing)
	}
	if borrowing.ID == "" {
		borrowing.ID = "generated"
	}
	cp := *borrowing
	m.items[borrowing.ID] = &cp
	return nil
}

func (m *mockLoanRepo) Update(ctx context.Context, borrowing *models.Borrowing) error {
	cp := *borrowing
	m.items[borrowing.ID] = &cp
	return nil
}

func (m *mockLoanRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockLoanRepo) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	return m.activeCounts[studentID], nil
}

func (m *mockLoanRepo) CountOverdueByStudent(ctx context.Context, studentID string) (int, error) {
	return m.overdueCounts[studentID], nil
}

func (m *mockLoanRepo) ExistsActiveByStudentAndBook(ctx context.Context, studentID, bookID string) (bool, error) {
	for _, borrowing := range m.items {
		if borrowing.StudentID == studentID && borrowing.BookID == bookID && borrowing.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLoanRepo) ListOverdueCandidates(ctx context.Context, now time.Time) ([]models.Borrowing, error) {
	return m.overdueCandidates, nil
}

func (m *mockLoanRepo) MarkOverdue(ctx context.Context, id string) error {
	m.markedOverdue = append(m.markedOverdue, id)
	if borrowing, ok := m.items[id]; ok {
		borrowing.Status = models.BorrowingStatusOverdue
	}
	return nil
}

type mockReservationRepo struct {
	items   map[string]*models.Reservation
	nextID  int
	deleted []string
}

func (m *mockReservationRepo) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, int, error) {
	return nil, 0, nil
}

func (m *mockReservationRepo) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	if reservation, ok := m.items[id]; ok {
		cp := *reservation
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReservationRepo) Create(ctx context.Context, reservation *models.Reservation) error {
	if m.items == nil {
		m.items = make(map[string]*models.Reservation)
	}
	if reservation.ID == "" {
		m.nextID++
		reservation.ID = fmt.Sprintf("res-%d", m.nextID)
	}
	cp := *reservation
	m.items[reservation.ID] = &cp
	return nil
}

func (m *mockReservationRepo) Update(ctx context.Context, reservation *models.Reservation) error {
	cp := *reservation
	m.items[reservation.ID] = &cp
	return nil
}

func (m *mockReservationRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockReservationRepo) FindActiveByStudentAndBook(ctx context.Context, studentID, bookID string) (*models.Reservation, error) {
	for _, reservation := range m.items {
		if reservation.StudentID == studentID && reservation.BookID == bookID &&
			reservation.Status != models.ReservationStatusCancelled {
			cp := *reservation
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockReservationRepo) FindOldestHeld(ctx context.Context, bookID string) (*models.Reservation, error) {
	var held []*models.Reservation
	for _, reservation := range m.items {
		if reservation.BookID == bookID && reservation.Status == models.ReservationStatusHeld {
			held = append(held, reservation)
		}
	}
	if len(held) == 0 {
		return nil, sql.ErrNoRows
	}
	sort.Slice(held, func(i, j int) bool {
		return held[i].ReservationDate.Before(held[j].ReservationDate)
	})
	cp := *held[0]
	return &cp, nil
}

func (m *mockReservationRepo) ListActiveByStudent(ctx context.Context, studentID string) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, reservation := range m.items {
		if reservation.StudentID == studentID && reservation.Status != models.ReservationStatusCancelled {
			out = append(out, *reservation)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReservationDate.Before(out[j].ReservationDate)
	})
	return out, nil
}

func testStudent(id string, borrowingLimit int) *models.StudentDetail {
	catID := "cat-" + id
	catName := "Undergraduate"
	loanDays := 21
	extAllowed := true
	extLimit := 2
	extDays := 7
	banDays := 30
	return &models.StudentDetail{
		Student: models.Student{
			ID:         id,
			CardNumber: "card-" + id,
			FullName:   "Student " + id,
			Email:      id + "@campus.edu",
			CategoryID: &catID,
			Active:     true,
		},
		CategoryName:           &catName,
		BorrowingLimit:         &borrowingLimit,
		LoanDurationDays:       &loanDays,
		LoanExtensionAllowed:   &extAllowed,
		ExtensionLimit:         &extLimit,
		ExtensionDurationDays:  &extDays,
		DefaultBanDurationDays: &banDays,
	}
}

func testBook(id string, total, available int) *models.Book {
	return &models.Book{
		ID:              id,
		Title:           "Book " + id,
		Author:          "Author",
		ISBN:            "isbn-" + id,
		TotalCopies:     total,
		AvailableCopies: available,
	}
}
