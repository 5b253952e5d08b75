package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/libris-api/internal/models"
	"github.com/noah-isme/libris-api/internal/service"
	"github.com/noah-isme/libris-api/pkg/response"
)

type reservationRepoStub struct {
	items map[string]*models.Reservation
}

func (s *reservationRepoStub) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, int, error) {
	return nil, 0, nil
}

func (s *reservationRepoStub) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	if reservation, ok := s.items[id]; ok {
		cp := *reservation
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *reservationRepoStub) Create(ctx context.Context, reservation *models.Reservation) error {
	if reservation.ID == "" {
		reservation.ID = "r-created"
	}
	s.items[reservation.ID] = reservation
	return nil
}

func (s *reservationRepoStub) Update(ctx context.Context, reservation *models.Reservation) error {
	cp := *reservation
	s.items[reservation.ID] = &cp
	return nil
}

func (s *reservationRepoStub) Delete(ctx context.Context, id string) error {
	delete(s.items, id)
	return nil
}

func (s *reservationRepoStub) FindActiveByStudentAndBook(ctx context.Context, studentID, bookID string) (*models.Reservation, error) {
	return nil, sql.ErrNoRows
}

func (s *reservationRepoStub) FindOldestHeld(ctx context.Context, bookID string) (*models.Reservation, error) {
	return nil, sql.ErrNoRows
}

func (s *reservationRepoStub) ListActiveByStudent(ctx context.Context, studentID string) ([]models.Reservation, error) {
	return nil, nil
}

type bookStoreStub struct {
	books map[string]*models.Book
}

func (s *bookStoreStub) FindByID(ctx context.Context, id string) (*models.Book, error) {
	if book, ok := s.books[id]; ok {
		cp := *book
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *bookStoreStub) AdjustAvailable(ctx context.Context, bookID string, delta int) error {
	if book, ok := s.books[bookID]; ok {
		book.AvailableCopies += delta
		return nil
	}
	return sql.ErrNoRows
}

type studentStoreStub struct {
	students map[string]*models.StudentDetail
}

func (s *studentStoreStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if student, ok := s.students[id]; ok {
		cp := *student
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type loanStoreStub struct{}

func (s *loanStoreStub) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	return 0, nil
}

func (s *loanStoreStub) CountOverdueByStudent(ctx context.Context, studentID string) (int, error) {
	return 0, nil
}

func (s *loanStoreStub) ExistsActiveByStudentAndBook(ctx context.Context, studentID, bookID string) (bool, error) {
	return false, nil
}

func (s *loanStoreStub) Create(ctx context.Context, borrowing *models.Borrowing) error {
	borrowing.ID = "l-created"
	return nil
}

type policyStub struct{}

func (s *policyStub) Resolve(ctx context.Context, bookID string, student *models.StudentDetail) (models.LendingPolicy, error) {
	return models.DefaultLendingPolicy(), nil
}

type notifierStub struct{}

func (s *notifierStub) Notify(studentID, category, message string) {}

func newReservationRouter(repo *reservationRepoStub, books *bookStoreStub, students *studentStoreStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewReservationService(repo, books, students, &loanStoreStub{}, &policyStub{}, &notifierStub{},
		nil, nil, validator.New(), zap.NewNop(), 3)
	h := NewReservationHandler(svc)

	r := gin.New()
	r.GET("/reservations/:id", h.Get)
	r.POST("/reservations", h.Create)
	r.POST("/reservations/:id/cancel", h.Cancel)
	r.POST("/reservations/:id/extend", h.Extend)
	return r
}

func testCategoryStudent(id string) *models.StudentDetail {
	catID := "cat-1"
	catName := "Undergraduate"
	limit := 5
	return &models.StudentDetail{
		Student:        models.Student{ID: id, CardNumber: "c-" + id, FullName: "Student", Email: id + "@campus.edu", CategoryID: &catID, Active: true},
		CategoryName:   &catName,
		BorrowingLimit: &limit,
	}
}

func TestReservationHandlerGetNotFound(t *testing.T) {
	r := newReservationRouter(&reservationRepoStub{items: map[string]*models.Reservation{}},
		&bookStoreStub{books: map[string]*models.Book{}}, &studentStoreStub{students: map[string]*models.StudentDetail{}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/reservations/missing", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestReservationHandlerCreateAwaitingPickup(t *testing.T) {
	books := &bookStoreStub{books: map[string]*models.Book{
		"b1": {ID: "b1", Title: "Dune", TotalCopies: 2, AvailableCopies: 1},
	}}
	students := &studentStoreStub{students: map[string]*models.StudentDetail{
		"s1": testCategoryStudent("s1"),
	}}
	r := newReservationRouter(&reservationRepoStub{items: map[string]*models.Reservation{}}, books, students)

	body, _ := json.Marshal(map[string]string{"book_id": "b1", "student_id": "s1"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/reservations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope struct {
		Data models.Reservation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.ReservationStatusAwaitingPickup, envelope.Data.Status)
	assert.Equal(t, 0, books.books["b1"].AvailableCopies)
}

func TestReservationHandlerCreateInvalidBody(t *testing.T) {
	r := newReservationRouter(&reservationRepoStub{items: map[string]*models.Reservation{}},
		&bookStoreStub{books: map[string]*models.Book{}}, &studentStoreStub{students: map[string]*models.StudentDetail{}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/reservations", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReservationHandlerCancel(t *testing.T) {
	now := time.Now().UTC()
	repo := &reservationRepoStub{items: map[string]*models.Reservation{
		"r1": {ID: "r1", StudentID: "s1", BookID: "b1", ReservationDate: now, Status: models.ReservationStatusHeld, DaysUntilExpiry: 3},
	}}
	r := newReservationRouter(repo, &bookStoreStub{books: map[string]*models.Book{}},
		&studentStoreStub{students: map[string]*models.StudentDetail{}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/reservations/r1/cancel", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReservationStatusCancelled, repo.items["r1"].Status)
}

func TestReservationHandlerExtendValidation(t *testing.T) {
	now := time.Now().UTC()
	repo := &reservationRepoStub{items: map[string]*models.Reservation{
		"r1": {ID: "r1", StudentID: "s1", BookID: "b1", ReservationDate: now, Status: models.ReservationStatusHeld, DaysUntilExpiry: 3},
	}}
	r := newReservationRouter(repo, &bookStoreStub{books: map[string]*models.Book{}},
		&studentStoreStub{students: map[string]*models.StudentDetail{}})

	body, _ := json.Marshal(map[string]int{"additional_days": 0})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/reservations/r1/extend", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
