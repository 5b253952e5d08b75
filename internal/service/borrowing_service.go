package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/libris-api/internal/models"
	"github.com/noah-isme/libris-api/internal/repository"
	appErrors "github.com/noah-isme/libris-api/pkg/errors"
)

// overdueBanDays is the fixed ban applied by the overdue sweep. The sweep
// uses this constant, not the category's default ban duration.
const overdueBanDays = 15

type borrowingRepository interface {
	List(ctx context.Context, filter models.BorrowingFilter) ([]models.BorrowingDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Borrowing, error)
	Create(ctx context.Context, borrowing *models.Borrowing) error
	Update(ctx context.Context, borrowing *models.Borrowing) error
	Delete(ctx context.Context, id string) error
	CountActiveByStudent(ctx context.Context, studentID string) (int, error)
	CountOverdueByStudent(ctx context.Context, studentID string) (int, error)
	ListOverdueCandidates(ctx context.Context, now time.Time) ([]models.Borrowing, error)
	MarkOverdue(ctx context.Context, id string) error
}

type borrowingBookStore interface {
	FindByID(ctx context.Context, id string) (*models.Book, error)
	AdjustAvailable(ctx context.Context, bookID string, delta int) error
}

type borrowingStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	SetBan(ctx context.Context, id string, until *time.Time) error
}

type policyResolver interface {
	Resolve(ctx context.Context, bookID string, student *models.StudentDetail) (models.LendingPolicy, error)
}

type notifier interface {
	Notify(studentID, category, message string)
}

type reservationCascader interface {
	CancelAllForStudent(ctx context.Context, studentID string) error
}

// BorrowRequest holds payload for lending a copy.
type BorrowRequest struct {
	BookID           string     `json:"book_id" validate:"required"`
	StudentID        string     `json:"student_id" validate:"required"`
	LendingCondition string     `json:"lending_condition" validate:"required"`
	DueDate          *time.Time `json:"due_date"`
}

// ReturnRequest holds payload for returning a copy.
type ReturnRequest struct {
	ReturnCondition string `json:"return_condition" validate:"required"`
}

// UpdateBorrowingRequest overwrites loan fields directly. No policy
// re-validation happens here; the caller is expected to have computed a
// policy-compliant due date.
type UpdateBorrowingRequest struct {
	DueDate *time.Time              `json:"due_date"`
	Status  *models.BorrowingStatus `json:"status"`
}

// BorrowingService is the loan ledger: it creates, closes and sweeps loans
// and owns the debit/credit pairing against the availability counter.
type BorrowingService struct {
	repo         borrowingRepository
	books        borrowingBookStore
	students     borrowingStudentStore
	policy       policyResolver
	reservations reservationCascader
	notifier     notifier
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewBorrowingService constructs the borrowing service.
func NewBorrowingService(
	repo borrowingRepository,
	books borrowingBookStore,
	students borrowingStudentStore,
	policy policyResolver,
	reservations reservationCascader,
	notifier notifier,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *BorrowingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BorrowingService{
		repo:         repo,
		books:        books,
		students:     students,
		policy:       policy,
		reservations: reservations,
		notifier:     notifier,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// List returns loans and pagination metadata.
func (s *BorrowingService) List(ctx context.Context, filter models.BorrowingFilter) ([]models.BorrowingDetail, *models.Pagination, error) {
	borrowings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list borrowings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return borrowings, pagination, nil
}

// Get returns one loan. A Borrowed loan past its due date is reported as
// Overdue without being persisted; the sweep does the durable flip.
func (s *BorrowingService) Get(ctx context.Context, id string) (*models.Borrowing, error) {
	borrowing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrowing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load borrowing")
	}
	if borrowing.Status == models.BorrowingStatusBorrowed && time.Now().UTC().After(borrowing.DueDate) {
		borrowing.Status = models.BorrowingStatusOverdue
	}
	return borrowing, nil
}

// Borrow lends one copy to a student. Preconditions are checked in order and
// the first failure wins: book exists, a copy is free, student exists,
// student not banned, student has no overdue loans.
func (s *BorrowingService) Borrow(ctx context.Context, req BorrowRequest) (*models.Borrowing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid borrow payload")
	}

	book, err := s.books.FindByID(ctx, req.BookID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
	}
	if book.AvailableCopies <= 0 {
		return nil, appErrors.ErrNoCopiesAvailable
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Banned {
		return nil, appErrors.ErrStudentBanned
	}

	overdue, err := s.repo.CountOverdueByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count overdue loans")
	}
	if overdue > 0 {
		return nil, appErrors.ErrOverdueLoans
	}

	now := time.Now().UTC()
	dueDate := now
	if req.DueDate != nil {
		dueDate = req.DueDate.UTC()
	} else {
		policy, err := s.policy.Resolve(ctx, book.ID, student)
		if err != nil {
			return nil, err
		}
		dueDate = now.AddDate(0, 0, policy.LoanDurationDays)
	}

	if err := s.books.AdjustAvailable(ctx, book.ID, -1); err != nil {
		if errors.Is(err, repository.ErrNoAvailableCopies) {
			return nil, appErrors.ErrNoCopiesAvailable
		}
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve copy")
	}

	borrowing := &models.Borrowing{
		BookID:           book.ID,
		StudentID:        student.ID,
		BorrowingDate:    now,
		DueDate:          dueDate,
		LendingCondition: req.LendingCondition,
		Status:           models.BorrowingStatusBorrowed,
	}
	if err := s.repo.Create(ctx, borrowing); err != nil {
		if creditErr := s.books.AdjustAvailable(ctx, book.ID, 1); creditErr != nil {
			s.logger.Error("failed to release copy after aborted borrow",
				zap.String("book_id", book.ID), zap.Error(creditErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create borrowing")
	}

	s.cache.Invalidate(ctx, "books:")
	s.metrics.RecordBorrow()
	s.notifier.Notify(student.ID, models.NotificationCategoryDueDate,
		fmt.Sprintf("You borrowed %q. It is due on %s.", book.Title, dueDate.Format("2006-01-02")))

	return borrowing, nil
}

// Return closes a loan and frees its copy. The held queue is not promoted
// from here; promotion is driven by reservation cancellation paths.
func (s *BorrowingService) Return(ctx context.Context, id string, req ReturnRequest) (*models.Borrowing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid return payload")
	}

	borrowing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrowing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load borrowing")
	}
	if borrowing.Status == models.BorrowingStatusReturned {
		return nil, appErrors.ErrAlreadyReturned
	}

	now := time.Now().UTC()
	borrowing.ReturnDate = &now
	borrowing.ReturnCondition = &req.ReturnCondition
	borrowing.Status = models.BorrowingStatusReturned
	if err := s.repo.Update(ctx, borrowing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update borrowing")
	}

	if err := s.books.AdjustAvailable(ctx, borrowing.BookID, 1); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release copy")
	}

	s.cache.Invalidate(ctx, "books:")
	s.metrics.RecordReturn()
	return borrowing, nil
}

// Update overwrites due date and status directly. A Returned loan is
// terminal and cannot be modified.
func (s *BorrowingService) Update(ctx context.Context, id string, req UpdateBorrowingRequest) (*models.Borrowing, error) {
	borrowing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrowing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load borrowing")
	}
	if borrowing.Status == models.BorrowingStatusReturned {
		return nil, appErrors.ErrAlreadyReturned
	}

	if req.Status != nil {
		switch *req.Status {
		case models.BorrowingStatusBorrowed, models.BorrowingStatusOverdue, models.BorrowingStatusReturned:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown borrowing status")
		}
		borrowing.Status = *req.Status
	}
	if req.DueDate != nil {
		borrowing.DueDate = req.DueDate.UTC()
	}
	if borrowing.Status == models.BorrowingStatusBorrowed && time.Now().UTC().After(borrowing.DueDate) {
		borrowing.Status = models.BorrowingStatusOverdue
	}
	if borrowing.Status == models.BorrowingStatusReturned && borrowing.ReturnDate == nil {
		now := time.Now().UTC()
		borrowing.ReturnDate = &now
	}

	if err := s.repo.Update(ctx, borrowing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update borrowing")
	}

	s.notifier.Notify(borrowing.StudentID, models.NotificationCategoryBorrowing,
		fmt.Sprintf("Your loan was updated. It is now due on %s.", borrowing.DueDate.Format("2006-01-02")))
	return borrowing, nil
}

// Delete removes a loan record. An active loan credits its copy back before
// the record disappears; the removal is irreversible.
func (s *BorrowingService) Delete(ctx context.Context, id string) error {
	borrowing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "borrowing not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load borrowing")
	}

	if borrowing.Active() {
		if err := s.books.AdjustAvailable(ctx, borrowing.BookID, 1); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release copy")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete borrowing")
	}

	s.cache.Invalidate(ctx, "books:")
	return nil
}

// SweepOverdue flips every Borrowed loan past its due date to Overdue, bans
// the holder for a fixed 15 days, cancels the holder's reservations, and
// emits an overdue notification per loan. Invoked on demand by an external
// scheduler; per-loan failures are logged and the sweep continues.
func (s *BorrowingService) SweepOverdue(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	candidates, err := s.repo.ListOverdueCandidates(ctx, now)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue loans")
	}

	marked := 0
	for i := range candidates {
		borrowing := &candidates[i]
		if err := s.repo.MarkOverdue(ctx, borrowing.ID); err != nil {
			s.logger.Error("failed to mark loan overdue", zap.String("borrowing_id", borrowing.ID), zap.Error(err))
			continue
		}
		marked++

		s.enforceBan(ctx, borrowing.StudentID, now)
		s.notifier.Notify(borrowing.StudentID, models.NotificationCategoryOverdue,
			fmt.Sprintf("Your loan due on %s is overdue. Please return the book.", borrowing.DueDate.Format("2006-01-02")))
	}

	s.metrics.RecordOverdueMarked(marked)
	return marked, nil
}

// enforceBan bans a student for the fixed overdue period and cancels every
// reservation the student holds. The cascade does not promote other
// reservations.
func (s *BorrowingService) enforceBan(ctx context.Context, studentID string, now time.Time) {
	until := now.AddDate(0, 0, overdueBanDays)
	if err := s.students.SetBan(ctx, studentID, &until); err != nil {
		s.logger.Error("failed to ban student", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if err := s.reservations.CancelAllForStudent(ctx, studentID); err != nil {
		s.logger.Error("failed to cancel reservations for banned student",
			zap.String("student_id", studentID), zap.Error(err))
	}
	s.notifier.Notify(studentID, models.NotificationCategoryBan,
		fmt.Sprintf("You have been banned until %s due to an overdue loan.", until.Format("2006-01-02")))
}
