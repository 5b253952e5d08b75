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

type reservationRepository interface {
	List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
	Create(ctx context.Context, reservation *models.Reservation) error
	Update(ctx context.Context, reservation *models.Reservation) error
	Delete(ctx context.Context, id string) error
	FindActiveByStudentAndBook(ctx context.Context, studentID, bookID string) (*models.Reservation, error)
	FindOldestHeld(ctx context.Context, bookID string) (*models.Reservation, error)
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.Reservation, error)
}

type reservationBookStore interface {
	FindByID(ctx context.Context, id string) (*models.Book, error)
	AdjustAvailable(ctx context.Context, bookID string, delta int) error
}

type reservationStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type reservationLoanStore interface {
	CountActiveByStudent(ctx context.Context, studentID string) (int, error)
	CountOverdueByStudent(ctx context.Context, studentID string) (int, error)
	ExistsActiveByStudentAndBook(ctx context.Context, studentID, bookID string) (bool, error)
	Create(ctx context.Context, borrowing *models.Borrowing) error
}

// CreateReservationRequest holds payload for placing a reservation.
type CreateReservationRequest struct {
	BookID          string `json:"book_id" validate:"required"`
	StudentID       string `json:"student_id" validate:"required"`
	DaysUntilExpiry int    `json:"days_until_expiry" validate:"omitempty,min=1"`
}

// UpdateReservationStatusRequest moves a reservation to an explicit status.
type UpdateReservationStatusRequest struct {
	Status models.ReservationStatus `json:"status" validate:"required"`
}

// ExtendReservationRequest lengthens a reservation's pickup window. The
// extension is not validated against the lending policy's extension terms;
// those apply to loans, not pickup windows.
type ExtendReservationRequest struct {
	AdditionalDays int `json:"additional_days" validate:"required,min=1"`
}

// CheckoutReservationRequest converts an awaiting reservation into a loan.
type CheckoutReservationRequest struct {
	LendingCondition string `json:"lending_condition" validate:"required"`
}

// ReservationService owns the pickup queue: placing, promoting, cancelling
// and converting reservations. A reservation holds a copy only while it is
// Awaiting Pickup; every transition into or out of that status pairs with
// one availability debit or credit.
type ReservationService struct {
	repo             reservationRepository
	books            reservationBookStore
	students         reservationStudentStore
	loans            reservationLoanStore
	policy           policyResolver
	notifier         notifier
	cache            *CacheService
	metrics          *MetricsService
	validator        *validator.Validate
	logger           *zap.Logger
	pickupExpiryDays int
}

// NewReservationService constructs the reservation service.
func NewReservationService(
	repo reservationRepository,
	books reservationBookStore,
	students reservationStudentStore,
	loans reservationLoanStore,
	policy policyResolver,
	notifier notifier,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	pickupExpiryDays int,
) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pickupExpiryDays <= 0 {
		pickupExpiryDays = 3
	}
	return &ReservationService{
		repo:             repo,
		books:            books,
		students:         students,
		loans:            loans,
		policy:           policy,
		notifier:         notifier,
		cache:            cache,
		metrics:          metrics,
		validator:        validate,
		logger:           logger,
		pickupExpiryDays: pickupExpiryDays,
	}
}

// List returns reservations and pagination metadata.
func (s *ReservationService) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, *models.Pagination, error) {
	if filter.Status != "" && !models.ValidReservationStatus(filter.Status) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown reservation status")
	}
	reservations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
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
	return reservations, pagination, nil
}

// Get returns one reservation.
func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	return reservation, nil
}

// Create places a reservation. When a copy is free and the student is under
// their borrowing limit the reservation starts Awaiting Pickup and holds a
// copy immediately; otherwise it joins the Held queue.
func (s *ReservationService) Create(ctx context.Context, req CreateReservationRequest) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}

	book, err := s.books.FindByID(ctx, req.BookID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
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

	if _, err := s.repo.FindActiveByStudentAndBook(ctx, student.ID, book.ID); err == nil {
		return nil, appErrors.ErrDuplicateReservation
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing reservation")
	}

	alreadyBorrowed, err := s.loans.ExistsActiveByStudentAndBook(ctx, student.ID, book.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active loans")
	}
	if alreadyBorrowed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already borrowed this book")
	}

	category := student.Category()
	if category == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student has no category")
	}

	now := time.Now().UTC()
	reservation := &models.Reservation{
		StudentID:       student.ID,
		BookID:          book.ID,
		ReservationDate: now,
		Status:          models.ReservationStatusHeld,
		DaysUntilExpiry: req.DaysUntilExpiry,
	}
	if reservation.DaysUntilExpiry <= 0 {
		reservation.DaysUntilExpiry = s.pickupExpiryDays
	}

	if book.AvailableCopies > 0 {
		active, err := s.loans.CountActiveByStudent(ctx, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active loans")
		}
		if active < category.BorrowingLimit {
			if err := s.books.AdjustAvailable(ctx, book.ID, -1); err != nil {
				if !errors.Is(err, repository.ErrNoAvailableCopies) {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hold copy")
				}
				// lost the race for the last copy, stay Held
			} else {
				s.markAwaitingPickup(reservation, now)
			}
		}
	}

	if err := s.repo.Create(ctx, reservation); err != nil {
		if reservation.Status == models.ReservationStatusAwaitingPickup {
			if creditErr := s.books.AdjustAvailable(ctx, book.ID, 1); creditErr != nil {
				s.logger.Error("failed to release copy after aborted reservation",
					zap.String("book_id", book.ID), zap.Error(creditErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}

	s.cache.Invalidate(ctx, "books:")
	s.metrics.RecordReservation(string(reservation.Status))
	if reservation.Status == models.ReservationStatusAwaitingPickup {
		s.notifyReady(student.ID, book.Title, reservation)
	}
	return reservation, nil
}

// UpdateStatus moves a reservation to an explicit status. Entering Awaiting
// Pickup holds a copy; leaving it frees one. Any move into Cancelled, from
// either prior status, promotes the head of the book's Held queue.
func (s *ReservationService) UpdateStatus(ctx context.Context, id string, req UpdateReservationStatusRequest) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !models.ValidReservationStatus(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown reservation status")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if reservation.Status == req.Status {
		return nil, appErrors.ErrStatusUnchanged
	}

	now := time.Now().UTC()
	previous := reservation.Status

	if req.Status == models.ReservationStatusAwaitingPickup {
		book, err := s.books.FindByID(ctx, reservation.BookID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
		}
		if book.AvailableCopies <= 0 {
			return nil, appErrors.ErrNoCopiesAvailable
		}
		student, err := s.students.FindByID(ctx, reservation.StudentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		category := student.Category()
		if category == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student has no category")
		}
		active, err := s.loans.CountActiveByStudent(ctx, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active loans")
		}
		if active >= category.BorrowingLimit {
			return nil, appErrors.ErrBorrowingLimit
		}
		if err := s.books.AdjustAvailable(ctx, reservation.BookID, -1); err != nil {
			if errors.Is(err, repository.ErrNoAvailableCopies) {
				return nil, appErrors.ErrNoCopiesAvailable
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hold copy")
		}
		s.markAwaitingPickup(reservation, now)
		reservation.Status = models.ReservationStatusAwaitingPickup
		s.notifyReady(reservation.StudentID, book.Title, reservation)
	} else {
		reservation.Status = req.Status
		if previous == models.ReservationStatusAwaitingPickup {
			if err := s.books.AdjustAvailable(ctx, reservation.BookID, 1); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release copy")
			}
		}
	}

	if err := s.repo.Update(ctx, reservation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reservation")
	}

	s.cache.Invalidate(ctx, "books:")
	s.metrics.RecordReservation(string(reservation.Status))

	if reservation.Status == models.ReservationStatusCancelled {
		if err := s.processNext(ctx, reservation.BookID); err != nil {
			s.logger.Error("failed to promote next reservation",
				zap.String("book_id", reservation.BookID), zap.Error(err))
		}
	}
	return reservation, nil
}

// Cancel is the student-facing cancellation. It frees the held copy when the
// reservation was Awaiting Pickup but does not promote the queue; the next
// student is picked up by the admin status path or a later reservation.
func (s *ReservationService) Cancel(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if reservation.Status == models.ReservationStatusCancelled {
		return nil, appErrors.ErrStatusUnchanged
	}

	wasAwaiting := reservation.Status == models.ReservationStatusAwaitingPickup
	reservation.Status = models.ReservationStatusCancelled
	if err := s.repo.Update(ctx, reservation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reservation")
	}

	if wasAwaiting {
		if err := s.books.AdjustAvailable(ctx, reservation.BookID, 1); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release copy")
		}
		s.cache.Invalidate(ctx, "books:")
	}

	s.metrics.RecordReservation(string(models.ReservationStatusCancelled))
	s.notifier.Notify(reservation.StudentID, models.NotificationCategoryReservation,
		"Your reservation has been cancelled.")
	return reservation, nil
}

// Checkout converts an Awaiting Pickup reservation into a loan. The copy was
// already debited when the reservation entered Awaiting Pickup, so the
// availability counter is untouched here. The reservation row is consumed.
func (s *ReservationService) Checkout(ctx context.Context, id string, req CheckoutReservationRequest) (*models.Borrowing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkout payload")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if reservation.Status != models.ReservationStatusAwaitingPickup {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "reservation is not awaiting pickup")
	}

	student, err := s.students.FindByID(ctx, reservation.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Banned {
		return nil, appErrors.ErrStudentBanned
	}
	overdue, err := s.loans.CountOverdueByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count overdue loans")
	}
	if overdue > 0 {
		return nil, appErrors.ErrOverdueLoans
	}

	policy, err := s.policy.Resolve(ctx, reservation.BookID, student)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	borrowing := &models.Borrowing{
		BookID:           reservation.BookID,
		StudentID:        student.ID,
		BorrowingDate:    now,
		DueDate:          now.AddDate(0, 0, policy.LoanDurationDays),
		LendingCondition: req.LendingCondition,
		Status:           models.BorrowingStatusBorrowed,
	}
	if err := s.loans.Create(ctx, borrowing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create borrowing")
	}
	if err := s.repo.Delete(ctx, reservation.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume reservation")
	}

	s.metrics.RecordBorrow()
	s.notifier.Notify(student.ID, models.NotificationCategoryDueDate,
		fmt.Sprintf("Your reserved book is checked out. It is due on %s.", borrowing.DueDate.Format("2006-01-02")))
	return borrowing, nil
}

// Extend lengthens the pickup window. The deadline moves from the previous
// deadline, not from now, so extending early does not forfeit time.
func (s *ReservationService) Extend(ctx context.Context, id string, req ExtendReservationRequest) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid extension payload")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if reservation.Status == models.ReservationStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "reservation is cancelled")
	}

	reservation.DaysUntilExpiry += req.AdditionalDays
	if reservation.Status == models.ReservationStatusAwaitingPickup && reservation.PickupDeadline != nil {
		deadline := reservation.PickupDeadline.AddDate(0, 0, req.AdditionalDays)
		reservation.PickupDeadline = &deadline
	}
	if err := s.repo.Update(ctx, reservation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reservation")
	}
	return reservation, nil
}

// Delete removes a reservation row without touching the availability
// counter; an Awaiting Pickup delete leaks the held copy on purpose, the
// admin is expected to adjust the book if that is not intended.
func (s *ReservationService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete reservation")
	}
	return nil
}

// CancelAllForStudent cancels every active reservation a student holds,
// crediting copies back for Awaiting Pickup rows. Used by the ban cascade.
// Freed copies do not promote other students' reservations.
func (s *ReservationService) CancelAllForStudent(ctx context.Context, studentID string) error {
	reservations, err := s.repo.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	for i := range reservations {
		reservation := &reservations[i]
		wasAwaiting := reservation.Status == models.ReservationStatusAwaitingPickup
		reservation.Status = models.ReservationStatusCancelled
		if err := s.repo.Update(ctx, reservation); err != nil {
			s.logger.Error("failed to cancel reservation",
				zap.String("reservation_id", reservation.ID), zap.Error(err))
			continue
		}
		if wasAwaiting {
			if err := s.books.AdjustAvailable(ctx, reservation.BookID, 1); err != nil {
				s.logger.Error("failed to release copy for cancelled reservation",
					zap.String("book_id", reservation.BookID), zap.Error(err))
			}
		}
		s.notifier.Notify(studentID, models.NotificationCategoryReservation,
			"Your reservation has been cancelled.")
	}
	s.cache.Invalidate(ctx, "books:")
	return nil
}

// processNext promotes the FCFS head of a book's Held queue to Awaiting
// Pickup. Ineligible heads (banned, over their borrowing limit, or without a
// category) are cancelled and the loop moves on; at most one reservation is
// promoted per call.
func (s *ReservationService) processNext(ctx context.Context, bookID string) error {
	for {
		reservation, err := s.repo.FindOldestHeld(ctx, bookID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return fmt.Errorf("find oldest held reservation: %w", err)
		}

		reason := ""
		student, err := s.students.FindByID(ctx, reservation.StudentID)
		switch {
		case err == sql.ErrNoRows:
			reason = "student no longer exists"
		case err != nil:
			return fmt.Errorf("load student %s: %w", reservation.StudentID, err)
		case student.Banned:
			reason = "you are currently banned"
		case student.Category() == nil:
			reason = "your account has no category"
		default:
			active, err := s.loans.CountActiveByStudent(ctx, student.ID)
			if err != nil {
				return fmt.Errorf("count active loans for %s: %w", student.ID, err)
			}
			if active >= student.Category().BorrowingLimit {
				reason = "you have reached your borrowing limit"
			}
		}

		if reason != "" {
			reservation.Status = models.ReservationStatusCancelled
			if err := s.repo.Update(ctx, reservation); err != nil {
				return fmt.Errorf("cancel ineligible reservation %s: %w", reservation.ID, err)
			}
			s.notifier.Notify(reservation.StudentID, models.NotificationCategoryReservation,
				fmt.Sprintf("Your reservation was cancelled: %s.", reason))
			continue
		}

		if err := s.books.AdjustAvailable(ctx, bookID, -1); err != nil {
			if errors.Is(err, repository.ErrNoAvailableCopies) {
				return nil
			}
			return fmt.Errorf("hold copy of %s: %w", bookID, err)
		}

		now := time.Now().UTC()
		s.markAwaitingPickup(reservation, now)
		reservation.Status = models.ReservationStatusAwaitingPickup
		if err := s.repo.Update(ctx, reservation); err != nil {
			if creditErr := s.books.AdjustAvailable(ctx, bookID, 1); creditErr != nil {
				s.logger.Error("failed to release copy after aborted promotion",
					zap.String("book_id", bookID), zap.Error(creditErr))
			}
			return fmt.Errorf("promote reservation %s: %w", reservation.ID, err)
		}

		s.cache.Invalidate(ctx, "books:")
		s.metrics.RecordPromotion()
		s.notifyReady(reservation.StudentID, "", reservation)
		return nil
	}
}

func (s *ReservationService) markAwaitingPickup(reservation *models.Reservation, now time.Time) {
	reservation.Status = models.ReservationStatusAwaitingPickup
	reservation.AvailableDate = &now
	days := reservation.DaysUntilExpiry
	if days <= 0 {
		days = s.pickupExpiryDays
		reservation.DaysUntilExpiry = days
	}
	deadline := now.AddDate(0, 0, days)
	reservation.PickupDeadline = &deadline
}

func (s *ReservationService) notifyReady(studentID, title string, reservation *models.Reservation) {
	deadline := ""
	if reservation.PickupDeadline != nil {
		deadline = reservation.PickupDeadline.Format("2006-01-02")
	}
	message := fmt.Sprintf("Your reserved book is ready for pickup until %s.", deadline)
	if title != "" {
		message = fmt.Sprintf("Your reserved book %q is ready for pickup until %s.", title, deadline)
	}
	s.notifier.Notify(studentID, models.NotificationCategoryReservation, message)
}
