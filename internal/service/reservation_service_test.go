package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/libris-api/internal/models"
	appErrors "github.com/noah-isme/libris-api/pkg/errors"
)

type reservationFixture struct {
	repo     *mockReservationRepo
	books    *mockBookStore
	students *mockStudentStore
	loans    *mockLoanRepo
	policy   *mockPolicy
	notifier *mockNotifier
	service  *ReservationService
}

func newReservationFixture() *reservationFixture {
	f := &reservationFixture{
		repo:     &mockReservationRepo{items: map[string]*models.Reservation{}},
		books:    &mockBookStore{books: map[string]*models.Book{}},
		students: &mockStudentStore{students: map[string]*models.StudentDetail{}},
		loans:    &mockLoanRepo{items: map[string]*models.Borrowing{}, activeCounts: map[string]int{}, overdueCounts: map[string]int{}},
		policy:   &mockPolicy{policy: models.LendingPolicy{LoanDurationDays: 21, LoanExtensionAllowed: true, ExtensionLimit: 2, ExtensionDurationDays: 7}},
		notifier: &mockNotifier{},
	}
	f.service = NewReservationService(f.repo, f.books, f.students, f.loans, f.policy, f.notifier,
		nil, nil, validator.New(), zap.NewNop(), 3)
	return f
}

func (f *reservationFixture) addReservation(id, studentID, bookID string, status models.ReservationStatus, reservedAt time.Time) *models.Reservation {
	reservation := &models.Reservation{
		ID: id, StudentID: studentID, BookID: bookID,
		ReservationDate: reservedAt,
		Status:          status,
		DaysUntilExpiry: 3,
	}
	if status == models.ReservationStatusAwaitingPickup {
		available := reservedAt
		deadline := reservedAt.AddDate(0, 0, 3)
		reservation.AvailableDate = &available
		reservation.PickupDeadline = &deadline
	}
	f.repo.items[id] = reservation
	return reservation
}

func TestCreateReservationAwaitingWhenCopyFree(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 2, 1)
	f.students.students["s1"] = testStudent("s1", 5)

	reservation, err := f.service.Create(context.Background(), CreateReservationRequest{BookID: "b1", StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusAwaitingPickup, reservation.Status)
	require.NotNil(t, reservation.AvailableDate)
	require.NotNil(t, reservation.PickupDeadline)
	assert.Equal(t, 3, reservation.DaysUntilExpiry)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 3), *reservation.PickupDeadline, time.Minute)
	assert.Equal(t, 0, f.books.books["b1"].AvailableCopies)
	assert.Len(t, f.notifier.byCategory(models.NotificationCategoryReservation), 1)
}

func TestCreateReservationHeldWhenNoCopies(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 2, 0)
	f.students.students["s1"] = testStudent("s1", 5)

	reservation, err := f.service.Create(context.Background(), CreateReservationRequest{BookID: "b1", StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusHeld, reservation.Status)
	assert.Nil(t, reservation.AvailableDate)
	assert.Nil(t, reservation.PickupDeadline)
	assert.Empty(t, f.notifier.sent)
}

func TestCreateReservationHeldWhenAtBorrowingLimit(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 2, 2)
	f.students.students["s1"] = testStudent("s1", 2)
	f.loans.activeCounts["s1"] = 2

	reservation, err := f.service.Create(context.Background(), CreateReservationRequest{BookID: "b1", StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusHeld, reservation.Status)
	assert.Equal(t, 2, f.books.books["b1"].AvailableCopies)
}

func TestCreateReservationDuplicate(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 2, 2)
	f.students.students["s1"] = testStudent("s1", 5)
	f.addReservation("r1", "s1", "b1", models.ReservationStatusHeld, time.Now().UTC())

	_, err := f.service.Create(context.Background(), CreateReservationRequest{BookID: "b1", StudentID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateReservation.Code, appErrors.FromError(err).Code)
}

func TestCreateReservationAlreadyBorrowed(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 2, 2)
	f.students.students["s1"] = testStudent("s1", 5)
	f.loans.items["l1"] = &models.Borrowing{ID: "l1", StudentID: "s1", BookID: "b1", Status: models.BorrowingStatusBorrowed}

	_, err := f.service.Create(context.Background(), CreateReservationRequest{BookID: "b1", StudentID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCreateReservationBannedStudent(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 2, 2)
	banned := testStudent("s1", 5)
	banned.Banned = true
	f.students.students["s1"] = banned

	_, err := f.service.Create(context.Background(), CreateReservationRequest{BookID: "b1", StudentID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentBanned.Code, appErrors.FromError(err).Code)
}

func TestCreateReservationRequiresCategory(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 2, 2)
	f.students.students["s1"] = &models.StudentDetail{Student: models.Student{ID: "s1", Active: true}}

	_, err := f.service.Create(context.Background(), CreateReservationRequest{BookID: "b1", StudentID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusUnchanged(t *testing.T) {
	f := newReservationFixture()
	f.addReservation("r1", "s1", "b1", models.ReservationStatusHeld, time.Now().UTC())

	_, err := f.service.UpdateStatus(context.Background(), "r1", UpdateReservationStatusRequest{Status: models.ReservationStatusHeld})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStatusUnchanged.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusCancelPromotesOldestHeld(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 1, 0)
	f.students.students["s1"] = testStudent("s1", 5)
	f.students.students["s2"] = testStudent("s2", 5)
	f.students.students["s3"] = testStudent("s3", 5)

	now := time.Now().UTC()
	f.addReservation("r1", "s1", "b1", models.ReservationStatusAwaitingPickup, now.Add(-3*time.Hour))
	f.addReservation("r2", "s2", "b1", models.ReservationStatusHeld, now.Add(-2*time.Hour))
	f.addReservation("r3", "s3", "b1", models.ReservationStatusHeld, now.Add(-1*time.Hour))

	reservation, err := f.service.UpdateStatus(context.Background(), "r1", UpdateReservationStatusRequest{Status: models.ReservationStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, reservation.Status)

	// the freed copy goes to the FCFS head, one promotion only
	assert.Equal(t, models.ReservationStatusAwaitingPickup, f.repo.items["r2"].Status)
	require.NotNil(t, f.repo.items["r2"].PickupDeadline)
	assert.Equal(t, models.ReservationStatusHeld, f.repo.items["r3"].Status)
	assert.Equal(t, 0, f.books.books["b1"].AvailableCopies)
}

func TestPromotionSkipCancelsIneligibleHead(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 1, 0)
	f.students.students["s1"] = testStudent("s1", 5)
	overLimit := testStudent("s2", 1)
	f.students.students["s2"] = overLimit
	f.loans.activeCounts["s2"] = 1
	f.students.students["s3"] = testStudent("s3", 5)

	now := time.Now().UTC()
	f.addReservation("r1", "s1", "b1", models.ReservationStatusAwaitingPickup, now.Add(-3*time.Hour))
	f.addReservation("r2", "s2", "b1", models.ReservationStatusHeld, now.Add(-2*time.Hour))
	f.addReservation("r3", "s3", "b1", models.ReservationStatusHeld, now.Add(-1*time.Hour))

	_, err := f.service.UpdateStatus(context.Background(), "r1", UpdateReservationStatusRequest{Status: models.ReservationStatusCancelled})
	require.NoError(t, err)

	assert.Equal(t, models.ReservationStatusCancelled, f.repo.items["r2"].Status)
	assert.Equal(t, models.ReservationStatusAwaitingPickup, f.repo.items["r3"].Status)

	var skipped bool
	for _, n := range f.notifier.byCategory(models.NotificationCategoryReservation) {
		if n.StudentID == "s2" {
			skipped = true
		}
	}
	assert.True(t, skipped, "skip-cancelled head should be notified")
}

func TestUpdateStatusToAwaitingRequiresCopyAndLimit(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 1, 0)
	f.students.students["s1"] = testStudent("s1", 5)
	f.addReservation("r1", "s1", "b1", models.ReservationStatusHeld, time.Now().UTC())

	_, err := f.service.UpdateStatus(context.Background(), "r1", UpdateReservationStatusRequest{Status: models.ReservationStatusAwaitingPickup})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoCopiesAvailable.Code, appErrors.FromError(err).Code)

	f.books.books["b1"].AvailableCopies = 1
	f.loans.activeCounts["s1"] = 5
	_, err = f.service.UpdateStatus(context.Background(), "r1", UpdateReservationStatusRequest{Status: models.ReservationStatusAwaitingPickup})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBorrowingLimit.Code, appErrors.FromError(err).Code)
}

func TestCancelDoesNotPromote(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 1, 0)
	f.students.students["s2"] = testStudent("s2", 5)

	now := time.Now().UTC()
	f.addReservation("r1", "s1", "b1", models.ReservationStatusAwaitingPickup, now.Add(-2*time.Hour))
	f.addReservation("r2", "s2", "b1", models.ReservationStatusHeld, now.Add(-1*time.Hour))

	reservation, err := f.service.Cancel(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, reservation.Status)
	assert.Equal(t, models.ReservationStatusHeld, f.repo.items["r2"].Status)
	assert.Equal(t, 1, f.books.books["b1"].AvailableCopies)
}

func TestCheckoutConvertsReservationToLoan(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 1, 0)
	f.students.students["s1"] = testStudent("s1", 5)
	f.addReservation("r1", "s1", "b1", models.ReservationStatusAwaitingPickup, time.Now().UTC())

	borrowing, err := f.service.Checkout(context.Background(), "r1", CheckoutReservationRequest{LendingCondition: "good"})
	require.NoError(t, err)
	assert.Equal(t, models.BorrowingStatusBorrowed, borrowing.Status)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 21), borrowing.DueDate, time.Minute)

	// the copy was debited at promotion time, checkout leaves the counter alone
	assert.Equal(t, 0, f.books.books["b1"].AvailableCopies)
	assert.Equal(t, []string{"r1"}, f.repo.deleted)
}

func TestCheckoutRequiresAwaitingPickup(t *testing.T) {
	f := newReservationFixture()
	f.addReservation("r1", "s1", "b1", models.ReservationStatusHeld, time.Now().UTC())

	_, err := f.service.Checkout(context.Background(), "r1", CheckoutReservationRequest{LendingCondition: "good"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestCheckoutBlockedForBannedStudent(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 1, 0)
	banned := testStudent("s1", 5)
	banned.Banned = true
	f.students.students["s1"] = banned
	f.addReservation("r1", "s1", "b1", models.ReservationStatusAwaitingPickup, time.Now().UTC())

	_, err := f.service.Checkout(context.Background(), "r1", CheckoutReservationRequest{LendingCondition: "good"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentBanned.Code, appErrors.FromError(err).Code)
}

func TestExtendShiftsDeadlineFromPriorValue(t *testing.T) {
	f := newReservationFixture()
	reservedAt := time.Now().UTC().Add(-48 * time.Hour)
	f.addReservation("r1", "s1", "b1", models.ReservationStatusAwaitingPickup, reservedAt)
	prior := *f.repo.items["r1"].PickupDeadline

	reservation, err := f.service.Extend(context.Background(), "r1", ExtendReservationRequest{AdditionalDays: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, reservation.DaysUntilExpiry)
	require.NotNil(t, reservation.PickupDeadline)
	assert.Equal(t, prior.AddDate(0, 0, 2), *reservation.PickupDeadline)
}

func TestExtendHeldOnlyBumpsExpiry(t *testing.T) {
	f := newReservationFixture()
	f.addReservation("r1", "s1", "b1", models.ReservationStatusHeld, time.Now().UTC())

	reservation, err := f.service.Extend(context.Background(), "r1", ExtendReservationRequest{AdditionalDays: 4})
	require.NoError(t, err)
	assert.Equal(t, 7, reservation.DaysUntilExpiry)
	assert.Nil(t, reservation.PickupDeadline)
}

func TestCancelAllForStudentCreditsWithoutPromotion(t *testing.T) {
	f := newReservationFixture()
	f.books.books["b1"] = testBook("b1", 1, 0)
	f.books.books["b2"] = testBook("b2", 1, 1)
	f.students.students["s2"] = testStudent("s2", 5)

	now := time.Now().UTC()
	f.addReservation("r1", "s1", "b1", models.ReservationStatusAwaitingPickup, now.Add(-3*time.Hour))
	f.addReservation("r2", "s1", "b2", models.ReservationStatusHeld, now.Add(-2*time.Hour))
	f.addReservation("r3", "s2", "b1", models.ReservationStatusHeld, now.Add(-1*time.Hour))

	require.NoError(t, f.service.CancelAllForStudent(context.Background(), "s1"))

	assert.Equal(t, models.ReservationStatusCancelled, f.repo.items["r1"].Status)
	assert.Equal(t, models.ReservationStatusCancelled, f.repo.items["r2"].Status)
	assert.Equal(t, 1, f.books.books["b1"].AvailableCopies)
	assert.Equal(t, models.ReservationStatusHeld, f.repo.items["r3"].Status)
}
