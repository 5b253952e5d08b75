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

type borrowingFixture struct {
	repo     *mockLoanRepo
	books    *mockBookStore
	students *mockStudentStore
	policy   *mockPolicy
	cascader *mockCascader
	notifier *mockNotifier
	service  *BorrowingService
}

func newBorrowingFixture() *borrowingFixture {
	f := &borrowingFixture{
		repo:     &mockLoanRepo{items: map[string]*models.Borrowing{}, activeCounts: map[string]int{}, overdueCounts: map[string]int{}},
		books:    &mockBookStore{books: map[string]*models.Book{}},
		students: &mockStudentStore{students: map[string]*models.StudentDetail{}},
		policy:   &mockPolicy{policy: models.LendingPolicy{LoanDurationDays: 21, LoanExtensionAllowed: true, ExtensionLimit: 2, ExtensionDurationDays: 7}},
		cascader: &mockCascader{},
		notifier: &mockNotifier{},
	}
	f.service = NewBorrowingService(f.repo, f.books, f.students, f.policy, f.cascader, f.notifier,
		nil, nil, validator.New(), zap.NewNop())
	return f
}

func TestBorrowHappyPath(t *testing.T) {
	f := newBorrowingFixture()
	f.books.books["b1"] = testBook("b1", 2, 2)
	f.students.students["s1"] = testStudent("s1", 5)

	borrowing, err := f.service.Borrow(context.Background(), BorrowRequest{
		BookID: "b1", StudentID: "s1", LendingCondition: "good",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BorrowingStatusBorrowed, borrowing.Status)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 21), borrowing.DueDate, time.Minute)
	assert.Equal(t, 1, f.books.books["b1"].AvailableCopies)
	require.Len(t, f.notifier.byCategory(models.NotificationCategoryDueDate), 1)
}

func TestBorrowExplicitDueDateSkipsPolicy(t *testing.T) {
	f := newBorrowingFixture()
	f.books.books["b1"] = testBook("b1", 1, 1)
	f.students.students["s1"] = testStudent("s1", 5)

	due := time.Now().UTC().AddDate(0, 0, 3)
	borrowing, err := f.service.Borrow(context.Background(), BorrowRequest{
		BookID: "b1", StudentID: "s1", LendingCondition: "good", DueDate: &due,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, due, borrowing.DueDate, time.Second)
}

func TestBorrowBookNotFound(t *testing.T) {
	f := newBorrowingFixture()
	f.students.students["s1"] = testStudent("s1", 5)

	_, err := f.service.Borrow(context.Background(), BorrowRequest{
		BookID: "missing", StudentID: "s1", LendingCondition: "good",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBorrowNoCopiesBeforeStudentChecks(t *testing.T) {
	f := newBorrowingFixture()
	f.books.books["b1"] = testBook("b1", 2, 0)
	banned := testStudent("s1", 5)
	banned.Banned = true
	f.students.students["s1"] = banned

	_, err := f.service.Borrow(context.Background(), BorrowRequest{
		BookID: "b1", StudentID: "s1", LendingCondition: "good",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoCopiesAvailable.Code, appErrors.FromError(err).Code)
}

func TestBorrowBannedStudent(t *testing.T) {
	f := newBorrowingFixture()
	f.books.books["b1"] = testBook("b1", 2, 2)
	banned := testStudent("s1", 5)
	banned.Banned = true
	f.students.students["s1"] = banned

	_, err := f.service.Borrow(context.Background(), BorrowRequest{
		BookID: "b1", StudentID: "s1", LendingCondition: "good",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentBanned.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 2, f.books.books["b1"].AvailableCopies)
}

func TestBorrowWithOverdueLoans(t *testing.T) {
	f := newBorrowingFixture()
	f.books.books["b1"] = testBook("b1", 2, 2)
	f.students.students["s1"] = testStudent("s1", 5)
	f.repo.overdueCounts["s1"] = 1

	_, err := f.service.Borrow(context.Background(), BorrowRequest{
		BookID: "b1", StudentID: "s1", LendingCondition: "good",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOverdueLoans.Code, appErrors.FromError(err).Code)
}

func TestBorrowCreateFailureReleasesCopy(t *testing.T) {
	f := newBorrowingFixture()
	f.books.books["b1"] = testBook("b1", 1, 1)
	f.students.students["s1"] = testStudent("s1", 5)
	f.repo.createErr = assert.AnError

	_, err := f.service.Borrow(context.Background(), BorrowRequest{
		BookID: "b1", StudentID: "s1", LendingCondition: "good",
	})
	require.Error(t, err)
	assert.Equal(t, 1, f.books.books["b1"].AvailableCopies)
}

func TestReturnCreditsCopyWithoutPromotion(t *testing.T) {
	f := newBorrowingFixture()
	f.books.books["b1"] = testBook("b1", 2, 1)
	f.repo.items["l1"] = &models.Borrowing{
		ID: "l1", BookID: "b1", StudentID: "s1",
		DueDate: time.Now().UTC().AddDate(0, 0, 7),
		Status:  models.BorrowingStatusBorrowed,
	}

	borrowing, err := f.service.Return(context.Background(), "l1", ReturnRequest{ReturnCondition: "good"})
	require.NoError(t, err)
	assert.Equal(t, models.BorrowingStatusReturned, borrowing.Status)
	require.NotNil(t, borrowing.ReturnDate)
	assert.Equal(t, 2, f.books.books["b1"].AvailableCopies)
	assert.Empty(t, f.cascader.cancelled)
}

func TestReturnAlreadyReturned(t *testing.T) {
	f := newBorrowingFixture()
	f.repo.items["l1"] = &models.Borrowing{ID: "l1", BookID: "b1", Status: models.BorrowingStatusReturned}

	_, err := f.service.Return(context.Background(), "l1", ReturnRequest{ReturnCondition: "good"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyReturned.Code, appErrors.FromError(err).Code)
}

func TestUpdateDerivesOverdueFromDueDate(t *testing.T) {
	f := newBorrowingFixture()
	f.repo.items["l1"] = &models.Borrowing{
		ID: "l1", BookID: "b1", StudentID: "s1",
		DueDate: time.Now().UTC().AddDate(0, 0, 7),
		Status:  models.BorrowingStatusBorrowed,
	}

	past := time.Now().UTC().AddDate(0, 0, -1)
	borrowing, err := f.service.Update(context.Background(), "l1", UpdateBorrowingRequest{DueDate: &past})
	require.NoError(t, err)
	assert.Equal(t, models.BorrowingStatusOverdue, borrowing.Status)
}

func TestUpdateReturnedLoanRejected(t *testing.T) {
	f := newBorrowingFixture()
	f.repo.items["l1"] = &models.Borrowing{ID: "l1", Status: models.BorrowingStatusReturned}

	status := models.BorrowingStatusBorrowed
	_, err := f.service.Update(context.Background(), "l1", UpdateBorrowingRequest{Status: &status})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyReturned.Code, appErrors.FromError(err).Code)
}

func TestDeleteActiveLoanCreditsCopy(t *testing.T) {
	f := newBorrowingFixture()
	f.books.books["b1"] = testBook("b1", 2, 1)
	f.repo.items["l1"] = &models.Borrowing{ID: "l1", BookID: "b1", Status: models.BorrowingStatusOverdue}

	require.NoError(t, f.service.Delete(context.Background(), "l1"))
	assert.Equal(t, 2, f.books.books["b1"].AvailableCopies)
	assert.Equal(t, []string{"l1"}, f.repo.deleted)
}

func TestDeleteReturnedLoanLeavesCounter(t *testing.T) {
	f := newBorrowingFixture()
	f.books.books["b1"] = testBook("b1", 2, 1)
	f.repo.items["l1"] = &models.Borrowing{ID: "l1", BookID: "b1", Status: models.BorrowingStatusReturned}

	require.NoError(t, f.service.Delete(context.Background(), "l1"))
	assert.Equal(t, 1, f.books.books["b1"].AvailableCopies)
}

func TestSweepOverdueBansFifteenDaysAndCascades(t *testing.T) {
	f := newBorrowingFixture()
	// category default ban is 30 days; the sweep must pin 15 regardless
	f.students.students["s1"] = testStudent("s1", 5)
	f.repo.items["l1"] = &models.Borrowing{
		ID: "l1", BookID: "b1", StudentID: "s1",
		DueDate: time.Now().UTC().AddDate(0, 0, -2),
		Status:  models.BorrowingStatusBorrowed,
	}
	f.repo.overdueCandidates = []models.Borrowing{*f.repo.items["l1"]}

	marked, err := f.service.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)
	assert.Equal(t, []string{"l1"}, f.repo.markedOverdue)

	until := f.students.bans["s1"]
	require.NotNil(t, until)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 15), *until, time.Minute)

	assert.Equal(t, []string{"s1"}, f.cascader.cancelled)
	assert.Len(t, f.notifier.byCategory(models.NotificationCategoryOverdue), 1)
	assert.Len(t, f.notifier.byCategory(models.NotificationCategoryBan), 1)
}

func TestGetReportsOverdueWithoutPersisting(t *testing.T) {
	f := newBorrowingFixture()
	f.repo.items["l1"] = &models.Borrowing{
		ID: "l1", BookID: "b1", StudentID: "s1",
		DueDate: time.Now().UTC().AddDate(0, 0, -1),
		Status:  models.BorrowingStatusBorrowed,
	}

	borrowing, err := f.service.Get(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, models.BorrowingStatusOverdue, borrowing.Status)
	assert.Equal(t, models.BorrowingStatusBorrowed, f.repo.items["l1"].Status)
}
