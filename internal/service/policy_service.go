package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/noah-isme/libris-api/internal/models"
	appErrors "github.com/noah-isme/libris-api/pkg/errors"
)

type policyLendingRepository interface {
	FindRightsByBookID(ctx context.Context, bookID string) (*models.BookLendingRights, error)
	FindCategoryByID(ctx context.Context, id string) (*models.StudentCategory, error)
}

// PolicyService resolves the lending terms for one (book, student) pair.
// Resolution is never cached or frozen: borrow, checkout and renewal each
// resolve independently, so an override added or removed between events
// takes effect immediately.
type PolicyService struct {
	lending policyLendingRepository
	logger  *zap.Logger
}

// NewPolicyService constructs the policy service.
func NewPolicyService(lending policyLendingRepository, logger *zap.Logger) *PolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyService{lending: lending, logger: logger}
}

// Resolve returns the lending policy for a book and student: the book's
// lending-rights override when present, else the student's category terms,
// else the hardcoded default.
func (s *PolicyService) Resolve(ctx context.Context, bookID string, student *models.StudentDetail) (models.LendingPolicy, error) {
	rights, err := s.lending.FindRightsByBookID(ctx, bookID)
	if err == nil {
		return models.LendingPolicy{
			LoanDurationDays:      rights.LoanDurationDays,
			LoanExtensionAllowed:  rights.LoanExtensionAllowed,
			ExtensionLimit:        rights.ExtensionLimit,
			ExtensionDurationDays: rights.ExtensionDurationDays,
		}, nil
	}
	if err != sql.ErrNoRows {
		return models.LendingPolicy{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lending rights")
	}

	category := categoryFor(ctx, s.lending, student)
	if category != nil {
		return models.LendingPolicy{
			LoanDurationDays:      category.LoanDurationDays,
			LoanExtensionAllowed:  category.LoanExtensionAllowed,
			ExtensionLimit:        category.ExtensionLimit,
			ExtensionDurationDays: category.ExtensionDurationDays,
		}, nil
	}

	return models.DefaultLendingPolicy(), nil
}

// categoryFor returns the student's category, preferring the populated join
// and falling back to a direct lookup when only the ID is present.
func categoryFor(ctx context.Context, lending policyLendingRepository, student *models.StudentDetail) *models.StudentCategory {
	if student == nil {
		return nil
	}
	if cat := student.Category(); cat != nil {
		return cat
	}
	if student.CategoryID == nil {
		return nil
	}
	cat, err := lending.FindCategoryByID(ctx, *student.CategoryID)
	if err != nil {
		return nil
	}
	return cat
}
