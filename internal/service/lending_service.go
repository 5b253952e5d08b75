package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/libris-api/internal/models"
	appErrors "github.com/noah-isme/libris-api/pkg/errors"
)

type lendingRepository interface {
	FindRightsByBookID(ctx context.Context, bookID string) (*models.BookLendingRights, error)
	UpsertRights(ctx context.Context, rights *models.BookLendingRights) error
	DeleteRights(ctx context.Context, bookID string) error
	ListCategories(ctx context.Context) ([]models.StudentCategory, error)
	FindCategoryByID(ctx context.Context, id string) (*models.StudentCategory, error)
	CreateCategory(ctx context.Context, category *models.StudentCategory) error
	UpdateCategory(ctx context.Context, category *models.StudentCategory) error
}

type lendingBookStore interface {
	FindByID(ctx context.Context, id string) (*models.Book, error)
}

// UpsertRightsRequest sets the per-book lending override.
type UpsertRightsRequest struct {
	LoanDurationDays      int  `json:"loan_duration_days" validate:"required,min=1"`
	LoanExtensionAllowed  bool `json:"loan_extension_allowed"`
	ExtensionLimit        int  `json:"extension_limit" validate:"min=0"`
	ExtensionDurationDays int  `json:"extension_duration_days" validate:"min=0"`
}

// CategoryRequest holds payload for creating or updating a student category.
type CategoryRequest struct {
	Name                   string `json:"name" validate:"required"`
	BorrowingLimit         int    `json:"borrowing_limit" validate:"required,min=1"`
	LoanDurationDays       int    `json:"loan_duration_days" validate:"required,min=1"`
	LoanExtensionAllowed   bool   `json:"loan_extension_allowed"`
	ExtensionLimit         int    `json:"extension_limit" validate:"min=0"`
	ExtensionDurationDays  int    `json:"extension_duration_days" validate:"min=0"`
	DefaultBanDurationDays int    `json:"default_ban_duration_days" validate:"min=0"`
}

// LendingService manages student categories and per-book lending rights,
// the two configurable layers the policy resolver reads.
type LendingService struct {
	repo      lendingRepository
	books     lendingBookStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLendingService constructs the lending service.
func NewLendingService(repo lendingRepository, books lendingBookStore, validate *validator.Validate, logger *zap.Logger) *LendingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LendingService{repo: repo, books: books, validator: validate, logger: logger}
}

// GetRights returns the lending override for a book, if one exists.
func (s *LendingService) GetRights(ctx context.Context, bookID string) (*models.BookLendingRights, error) {
	rights, err := s.repo.FindRightsByBookID(ctx, bookID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no lending rights for this book")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lending rights")
	}
	return rights, nil
}

// UpsertRights creates or replaces a book's lending override.
func (s *LendingService) UpsertRights(ctx context.Context, bookID string, req UpsertRightsRequest) (*models.BookLendingRights, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lending rights payload")
	}
	if _, err := s.books.FindByID(ctx, bookID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
	}

	rights := &models.BookLendingRights{
		BookID:                bookID,
		LoanDurationDays:      req.LoanDurationDays,
		LoanExtensionAllowed:  req.LoanExtensionAllowed,
		ExtensionLimit:        req.ExtensionLimit,
		ExtensionDurationDays: req.ExtensionDurationDays,
	}
	if err := s.repo.UpsertRights(ctx, rights); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save lending rights")
	}
	return rights, nil
}

// DeleteRights removes a book's lending override, reverting the book to
// category terms.
func (s *LendingService) DeleteRights(ctx context.Context, bookID string) error {
	if _, err := s.repo.FindRightsByBookID(ctx, bookID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "no lending rights for this book")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lending rights")
	}
	if err := s.repo.DeleteRights(ctx, bookID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lending rights")
	}
	return nil
}

// ListCategories returns every student category.
func (s *LendingService) ListCategories(ctx context.Context) ([]models.StudentCategory, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}

// GetCategory returns one student category.
func (s *LendingService) GetCategory(ctx context.Context, id string) (*models.StudentCategory, error) {
	category, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	return category, nil
}

// CreateCategory registers a student category.
func (s *LendingService) CreateCategory(ctx context.Context, req CategoryRequest) (*models.StudentCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category := &models.StudentCategory{
		Name:                   req.Name,
		BorrowingLimit:         req.BorrowingLimit,
		LoanDurationDays:       req.LoanDurationDays,
		LoanExtensionAllowed:   req.LoanExtensionAllowed,
		ExtensionLimit:         req.ExtensionLimit,
		ExtensionDurationDays:  req.ExtensionDurationDays,
		DefaultBanDurationDays: req.DefaultBanDurationDays,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	return category, nil
}

// UpdateCategory replaces a category's lending terms.
func (s *LendingService) UpdateCategory(ctx context.Context, id string, req CategoryRequest) (*models.StudentCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}

	category.Name = req.Name
	category.BorrowingLimit = req.BorrowingLimit
	category.LoanDurationDays = req.LoanDurationDays
	category.LoanExtensionAllowed = req.LoanExtensionAllowed
	category.ExtensionLimit = req.ExtensionLimit
	category.ExtensionDurationDays = req.ExtensionDurationDays
	category.DefaultBanDurationDays = req.DefaultBanDurationDays

	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update category")
	}
	return category, nil
}
