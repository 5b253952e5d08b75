package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/libris-api/internal/models"
	appErrors "github.com/noah-isme/libris-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByCardNumber(ctx context.Context, cardNumber string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetBan(ctx context.Context, id string, until *time.Time) error
	ClearBan(ctx context.Context, id string) error
}

type studentCategoryStore interface {
	FindCategoryByID(ctx context.Context, id string) (*models.StudentCategory, error)
}

// CreateStudentRequest holds payload for registering a patron.
type CreateStudentRequest struct {
	CardNumber string  `json:"card_number" validate:"required"`
	FullName   string  `json:"full_name" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	CategoryID *string `json:"category_id"`
}

// UpdateStudentRequest holds partial updates for a patron.
type UpdateStudentRequest struct {
	CardNumber *string `json:"card_number"`
	FullName   *string `json:"full_name"`
	Email      *string `json:"email" validate:"omitempty,email"`
	CategoryID *string `json:"category_id"`
	Active     *bool   `json:"active"`
}

// BanStudentRequest bans a patron. Zero days means an indefinite ban.
type BanStudentRequest struct {
	Days int `json:"days" validate:"omitempty,min=1"`
}

// StudentService manages patrons and their ban state.
type StudentService struct {
	repo       studentRepository
	categories studentCategoryStore
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, categories studentCategoryStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, categories: categories, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
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
	return students, pagination, nil
}

// Get returns one student with the category populated. A timed ban whose
// end date has passed is cleared here lazily; nothing sweeps ban expiry.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if student.BanLapsed(time.Now().UTC()) {
		if err := s.repo.ClearBan(ctx, student.ID); err != nil {
			s.logger.Warn("failed to clear lapsed ban", zap.String("student_id", student.ID), zap.Error(err))
		} else {
			student.Banned = false
			student.BannedUntil = nil
		}
	}
	return student, nil
}

// Create registers a patron. Card numbers are unique.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	exists, err := s.repo.ExistsByCardNumber(ctx, req.CardNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check card number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "card number already registered")
	}
	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	student := &models.Student{
		CardNumber: req.CardNumber,
		FullName:   req.FullName,
		Email:      req.Email,
		CategoryID: req.CategoryID,
		Active:     true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return s.Get(ctx, student.ID)
}

// Update applies partial changes to a patron.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	student := detail.Student

	if req.CardNumber != nil && *req.CardNumber != student.CardNumber {
		exists, err := s.repo.ExistsByCardNumber(ctx, *req.CardNumber, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check card number")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "card number already registered")
		}
		student.CardNumber = *req.CardNumber
	}
	if req.FullName != nil {
		student.FullName = *req.FullName
	}
	if req.Email != nil {
		student.Email = *req.Email
	}
	if req.CategoryID != nil {
		if *req.CategoryID != "" {
			if err := s.checkCategory(ctx, *req.CategoryID); err != nil {
				return nil, err
			}
			student.CategoryID = req.CategoryID
		} else {
			student.CategoryID = nil
		}
	}
	if req.Active != nil {
		student.Active = *req.Active
	}

	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, student.ID)
}

// Ban blocks a patron from borrowing and reserving. With a day count the ban
// lapses on its own; without one it stays until an explicit Unban.
func (s *StudentService) Ban(ctx context.Context, id string, req BanStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ban payload")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	var until *time.Time
	if req.Days > 0 {
		t := time.Now().UTC().AddDate(0, 0, req.Days)
		until = &t
	}
	if err := s.repo.SetBan(ctx, id, until); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ban student")
	}
	return s.Get(ctx, id)
}

// Unban lifts a patron's ban immediately.
func (s *StudentService) Unban(ctx context.Context, id string) (*models.StudentDetail, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.ClearBan(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unban student")
	}
	return s.Get(ctx, id)
}

func (s *StudentService) checkCategory(ctx context.Context, categoryID string) error {
	if _, err := s.categories.FindCategoryByID(ctx, categoryID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "unknown student category")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	return nil
}
