package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/libris-api/internal/models"
)

type mockLendingRepo struct {
	rights     map[string]*models.BookLendingRights
	categories map[string]*models.StudentCategory
}

func (m *mockLendingRepo) FindRightsByBookID(ctx context.Context, bookID string) (*models.BookLendingRights, error) {
	if rights, ok := m.rights[bookID]; ok {
		cp := *rights
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLendingRepo) FindCategoryByID(ctx context.Context, id string) (*models.StudentCategory, error) {
	if category, ok := m.categories[id]; ok {
		cp := *category
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func TestPolicyResolveBookOverrideWins(t *testing.T) {
	repo := &mockLendingRepo{
		rights: map[string]*models.BookLendingRights{
			"b1": {BookID: "b1", LoanDurationDays: 3, LoanExtensionAllowed: false},
		},
	}
	svc := NewPolicyService(repo, zap.NewNop())

	policy, err := svc.Resolve(context.Background(), "b1", testStudent("s1", 5))
	require.NoError(t, err)
	assert.Equal(t, 3, policy.LoanDurationDays)
	assert.False(t, policy.LoanExtensionAllowed)
}

func TestPolicyResolveFallsBackToCategory(t *testing.T) {
	repo := &mockLendingRepo{}
	svc := NewPolicyService(repo, zap.NewNop())

	policy, err := svc.Resolve(context.Background(), "b1", testStudent("s1", 5))
	require.NoError(t, err)
	assert.Equal(t, 21, policy.LoanDurationDays)
	assert.True(t, policy.LoanExtensionAllowed)
	assert.Equal(t, 2, policy.ExtensionLimit)
}

func TestPolicyResolveCategoryLookupByID(t *testing.T) {
	repo := &mockLendingRepo{
		categories: map[string]*models.StudentCategory{
			"cat-x": {ID: "cat-x", Name: "Graduate", BorrowingLimit: 10, LoanDurationDays: 30},
		},
	}
	svc := NewPolicyService(repo, zap.NewNop())

	catID := "cat-x"
	student := &models.StudentDetail{Student: models.Student{ID: "s1", CategoryID: &catID}}
	policy, err := svc.Resolve(context.Background(), "b1", student)
	require.NoError(t, err)
	assert.Equal(t, 30, policy.LoanDurationDays)
}

func TestPolicyResolveDefaultWhenNothingConfigured(t *testing.T) {
	repo := &mockLendingRepo{}
	svc := NewPolicyService(repo, zap.NewNop())

	student := &models.StudentDetail{Student: models.Student{ID: "s1"}}
	policy, err := svc.Resolve(context.Background(), "b1", student)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultLendingPolicy(), policy)
	assert.Equal(t, 14, policy.LoanDurationDays)
	assert.Equal(t, 7, policy.ExtensionDurationDays)
}

func TestPolicyResolveNilStudentUsesDefault(t *testing.T) {
	repo := &mockLendingRepo{}
	svc := NewPolicyService(repo, zap.NewNop())

	policy, err := svc.Resolve(context.Background(), "b1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultLendingPolicy(), policy)
}
