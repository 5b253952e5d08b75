package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/libris-api/internal/models"
)

func newBookRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBookRepositoryList(t *testing.T) {
	db, mock, cleanup := newBookRepoMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	rows := sqlmock.NewRows([]string{"id", "title", "author", "isbn", "total_copies", "available_copies", "created_at", "updated_at"}).
		AddRow("b1", "Dune", "Frank Herbert", "9780441172719", 3, 2, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT b.id, b.title, b.author, b.isbn, b.total_copies, b.available_copies, b.created_at, b.updated_at")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM books b WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	books, total, err := repo.List(context.Background(), models.BookFilter{})
	require.NoError(t, err)
	assert.Len(t, books, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryAdjustAvailableDebit(t *testing.T) {
	db, mock, cleanup := newBookRepoMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE books")).
		WithArgs("b1", -1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AdjustAvailable(context.Background(), "b1", -1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryAdjustAvailableGuardedDebitFails(t *testing.T) {
	db, mock, cleanup := newBookRepoMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE books")).
		WithArgs("b1", -1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, title, author, isbn").
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author", "isbn", "total_copies", "available_copies", "created_at", "updated_at"}).
			AddRow("b1", "Dune", "Frank Herbert", "9780441172719", 3, 0, time.Now(), time.Now()))

	err := repo.AdjustAvailable(context.Background(), "b1", -1)
	assert.True(t, errors.Is(err, ErrNoAvailableCopies))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryAdjustAvailableMissingBook(t *testing.T) {
	db, mock, cleanup := newBookRepoMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE books")).
		WithArgs("missing", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, title, author, isbn").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	err := repo.AdjustAvailable(context.Background(), "missing", 1)
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newBookRepoMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectExec("INSERT INTO books").
		WithArgs(sqlmock.AnyArg(), "Dune", "Frank Herbert", "9780441172719", 3, 3, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	book := &models.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719", TotalCopies: 3, AvailableCopies: 3}
	require.NoError(t, repo.Create(context.Background(), book))
	assert.NotEmpty(t, book.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
