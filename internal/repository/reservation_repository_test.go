package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/libris-api/internal/models"
)

func newReservationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func reservationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "book_id", "reservation_date", "status", "available_date", "pickup_deadline", "days_until_expiry", "created_at", "updated_at"})
}

func TestReservationRepositoryFindOldestHeld(t *testing.T) {
	db, mock, cleanup := newReservationRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE book_id = $1 AND status = $2 ORDER BY reservation_date ASC LIMIT 1")).
		WithArgs("b1", models.ReservationStatusHeld).
		WillReturnRows(reservationRows().
			AddRow("r1", "s1", "b1", time.Now().Add(-time.Hour), models.ReservationStatusHeld, nil, nil, 3, time.Now(), time.Now()))

	reservation, err := repo.FindOldestHeld(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "r1", reservation.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryFindOldestHeldEmptyQueue(t *testing.T) {
	db, mock, cleanup := newReservationRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE book_id = $1 AND status = $2 ORDER BY reservation_date ASC LIMIT 1")).
		WithArgs("b1", models.ReservationStatusHeld).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindOldestHeld(context.Background(), "b1")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryFindActiveByStudentAndBook(t *testing.T) {
	db, mock, cleanup := newReservationRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND book_id = $2 AND status IN ($3, $4) LIMIT 1")).
		WithArgs("s1", "b1", models.ReservationStatusHeld, models.ReservationStatusAwaitingPickup).
		WillReturnRows(reservationRows().
			AddRow("r1", "s1", "b1", time.Now(), models.ReservationStatusAwaitingPickup, time.Now(), time.Now().AddDate(0, 0, 3), 3, time.Now(), time.Now()))

	reservation, err := repo.FindActiveByStudentAndBook(context.Background(), "s1", "b1")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusAwaitingPickup, reservation.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newReservationRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec("INSERT INTO reservations").
		WillReturnResult(sqlmock.NewResult(1, 1))

	reservation := &models.Reservation{StudentID: "s1", BookID: "b1", ReservationDate: time.Now().UTC(), Status: models.ReservationStatusHeld, DaysUntilExpiry: 3}
	require.NoError(t, repo.Create(context.Background(), reservation))
	assert.NotEmpty(t, reservation.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
