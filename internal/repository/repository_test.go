package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"emergency-triage/internal/domain/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestRoomRepository_OccupyOnlyWhenAvailable(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoomRepository()
	roomID := uuid.New()
	patient := &entity.Patient{ID: uuid.New(), Name: "Jane Doe"}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "rooms" SET .*"version"=version \+ 1 WHERE .*id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	affected, err := repo.Occupy(context.Background(), db, roomID, patient)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "rooms" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	affected, err = repo.Occupy(context.Background(), db, roomID, patient)
	require.NoError(t, err)
	assert.Zero(t, affected)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepository_FindByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoomRepository()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "rooms" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "label", "status"}))

	room, err := repo.FindByID(context.Background(), db, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, room)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_MarkDischargedReleasesIdentity(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository()
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "patients" SET .*"identity_key"=\$\d+.*WHERE .*id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	affected, err := repo.MarkDischarged(context.Background(), db, id, entity.PatientStatusAssigned, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_SearchIsCaseInsensitive(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository()

	rows := sqlmock.NewRows([]string{"id", "name", "contact", "status"}).
		AddRow(uuid.New().String(), "Jane Doe", "555-1111", "waiting")
	mock.ExpectQuery(regexp.QuoteMeta(`LOWER(name) LIKE $1`)).
		WithArgs(`%jan\_e%`, `%jan\_e%`, sqlmock.AnyArg()).
		WillReturnRows(rows)

	patients, err := repo.Search(context.Background(), db, "JAN_E", 20)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "Jane Doe", patients[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_MaxTokenNumber(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPatientRepository()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(token_number), 0) FROM "patients"`)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(41))

	maxToken, err := repo.MaxTokenNumber(context.Background(), db)
	require.NoError(t, err)
	assert.EqualValues(t, 41, maxToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, IsDuplicateKeyError(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsDuplicateKeyError(errors.New("boom")))
	assert.False(t, IsDuplicateKeyError(nil))
}

func TestRoomRepository_VacateMatchesOccupant(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoomRepository()
	occupant := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "rooms" SET .*WHERE .*id = \$\d+ AND status = \$\d+.*occupant_id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	affected, err := repo.Vacate(context.Background(), db, uuid.New(), &occupant)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
