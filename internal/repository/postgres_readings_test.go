package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pillbox-backend/internal/domain"
)

func setupReadingsRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresReadingsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresReadingsRepository(db)
}

func TestLatestTemperature(t *testing.T) {
	db, mock, repo := setupReadingsRepo(t)
	defer db.Close()

	at := time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"user_id", "value_celsius", "recorded_at"}).
		AddRow(1, 36.8, at)

	mock.ExpectQuery(`SELECT`).WillReturnRows(rows)

	reading, err := repo.LatestTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 36.8, reading.Celsius)
	assert.Equal(t, at, reading.RecordedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestTemperature_Empty(t *testing.T) {
	db, mock, repo := setupReadingsRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(sql.ErrNoRows)

	reading, err := repo.LatestTemperature(context.Background())
	assert.Nil(t, reading)
	assert.ErrorIs(t, err, ErrNoReadings)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestOximeter_ByType(t *testing.T) {
	db, mock, repo := setupReadingsRepo(t)
	defer db.Close()

	at := time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"user_id", "reading_type", "value", "recorded_at"}).
		AddRow(1, domain.ReadingSpO2, 98.0, at)

	mock.ExpectQuery(`SELECT`).WithArgs(domain.ReadingSpO2).WillReturnRows(rows)

	reading, err := repo.LatestOximeter(context.Background(), domain.ReadingSpO2)
	require.NoError(t, err)
	assert.Equal(t, domain.ReadingSpO2, reading.Type)
	assert.Equal(t, 98.0, reading.Value)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOximeter(t *testing.T) {
	db, mock, repo := setupReadingsRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO oximeter_readings`).
		WithArgs(1, domain.ReadingHeartRate, 72.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.InsertOximeter(context.Background(), &domain.OximeterReading{
		UserID:     1,
		Type:       domain.ReadingHeartRate,
		Value:      72.0,
		RecordedAt: time.Now(),
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
