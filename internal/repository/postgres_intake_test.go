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

func setupIntakeStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresIntakeStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresIntakeStore(db)
}

func TestDecrementSlot_Applied(t *testing.T) {
	db, mock, store := setupIntakeStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pill_slots`).
		WithArgs(1, "08:05", "M", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := store.BeginIntake(context.Background())
	require.NoError(t, err)

	applied, err := tx.DecrementSlot(context.Background(), 1, "08:05", domain.PeriodMorning, 5)
	require.NoError(t, err)
	assert.True(t, applied)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementSlot_EmptySlotIsNoop(t *testing.T) {
	db, mock, store := setupIntakeStore(t)
	defer db.Close()

	mock.ExpectBegin()
	// remaining_count = 0 时守卫条件不命中，零行受影响
	mock.ExpectExec(`UPDATE pill_slots`).
		WithArgs(3, "21:40", "N", 10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := store.BeginIntake(context.Background())
	require.NoError(t, err)

	applied, err := tx.DecrementSlot(context.Background(), 3, "21:40", domain.PeriodNight, 10)
	require.NoError(t, err)
	assert.False(t, applied)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentDeviations(t *testing.T) {
	db, mock, store := setupIntakeStore(t)
	defer db.Close()

	since := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"deviation_minutes"}).AddRow(10).AddRow(20)
	mock.ExpectQuery(`SELECT deviation_minutes`).
		WithArgs(1, since).
		WillReturnRows(rows)
	mock.ExpectRollback()

	tx, err := store.BeginIntake(context.Background())
	require.NoError(t, err)

	deviations, err := tx.RecentDeviations(context.Background(), 1, since)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, deviations)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLastMissedDate_NoneIsNil(t *testing.T) {
	db, mock, store := setupIntakeStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT record_date`).
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := store.BeginIntake(context.Background())
	require.NoError(t, err)

	date, err := tx.LastMissedDate(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, date)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolvePreviousOutcome_Backfilled(t *testing.T) {
	db, mock, store := setupIntakeStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE adherence_history`).
		WithArgs(1, "N", "taken", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := store.BeginIntake(context.Background())
	require.NoError(t, err)

	backfilled, err := tx.ResolvePreviousOutcome(context.Background(), 1, domain.PeriodNight)
	require.NoError(t, err)
	assert.True(t, backfilled)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRecord(t *testing.T) {
	db, mock, store := setupIntakeStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO adherence_history`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := store.BeginIntake(context.Background())
	require.NoError(t, err)

	rec := &domain.AdherenceRecord{
		RecordID:            "0d9c1a7e-0000-0000-0000-000000000001",
		UserID:              1,
		Date:                time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		DosePeriod:          domain.PeriodMorning,
		TimeTaken:           "08:05",
		ScheduledTime:       "08:00 AM",
		DeviationMinutes:    5,
		RollingAvgDeviation: 5.0,
		Missed:              false,
		OutcomeNextDose:     domain.OutcomePending,
	}
	require.NoError(t, tx.InsertRecord(context.Background(), rec))

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
