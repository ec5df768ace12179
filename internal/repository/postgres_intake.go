package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pillbox-backend/internal/domain"
)

// PostgresIntakeStore 服药事件事务入口
type PostgresIntakeStore struct {
	db *sql.DB
}

// NewPostgresIntakeStore 创建服药事件事务入口
func NewPostgresIntakeStore(db *sql.DB) *PostgresIntakeStore {
	return &PostgresIntakeStore{db: db}
}

var _ IntakeStore = (*PostgresIntakeStore)(nil)

func (s *PostgresIntakeStore) BeginIntake(ctx context.Context) (IntakeTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin intake transaction: %w", err)
	}
	return &postgresIntakeTx{tx: tx}, nil
}

// postgresIntakeTx 单次服药事件事务
// 扣减、统计读取、回填、插入共用同一事务，提交失败整体回滚，
// 避免"扣减成功但历史缺失"的半写状态
type postgresIntakeTx struct {
	tx *sql.Tx
}

var _ IntakeTx = (*postgresIntakeTx)(nil)

func (t *postgresIntakeTx) DecrementSlot(ctx context.Context, slotID int, timeTaken string, period domain.DosePeriod, deviationMinutes int) (bool, error) {
	// remaining_count > 0 守卫使扣减与检查为单条原子语句，
	// 并发投递下不会扣成负数
	query := `
		UPDATE pill_slots
		SET remaining_count = remaining_count - 1,
		    last_taken_at = $2,
		    last_dose_period = $3,
		    avg_deviation_minutes = $4
		WHERE slot_id = $1 AND remaining_count > 0
	`
	res, err := t.tx.ExecContext(ctx, query, slotID, timeTaken, string(period), deviationMinutes)
	if err != nil {
		return false, fmt.Errorf("failed to decrement slot %d: %w", slotID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read decrement result: %w", err)
	}
	return affected > 0, nil
}

func (t *postgresIntakeTx) RecentDeviations(ctx context.Context, userID int, since time.Time) ([]int, error) {
	query := `
		SELECT deviation_minutes
		FROM adherence_history
		WHERE user_id = $1 AND record_date >= $2
		ORDER BY record_date
	`
	rows, err := t.tx.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent deviations: %w", err)
	}
	defer rows.Close()

	var deviations []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan deviation: %w", err)
		}
		deviations = append(deviations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deviations: %w", err)
	}
	return deviations, nil
}

func (t *postgresIntakeTx) LastMissedDate(ctx context.Context, userID int) (*time.Time, error) {
	query := `
		SELECT record_date
		FROM adherence_history
		WHERE user_id = $1 AND missed = TRUE
		ORDER BY record_date DESC
		LIMIT 1
	`
	var d time.Time
	err := t.tx.QueryRowContext(ctx, query, userID).Scan(&d)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query last missed date: %w", err)
	}
	return &d, nil
}

func (t *postgresIntakeTx) CountMissedSince(ctx context.Context, userID int, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM adherence_history
		WHERE user_id = $1 AND missed = TRUE AND record_date >= $2
	`
	var count int
	if err := t.tx.QueryRowContext(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count missed doses: %w", err)
	}
	return count, nil
}

func (t *postgresIntakeTx) ResolvePreviousOutcome(ctx context.Context, userID int, period domain.DosePeriod) (bool, error) {
	// 只回填最近一条仍为 pending 的记录，历史记录除此字段外不可变
	query := `
		UPDATE adherence_history
		SET outcome_next_dose = $3
		WHERE record_id = (
			SELECT record_id
			FROM adherence_history
			WHERE user_id = $1 AND dose_period = $2 AND outcome_next_dose = $4
			ORDER BY record_date DESC
			LIMIT 1
		)
	`
	res, err := t.tx.ExecContext(ctx, query, userID, string(period), string(domain.OutcomeTaken), string(domain.OutcomePending))
	if err != nil {
		return false, fmt.Errorf("failed to resolve previous outcome: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read backfill result: %w", err)
	}
	return affected > 0, nil
}

func (t *postgresIntakeTx) InsertRecord(ctx context.Context, rec *domain.AdherenceRecord) error {
	query := `
		INSERT INTO adherence_history (
			record_id, user_id, record_date, dose_period,
			time_taken, scheduled_time, deviation_minutes, rolling_avg_deviation,
			missed, days_since_last_missed, total_missed_this_week, outcome_next_dose
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := t.tx.ExecContext(ctx, query,
		rec.RecordID,
		rec.UserID,
		rec.Date,
		string(rec.DosePeriod),
		rec.TimeTaken,
		rec.ScheduledTime,
		rec.DeviationMinutes,
		rec.RollingAvgDeviation,
		rec.Missed,
		rec.DaysSinceLastMissed,
		rec.TotalMissedThisWeek,
		string(rec.OutcomeNextDose),
	)
	if err != nil {
		return fmt.Errorf("failed to insert adherence record: %w", err)
	}
	return nil
}

func (t *postgresIntakeTx) Commit() error {
	return t.tx.Commit()
}

func (t *postgresIntakeTx) Rollback() error {
	return t.tx.Rollback()
}
