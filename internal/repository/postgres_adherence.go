package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pillbox-backend/internal/domain"
)

// PostgresAdherenceRepository 服药历史查询Repository实现
type PostgresAdherenceRepository struct {
	db *sql.DB
}

// NewPostgresAdherenceRepository 创建服药历史Repository
func NewPostgresAdherenceRepository(db *sql.DB) *PostgresAdherenceRepository {
	return &PostgresAdherenceRepository{db: db}
}

var _ AdherenceRepository = (*PostgresAdherenceRepository)(nil)

func (r *PostgresAdherenceRepository) ListSince(ctx context.Context, userID int, since time.Time) ([]domain.AdherenceRecord, error) {
	query := `
		SELECT
			record_id,
			user_id,
			record_date,
			dose_period,
			time_taken,
			scheduled_time,
			deviation_minutes,
			rolling_avg_deviation,
			missed,
			days_since_last_missed,
			total_missed_this_week,
			outcome_next_dose
		FROM adherence_history
		WHERE user_id = $1 AND record_date >= $2
		ORDER BY record_date DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query adherence history: %w", err)
	}
	defer rows.Close()

	var records []domain.AdherenceRecord
	for rows.Next() {
		var rec domain.AdherenceRecord
		var period, outcome string
		if err := rows.Scan(
			&rec.RecordID,
			&rec.UserID,
			&rec.Date,
			&period,
			&rec.TimeTaken,
			&rec.ScheduledTime,
			&rec.DeviationMinutes,
			&rec.RollingAvgDeviation,
			&rec.Missed,
			&rec.DaysSinceLastMissed,
			&rec.TotalMissedThisWeek,
			&outcome,
		); err != nil {
			return nil, fmt.Errorf("failed to scan adherence record: %w", err)
		}
		rec.DosePeriod = domain.DosePeriod(period)
		rec.OutcomeNextDose = domain.DoseOutcome(outcome)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate adherence history: %w", err)
	}
	return records, nil
}
