package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pillbox-backend/internal/domain"
)

// PostgresSlotsRepository 药仓Repository实现
type PostgresSlotsRepository struct {
	db *sql.DB
}

// NewPostgresSlotsRepository 创建药仓Repository
func NewPostgresSlotsRepository(db *sql.DB) *PostgresSlotsRepository {
	return &PostgresSlotsRepository{db: db}
}

// 确保实现了接口
var _ SlotsRepository = (*PostgresSlotsRepository)(nil)

const slotColumns = `
	slot_id,
	pill_name,
	remaining_count,
	start_date,
	end_date,
	reminder_time,
	last_taken_at,
	last_dose_period,
	avg_deviation_minutes
`

func (r *PostgresSlotsRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pill_slots`); err != nil {
		return fmt.Errorf("failed to clear pill slots: %w", err)
	}
	return nil
}

func (r *PostgresSlotsRepository) Insert(ctx context.Context, slot *domain.PillSlot) error {
	query := `
		INSERT INTO pill_slots (
			slot_id, pill_name, remaining_count,
			start_date, end_date, reminder_time,
			last_taken_at, last_dose_period, avg_deviation_minutes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		slot.SlotID,
		slot.PillName,
		slot.RemainingCount,
		slot.StartDate,
		slot.EndDate,
		slot.ReminderTime,
		slot.LastTakenAt,
		slot.LastDosePeriod,
		slot.AvgDeviationMinutes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pill slot %d: %w", slot.SlotID, err)
	}
	return nil
}

func (r *PostgresSlotsRepository) GetBySlotID(ctx context.Context, slotID int) (*domain.PillSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM pill_slots WHERE slot_id = $1 LIMIT 1`

	slot, err := scanSlot(r.db.QueryRowContext(ctx, query, slotID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to query pill slot %d: %w", slotID, err)
	}
	return slot, nil
}

func (r *PostgresSlotsRepository) List(ctx context.Context) ([]domain.PillSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM pill_slots ORDER BY slot_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pill slots: %w", err)
	}
	defer rows.Close()

	var slots []domain.PillSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pill slot: %w", err)
		}
		slots = append(slots, *slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pill slots: %w", err)
	}
	return slots, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSlot(row rowScanner) (*domain.PillSlot, error) {
	slot := &domain.PillSlot{}
	var lastTaken sql.NullString
	var lastPeriod sql.NullString

	err := row.Scan(
		&slot.SlotID,
		&slot.PillName,
		&slot.RemainingCount,
		&slot.StartDate,
		&slot.EndDate,
		&slot.ReminderTime,
		&lastTaken,
		&lastPeriod,
		&slot.AvgDeviationMinutes,
	)
	if err != nil {
		return nil, err
	}

	if lastTaken.Valid {
		slot.LastTakenAt = &lastTaken.String
	}
	if lastPeriod.Valid {
		p := domain.DosePeriod(lastPeriod.String)
		slot.LastDosePeriod = &p
	}
	return slot, nil
}
