package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pillbox-backend/internal/domain"
)

// PostgresMedicationsRepository 用药主数据Repository实现（只读）
type PostgresMedicationsRepository struct {
	db *sql.DB
}

// NewPostgresMedicationsRepository 创建用药主数据Repository
func NewPostgresMedicationsRepository(db *sql.DB) *PostgresMedicationsRepository {
	return &PostgresMedicationsRepository{db: db}
}

var _ MedicationsRepository = (*PostgresMedicationsRepository)(nil)

const medicationColumns = `
	id,
	pill_name,
	dosage,
	dose_form,
	start_date,
	end_date,
	reminder_time
`

// ListEligible 按主键顺序返回 Capsule/Tablet 剂型的药物
// 顺序即药仓分配顺序，不引入额外优先级
func (r *PostgresMedicationsRepository) ListEligible(ctx context.Context, limit int) ([]domain.Medication, error) {
	query := `
		SELECT ` + medicationColumns + `
		FROM medications
		WHERE dose_form IN ($1, $2)
		ORDER BY id
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, domain.DoseFormCapsule, domain.DoseFormTablet, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	defer rows.Close()

	var meds []domain.Medication
	for rows.Next() {
		var m domain.Medication
		if err := rows.Scan(
			&m.ID,
			&m.PillName,
			&m.Dosage,
			&m.DoseForm,
			&m.StartDate,
			&m.EndDate,
			&m.ReminderTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		meds = append(meds, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate medications: %w", err)
	}
	return meds, nil
}

func (r *PostgresMedicationsRepository) GetByName(ctx context.Context, pillName string) (*domain.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE pill_name = $1 LIMIT 1`

	var m domain.Medication
	err := r.db.QueryRowContext(ctx, query, pillName).Scan(
		&m.ID,
		&m.PillName,
		&m.Dosage,
		&m.DoseForm,
		&m.StartDate,
		&m.EndDate,
		&m.ReminderTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("failed to query medication %q: %w", pillName, err)
	}
	return &m, nil
}
