package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pillbox-backend/internal/domain"
)

// PostgresVitalsRepository 六项体征Repository实现
type PostgresVitalsRepository struct {
	db *sql.DB
}

// NewPostgresVitalsRepository 创建体征Repository
func NewPostgresVitalsRepository(db *sql.DB) *PostgresVitalsRepository {
	return &PostgresVitalsRepository{db: db}
}

var _ VitalsRepository = (*PostgresVitalsRepository)(nil)

func (r *PostgresVitalsRepository) Insert(ctx context.Context, v *domain.HealthVitals) error {
	query := `
		INSERT INTO health_vitals (
			glucose, diastolic, systolic, heart_rate, temperature, spo2, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.Glucose,
		v.Diastolic,
		v.Systolic,
		v.HeartRate,
		v.Temperature,
		v.SpO2,
		v.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert health vitals: %w", err)
	}
	return nil
}
