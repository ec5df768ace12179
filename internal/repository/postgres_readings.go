package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pillbox-backend/internal/domain"
)

// PostgresReadingsRepository 传感器读数Repository实现
type PostgresReadingsRepository struct {
	db *sql.DB
}

// NewPostgresReadingsRepository 创建传感器读数Repository
func NewPostgresReadingsRepository(db *sql.DB) *PostgresReadingsRepository {
	return &PostgresReadingsRepository{db: db}
}

var _ ReadingsRepository = (*PostgresReadingsRepository)(nil)

func (r *PostgresReadingsRepository) InsertTemperature(ctx context.Context, t *domain.TemperatureReading) error {
	query := `
		INSERT INTO temperature_readings (user_id, value_celsius, recorded_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, t.UserID, t.Celsius, t.RecordedAt); err != nil {
		return fmt.Errorf("failed to insert temperature reading: %w", err)
	}
	return nil
}

func (r *PostgresReadingsRepository) InsertOximeter(ctx context.Context, o *domain.OximeterReading) error {
	query := `
		INSERT INTO oximeter_readings (user_id, reading_type, value, recorded_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, o.UserID, o.Type, o.Value, o.RecordedAt); err != nil {
		return fmt.Errorf("failed to insert oximeter reading: %w", err)
	}
	return nil
}

func (r *PostgresReadingsRepository) LatestTemperature(ctx context.Context) (*domain.TemperatureReading, error) {
	query := `
		SELECT user_id, value_celsius, recorded_at
		FROM temperature_readings
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	t := &domain.TemperatureReading{}
	err := r.db.QueryRowContext(ctx, query).Scan(&t.UserID, &t.Celsius, &t.RecordedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoReadings
		}
		return nil, fmt.Errorf("failed to query latest temperature: %w", err)
	}
	return t, nil
}

func (r *PostgresReadingsRepository) LatestOximeter(ctx context.Context, readingType string) (*domain.OximeterReading, error) {
	query := `
		SELECT user_id, reading_type, value, recorded_at
		FROM oximeter_readings
		WHERE reading_type = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	o := &domain.OximeterReading{}
	err := r.db.QueryRowContext(ctx, query, readingType).Scan(&o.UserID, &o.Type, &o.Value, &o.RecordedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoReadings
		}
		return nil, fmt.Errorf("failed to query latest oximeter reading: %w", err)
	}
	return o, nil
}
