package repository

import (
	"context"
	"errors"
	"time"

	"pillbox-backend/internal/domain"
)

// 预期内的查询失败（调用方按业务分支处理，不作为系统错误）
var (
	ErrSlotNotFound       = errors.New("pill slot not found")
	ErrMedicationNotFound = errors.New("medication not found")
	ErrNoReadings         = errors.New("no sensor readings")
)

// SlotsRepository 药仓存取
type SlotsRepository interface {
	DeleteAll(ctx context.Context) error
	Insert(ctx context.Context, slot *domain.PillSlot) error
	GetBySlotID(ctx context.Context, slotID int) (*domain.PillSlot, error)
	List(ctx context.Context) ([]domain.PillSlot, error)
}

// MedicationsRepository 用药主数据（外部维护，只读）
type MedicationsRepository interface {
	// ListEligible 按主键顺序返回可装入药仓的药物（Capsule/Tablet），最多 limit 个
	ListEligible(ctx context.Context, limit int) ([]domain.Medication, error)
	GetByName(ctx context.Context, pillName string) (*domain.Medication, error)
}

// AdherenceRepository 服药历史查询（HTTP 查询与导出用）
type AdherenceRepository interface {
	ListSince(ctx context.Context, userID int, since time.Time) ([]domain.AdherenceRecord, error)
}

// IntakeStore 服药事件的事务性写入入口
// 步骤 4-7（扣减、统计读取、回填、插入）在同一事务内完成
type IntakeStore interface {
	BeginIntake(ctx context.Context) (IntakeTx, error)
}

// IntakeTx 单次服药事件的事务
type IntakeTx interface {
	// DecrementSlot 原子扣减：仅当 remaining_count > 0 时扣减并更新服药元数据，
	// 返回是否实际扣减
	DecrementSlot(ctx context.Context, slotID int, timeTaken string, period domain.DosePeriod, deviationMinutes int) (bool, error)
	// RecentDeviations 返回用户在 since 之后各记录的原始偏差值
	RecentDeviations(ctx context.Context, userID int, since time.Time) ([]int, error)
	// LastMissedDate 返回最近一次漏服记录的日期，无则返回 nil
	LastMissedDate(ctx context.Context, userID int) (*time.Time, error)
	CountMissedSince(ctx context.Context, userID int, since time.Time) (int, error)
	// ResolvePreviousOutcome 将用户最近一条指定时段且结果仍为 pending 的记录回填为 taken，
	// 返回是否有记录被回填
	ResolvePreviousOutcome(ctx context.Context, userID int, period domain.DosePeriod) (bool, error)
	InsertRecord(ctx context.Context, rec *domain.AdherenceRecord) error
	Commit() error
	Rollback() error
}

// ReadingsRepository 传感器读数存取
type ReadingsRepository interface {
	InsertTemperature(ctx context.Context, r *domain.TemperatureReading) error
	InsertOximeter(ctx context.Context, r *domain.OximeterReading) error
	LatestTemperature(ctx context.Context) (*domain.TemperatureReading, error)
	LatestOximeter(ctx context.Context, readingType string) (*domain.OximeterReading, error)
}

// VitalsRepository 客户端提交的六项体征
type VitalsRepository interface {
	Insert(ctx context.Context, v *domain.HealthVitals) error
}
