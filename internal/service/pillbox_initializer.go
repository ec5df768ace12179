package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pillbox-backend/internal/domain"
	"pillbox-backend/internal/repository"
)

// PillboxInitializer 药盒初始化
// 启动时清空全部药仓，按主数据顺序选取前 N 个 Capsule/Tablet 药物，
// 计算应装入数量并重建药仓记录。同一主数据下重复执行结果一致
type PillboxInitializer struct {
	slots       repository.SlotsRepository
	medications repository.MedicationsRepository
	slotCount   int
	loc         *time.Location
	logger      *zap.Logger
	now         func() time.Time
}

// NewPillboxInitializer 创建药盒初始化器
func NewPillboxInitializer(
	slots repository.SlotsRepository,
	medications repository.MedicationsRepository,
	slotCount int,
	loc *time.Location,
	logger *zap.Logger,
) *PillboxInitializer {
	return &PillboxInitializer{
		slots:       slots,
		medications: medications,
		slotCount:   slotCount,
		loc:         loc,
		logger:      logger,
		now:         time.Now,
	}
}

// Initialize 重建药仓
func (i *PillboxInitializer) Initialize(ctx context.Context) error {
	if err := i.slots.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear pillbox: %w", err)
	}
	i.logger.Info("Initializing pillbox with medications")

	meds, err := i.medications.ListEligible(ctx, i.slotCount)
	if err != nil {
		return fmt.Errorf("failed to list eligible medications: %w", err)
	}

	today := i.now().In(i.loc)
	for idx, med := range meds {
		slot := &domain.PillSlot{
			SlotID:         idx + 1,
			PillName:       med.PillName,
			RemainingCount: med.PillCount(today),
			StartDate:      med.StartDate,
			EndDate:        med.EndDate,
			ReminderTime:   med.ReminderTime,
		}
		if err := i.slots.Insert(ctx, slot); err != nil {
			return fmt.Errorf("failed to initialize slot %d: %w", slot.SlotID, err)
		}

		i.logger.Info("Slot initialized",
			zap.Int("slot_id", slot.SlotID),
			zap.String("pill_name", slot.PillName),
			zap.Int("pill_count", slot.RemainingCount),
		)
	}

	return nil
}
