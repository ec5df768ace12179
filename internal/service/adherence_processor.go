package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pillbox-backend/internal/domain"
	"pillbox-backend/internal/repository"
)

// 提醒时间的12小时制格式，如 "08:00 AM"
const reminderLayout = "3:04 PM"

// AdherenceProcessor 服药事件处理器
// 消费"药仓取药"事件：扣减库存、计算偏差、维护7天滚动统计、
// 回填上一时段记录的结果字段
type AdherenceProcessor struct {
	slots  repository.SlotsRepository
	intake repository.IntakeStore
	logger *zap.Logger
	userID int
	loc    *time.Location
	now    func() time.Time
}

// NewAdherenceProcessor 创建服药事件处理器
func NewAdherenceProcessor(
	slots repository.SlotsRepository,
	intake repository.IntakeStore,
	userID int,
	loc *time.Location,
	logger *zap.Logger,
) *AdherenceProcessor {
	return &AdherenceProcessor{
		slots:  slots,
		intake: intake,
		logger: logger,
		userID: userID,
		loc:    loc,
		now:    time.Now,
	}
}

// ProcessIntake 处理一次取药事件
// 预期内的丢弃（药仓不存在、库存为空）返回 nil，仅记录日志；
// 只有存储层故障才返回 error
func (p *AdherenceProcessor) ProcessIntake(ctx context.Context, slotID int) error {
	slot, err := p.slots.GetBySlotID(ctx, slotID)
	if err != nil {
		if err == repository.ErrSlotNotFound {
			p.logger.Warn("Intake event for unknown slot, discarding",
				zap.Int("slot_id", slotID),
			)
			return nil
		}
		return fmt.Errorf("failed to load slot %d: %w", slotID, err)
	}
	if slot.RemainingCount <= 0 {
		p.logger.Warn("Intake event for empty slot, discarding",
			zap.Int("slot_id", slotID),
			zap.String("pill_name", slot.PillName),
		)
		return nil
	}

	localTime := p.now().In(p.loc)
	today := time.Date(localTime.Year(), localTime.Month(), localTime.Day(), 0, 0, 0, 0, p.loc)
	currentMinutes := localTime.Hour()*60 + localTime.Minute()
	period := domain.PeriodForHour(localTime.Hour())
	timeTaken := localTime.Format("15:04")

	// 计划时间解析失败时退化为当前时间（偏差为0），不中断事件
	scheduledMinutes, err := parseReminderMinutes(slot.ReminderTime)
	if err != nil {
		p.logger.Warn("Invalid reminder time, falling back to current time",
			zap.Int("slot_id", slotID),
			zap.String("reminder_time", slot.ReminderTime),
		)
		scheduledMinutes = currentMinutes
	}

	deviation := currentMinutes - scheduledMinutes
	if deviation < 0 {
		deviation = -deviation
	}

	tx, err := p.intake.BeginIntake(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	applied, err := tx.DecrementSlot(ctx, slotID, timeTaken, period, deviation)
	if err != nil {
		return err
	}
	if !applied {
		// 并发事件先到一步把最后一片扣掉了
		p.logger.Warn("Slot emptied concurrently, discarding intake event",
			zap.Int("slot_id", slotID),
		)
		return nil
	}

	weekAgo := today.AddDate(0, 0, -7)

	deviations, err := tx.RecentDeviations(ctx, p.userID, weekAgo)
	if err != nil {
		return err
	}
	rollingAvg := rollingAverage(deviations, deviation)

	lastMissed, err := tx.LastMissedDate(ctx, p.userID)
	if err != nil {
		return err
	}
	daysSinceLastMissed := 0
	if lastMissed != nil {
		daysSinceLastMissed = daysBetween(*lastMissed, today)
	}

	totalMissedWeek, err := tx.CountMissedSince(ctx, p.userID, weekAgo)
	if err != nil {
		return err
	}

	// 本次服药证明了上一时段记录的"下一次是否漏服"问题：回填为 taken
	backfilled, err := tx.ResolvePreviousOutcome(ctx, p.userID, period.Predecessor())
	if err != nil {
		return err
	}

	rec := &domain.AdherenceRecord{
		RecordID:            uuid.NewString(),
		UserID:              p.userID,
		Date:                today,
		DosePeriod:          period,
		TimeTaken:           timeTaken,
		ScheduledTime:       slot.ReminderTime,
		DeviationMinutes:    deviation,
		RollingAvgDeviation: rollingAvg,
		Missed:              false,
		DaysSinceLastMissed: daysSinceLastMissed,
		TotalMissedThisWeek: totalMissedWeek,
		OutcomeNextDose:     domain.OutcomePending,
	}
	if err := tx.InsertRecord(ctx, rec); err != nil {
		// 插入失败时重试一次；仍失败则整体回滚，扣减不落库（不留半写状态）
		p.logger.Warn("Adherence record insert failed, retrying once", zap.Error(err))
		if err := tx.InsertRecord(ctx, rec); err != nil {
			return fmt.Errorf("failed to insert adherence record after retry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit intake transaction: %w", err)
	}

	p.logger.Info("Logged pill intake",
		zap.Int("slot_id", slotID),
		zap.String("pill_name", slot.PillName),
		zap.String("dose_period", string(period)),
		zap.Int("deviation_minutes", deviation),
		zap.Float64("rolling_avg_deviation", rollingAvg),
		zap.Bool("previous_outcome_backfilled", backfilled),
	)
	return nil
}

func parseReminderMinutes(reminder string) (int, error) {
	t, err := time.Parse(reminderLayout, reminder)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func rollingAverage(prior []int, current int) float64 {
	sum := current
	for _, d := range prior {
		sum += d
	}
	avg := float64(sum) / float64(len(prior)+1)
	return math.Round(avg*100) / 100
}

func daysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
