package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"pillbox-backend/internal/repository"
)

// Publisher MQTT发布接口（由 mqtt.Client 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// SchedulePayload 下发给设备的服药计划
type SchedulePayload struct {
	Dosage       int    `json:"dosage"`
	ReminderTime string `json:"reminderTime"`
}

// SchedulePublisher 服药计划下发
// 遍历药仓，按药名关联用药主数据，向 pillbox/schedule/<slot> 逐仓发布
type SchedulePublisher struct {
	slots       repository.SlotsRepository
	medications repository.MedicationsRepository
	publisher   Publisher
	topicPrefix string
	qos         byte
	logger      *zap.Logger
}

// NewSchedulePublisher 创建服药计划下发器
func NewSchedulePublisher(
	slots repository.SlotsRepository,
	medications repository.MedicationsRepository,
	publisher Publisher,
	topicPrefix string,
	qos byte,
	logger *zap.Logger,
) *SchedulePublisher {
	return &SchedulePublisher{
		slots:       slots,
		medications: medications,
		publisher:   publisher,
		topicPrefix: topicPrefix,
		qos:         qos,
		logger:      logger,
	}
}

// PublishAll 下发所有药仓的服药计划
// 字段不全或主数据缺失的药仓跳过并记录日志，不中断其余药仓
func (p *SchedulePublisher) PublishAll(ctx context.Context) error {
	slots, err := p.slots.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list slots for schedule push: %w", err)
	}

	published := 0
	for i := range slots {
		slot := &slots[i]
		if !slot.Complete() {
			p.logger.Warn("Skipping slot with incomplete data",
				zap.Int("slot_id", slot.SlotID),
				zap.String("pill_name", slot.PillName),
			)
			continue
		}

		med, err := p.medications.GetByName(ctx, slot.PillName)
		if err != nil {
			if err == repository.ErrMedicationNotFound {
				p.logger.Warn("No medication details found for slot",
					zap.Int("slot_id", slot.SlotID),
					zap.String("pill_name", slot.PillName),
				)
				continue
			}
			return fmt.Errorf("failed to load medication for slot %d: %w", slot.SlotID, err)
		}

		payload, err := json.Marshal(SchedulePayload{
			Dosage:       med.Dosage,
			ReminderTime: slot.ReminderTime,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal schedule payload: %w", err)
		}

		topic := fmt.Sprintf("%s/%d", p.topicPrefix, slot.SlotID)
		if err := p.publisher.Publish(topic, p.qos, false, payload); err != nil {
			return fmt.Errorf("failed to publish schedule for slot %d: %w", slot.SlotID, err)
		}

		p.logger.Info("Published slot schedule",
			zap.String("topic", topic),
			zap.String("pill_name", slot.PillName),
			zap.Int("dosage", med.Dosage),
			zap.String("reminder_time", slot.ReminderTime),
		)
		published++
	}

	p.logger.Info("Schedule push finished",
		zap.Int("slots", len(slots)),
		zap.Int("published", published),
	)
	return nil
}
