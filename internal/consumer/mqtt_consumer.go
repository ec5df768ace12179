package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"pillbox-backend/internal/config"
	mqttcommon "pillbox-backend/internal/mqtt"
)

// IntakeProcessor 服药事件处理接口（由 service.AdherenceProcessor 实现）
type IntakeProcessor interface {
	ProcessIntake(ctx context.Context, slotID int) error
}

// SensorHandler 传感器摄取接口（由 service.SensorIngest 实现）
type SensorHandler interface {
	HandleTemperature(ctx context.Context, value float64) error
	HandleOximeter(ctx context.Context, heartRate, spo2 *float64) error
}

// 每个药仓的事件队列深度；溢出即丢弃并记录日志，慢存储不能阻塞MQTT投递
const slotQueueDepth = 16

// intakePayload 取药事件载荷
type intakePayload struct {
	Partition *int `json:"partition"`
}

// temperaturePayload 温度载荷
type temperaturePayload struct {
	Temperature *float64 `json:"temperature"`
}

// oximeterPayload 血氧仪载荷（两个字段可任意缺失）
type oximeterPayload struct {
	HeartRate *float64 `json:"heart_rate"`
	SpO2      *float64 `json:"spo2"`
}

// MQTTConsumer 药盒MQTT消息消费者
// 取药事件按药仓分发到独立worker：同一药仓串行处理，不同药仓并行；
// 传感器摄取与服药处理互不阻塞
type MQTTConsumer struct {
	config    *config.Config
	client    *mqttcommon.Client
	processor IntakeProcessor
	ingest    SensorHandler
	logger    *zap.Logger

	slotQueues map[int]chan int
	wg         sync.WaitGroup
	ctx        context.Context
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	client *mqttcommon.Client,
	processor IntakeProcessor,
	ingest SensorHandler,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:     cfg,
		client:     client,
		processor:  processor,
		ingest:     ingest,
		logger:     logger,
		slotQueues: make(map[int]chan int),
	}
}

// Start 启动消费者：拉起每仓worker并订阅全部主题
func (c *MQTTConsumer) Start(ctx context.Context) error {
	c.ctx = ctx

	for slot := 1; slot <= c.config.Pillbox.SlotCount; slot++ {
		queue := make(chan int, slotQueueDepth)
		c.slotQueues[slot] = queue
		c.wg.Add(1)
		go c.slotWorker(ctx, slot, queue)
	}

	qos := c.config.MQTT.QoS
	for slot := 1; slot <= c.config.Pillbox.SlotCount; slot++ {
		topic := fmt.Sprintf("%s%d", c.config.Pillbox.Topics.Partition, slot)
		if err := c.client.Subscribe(topic, qos, c.handleIntakeMessage); err != nil {
			return fmt.Errorf("failed to subscribe to intake topic: %w", err)
		}
		c.logger.Info("Subscribed to intake topic", zap.String("topic", topic))
	}

	if err := c.client.Subscribe(c.config.Pillbox.Topics.Temperature, qos, c.handleTemperatureMessage); err != nil {
		return fmt.Errorf("failed to subscribe to temperature topic: %w", err)
	}
	if err := c.client.Subscribe(c.config.Pillbox.Topics.Oximeter, qos, c.handleOximeterMessage); err != nil {
		return fmt.Errorf("failed to subscribe to oximeter topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.Int("slot_count", c.config.Pillbox.SlotCount),
		zap.String("temperature_topic", c.config.Pillbox.Topics.Temperature),
		zap.String("oximeter_topic", c.config.Pillbox.Topics.Oximeter),
	)
	return nil
}

// Stop 停止消费者：取消订阅并等待队列排空
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	topics := []string{
		c.config.Pillbox.Topics.Temperature,
		c.config.Pillbox.Topics.Oximeter,
	}
	for slot := 1; slot <= c.config.Pillbox.SlotCount; slot++ {
		topics = append(topics, fmt.Sprintf("%s%d", c.config.Pillbox.Topics.Partition, slot))
	}
	if err := c.client.Unsubscribe(topics...); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	for _, queue := range c.slotQueues {
		close(queue)
	}
	c.wg.Wait()

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// slotWorker 单个药仓的串行处理循环
func (c *MQTTConsumer) slotWorker(ctx context.Context, slot int, queue chan int) {
	defer c.wg.Done()
	for slotID := range queue {
		if err := c.processor.ProcessIntake(ctx, slotID); err != nil {
			// 存储层错误：事件丢弃，处理循环继续
			c.logger.Error("Failed to process intake event",
				zap.Int("slot_id", slotID),
				zap.Error(err),
			)
		}
	}
	c.logger.Debug("Slot worker exited", zap.Int("slot", slot))
}

// handleIntakeMessage 处理取药事件消息
func (c *MQTTConsumer) handleIntakeMessage(topic string, payload []byte) error {
	var msg intakePayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("malformed intake payload on %s: %w", topic, err)
	}
	if msg.Partition == nil {
		return fmt.Errorf("intake payload on %s missing partition field", topic)
	}

	slotID := *msg.Partition
	queue, ok := c.slotQueues[slotID]
	if !ok {
		return fmt.Errorf("intake event for out-of-range slot %d", slotID)
	}

	select {
	case queue <- slotID:
		return nil
	default:
		return fmt.Errorf("slot %d queue full, dropping intake event", slotID)
	}
}

// handleTemperatureMessage 处理温度消息
func (c *MQTTConsumer) handleTemperatureMessage(topic string, payload []byte) error {
	var msg temperaturePayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("malformed temperature payload on %s: %w", topic, err)
	}
	if msg.Temperature == nil {
		return nil
	}
	return c.ingest.HandleTemperature(c.ctx, *msg.Temperature)
}

// handleOximeterMessage 处理血氧仪消息
func (c *MQTTConsumer) handleOximeterMessage(topic string, payload []byte) error {
	var msg oximeterPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("malformed oximeter payload on %s: %w", topic, err)
	}
	return c.ingest.HandleOximeter(c.ctx, msg.HeartRate, msg.SpO2)
}
