package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"pillbox-backend/internal/domain"
	"pillbox-backend/internal/repository"
	"pillbox-backend/internal/store"
)

// CachedReading 最新读数缓存条目
type CachedReading struct {
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SensorIngest 传感器数据摄取
// 温度经稳定性过滤后写入，心率/SpO2 直接写入；
// 每次落库同时刷新 Redis 最新值缓存，供查询接口快速读取
type SensorIngest struct {
	readings repository.ReadingsRepository
	kv       store.KV
	filter   *StabilityFilter
	logger   *zap.Logger
	userID   int
	loc      *time.Location
	now      func() time.Time
}

// NewSensorIngest 创建传感器摄取服务
func NewSensorIngest(
	readings repository.ReadingsRepository,
	kv store.KV,
	userID int,
	loc *time.Location,
	logger *zap.Logger,
) *SensorIngest {
	return &SensorIngest{
		readings: readings,
		kv:       kv,
		filter:   NewStabilityFilter(),
		logger:   logger,
		userID:   userID,
		loc:      loc,
		now:      time.Now,
	}
}

// HandleTemperature 处理一个温度采样
func (s *SensorIngest) HandleTemperature(ctx context.Context, value float64) error {
	if !s.filter.Observe(value) {
		return nil
	}

	reading := &domain.TemperatureReading{
		UserID:     s.userID,
		Celsius:    value,
		RecordedAt: s.now().In(s.loc),
	}
	if err := s.readings.InsertTemperature(ctx, reading); err != nil {
		return err
	}
	s.cacheLatest(ctx, store.KeyLatestTemperature, value, reading.RecordedAt)

	s.logger.Info("Stable temperature stored", zap.Float64("celsius", value))
	return nil
}

// HandleOximeter 处理一条血氧仪消息
// heart_rate / spo2 两个字段可任意缺失；缺失或为0的字段跳过
func (s *SensorIngest) HandleOximeter(ctx context.Context, heartRate, spo2 *float64) error {
	recordedAt := s.now().In(s.loc)

	if heartRate != nil && *heartRate != 0 {
		reading := &domain.OximeterReading{
			UserID:     s.userID,
			Type:       domain.ReadingHeartRate,
			Value:      *heartRate,
			RecordedAt: recordedAt,
		}
		if err := s.readings.InsertOximeter(ctx, reading); err != nil {
			return err
		}
		s.cacheLatest(ctx, store.KeyLatestHeartRate, *heartRate, recordedAt)
	}

	if spo2 != nil && *spo2 != 0 {
		reading := &domain.OximeterReading{
			UserID:     s.userID,
			Type:       domain.ReadingSpO2,
			Value:      *spo2,
			RecordedAt: recordedAt,
		}
		if err := s.readings.InsertOximeter(ctx, reading); err != nil {
			return err
		}
		s.cacheLatest(ctx, store.KeyLatestSpO2, *spo2, recordedAt)
	}

	return nil
}

// cacheLatest 刷新最新值缓存；缓存失败只记日志，不影响落库结果
func (s *SensorIngest) cacheLatest(ctx context.Context, key string, value float64, at time.Time) {
	raw, err := json.Marshal(CachedReading{Value: value, RecordedAt: at})
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, key, string(raw), 0); err != nil {
		s.logger.Warn("Failed to update latest-vitals cache",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
