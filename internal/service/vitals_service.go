package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pillbox-backend/internal/domain"
	"pillbox-backend/internal/repository"
	"pillbox-backend/internal/store"
)

// ErrNoVitals 三项传感器数据均不存在
var ErrNoVitals = errors.New("no vitals data found")

// LatestVitals 最新一次的三项传感器体征（字段可缺失）
type LatestVitals struct {
	Temperature *float64
	HeartRate   *float64
	SpO2        *float64
}

// VitalsService 体征查询与预测
// 查询优先走 Redis 最新值缓存，未命中再回落到数据库
type VitalsService struct {
	readings  repository.ReadingsRepository
	vitals    repository.VitalsRepository
	kv        store.KV
	predictor Predictor
	logger    *zap.Logger
	now       func() time.Time
}

// NewVitalsService 创建体征服务
func NewVitalsService(
	readings repository.ReadingsRepository,
	vitals repository.VitalsRepository,
	kv store.KV,
	predictor Predictor,
	logger *zap.Logger,
) *VitalsService {
	return &VitalsService{
		readings:  readings,
		vitals:    vitals,
		kv:        kv,
		predictor: predictor,
		logger:    logger,
		now:       time.Now,
	}
}

// Latest 返回最新的体温/心率/SpO2；三者均缺失返回 ErrNoVitals
func (s *VitalsService) Latest(ctx context.Context) (*LatestVitals, error) {
	result := &LatestVitals{}

	result.Temperature = s.latestFromCache(ctx, store.KeyLatestTemperature)
	if result.Temperature == nil {
		if r, err := s.readings.LatestTemperature(ctx); err == nil {
			result.Temperature = &r.Celsius
		} else if err != repository.ErrNoReadings {
			return nil, err
		}
	}

	result.HeartRate = s.latestFromCache(ctx, store.KeyLatestHeartRate)
	if result.HeartRate == nil {
		if r, err := s.readings.LatestOximeter(ctx, domain.ReadingHeartRate); err == nil {
			result.HeartRate = &r.Value
		} else if err != repository.ErrNoReadings {
			return nil, err
		}
	}

	result.SpO2 = s.latestFromCache(ctx, store.KeyLatestSpO2)
	if result.SpO2 == nil {
		if r, err := s.readings.LatestOximeter(ctx, domain.ReadingSpO2); err == nil {
			result.SpO2 = &r.Value
		} else if err != repository.ErrNoReadings {
			return nil, err
		}
	}

	if result.Temperature == nil && result.HeartRate == nil && result.SpO2 == nil {
		return nil, ErrNoVitals
	}
	return result, nil
}

// SubmitAndPredict 保存六项体征并调用推理服务返回预测结果
func (s *VitalsService) SubmitAndPredict(ctx context.Context, v *domain.HealthVitals) (map[string]string, error) {
	v.RecordedAt = s.now().UTC()

	if err := s.vitals.Insert(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to save health vitals: %w", err)
	}

	predictions, err := s.predictor.Predict(ctx, v)
	if err != nil {
		return nil, err
	}
	return predictions, nil
}

func (s *VitalsService) latestFromCache(ctx context.Context, key string) *float64 {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if err != store.ErrMiss {
			s.logger.Warn("Latest-vitals cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var cached CachedReading
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil
	}
	return &cached.Value
}
