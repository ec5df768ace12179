package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pillbox-backend/internal/domain"
	"pillbox-backend/internal/store"
)

// MockReadingsRepository 是 ReadingsRepository 的 mock 实现
type MockReadingsRepository struct {
	mock.Mock
}

func (m *MockReadingsRepository) InsertTemperature(ctx context.Context, r *domain.TemperatureReading) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReadingsRepository) InsertOximeter(ctx context.Context, r *domain.OximeterReading) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReadingsRepository) LatestTemperature(ctx context.Context) (*domain.TemperatureReading, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TemperatureReading), args.Error(1)
}

func (m *MockReadingsRepository) LatestOximeter(ctx context.Context, readingType string) (*domain.OximeterReading, error) {
	args := m.Called(ctx, readingType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OximeterReading), args.Error(1)
}

func newTestIngest(t *testing.T, readings *MockReadingsRepository) (*SensorIngest, store.KV) {
	mr := miniredis.RunT(t)
	kv := store.NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return NewSensorIngest(readings, kv, 1, time.UTC, zap.NewNop()), kv
}

func TestHandleTemperature_FilteredUntilStable(t *testing.T) {
	readings := &MockReadingsRepository{}
	ingest, kv := newTestIngest(t, readings)
	ctx := context.Background()

	readings.On("InsertTemperature", mock.Anything, mock.MatchedBy(func(r *domain.TemperatureReading) bool {
		return r.Celsius == 36.8 && r.UserID == 1
	})).Return(nil).Once()

	// 前3个采样被过滤，第4个稳定采样落库
	require.NoError(t, ingest.HandleTemperature(ctx, 36.8))
	require.NoError(t, ingest.HandleTemperature(ctx, 36.8))
	require.NoError(t, ingest.HandleTemperature(ctx, 36.8))
	require.NoError(t, ingest.HandleTemperature(ctx, 36.8))

	readings.AssertExpectations(t)

	// 最新值缓存已刷新
	raw, err := kv.Get(ctx, store.KeyLatestTemperature)
	require.NoError(t, err)
	var cached CachedReading
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, 36.8, cached.Value)
}

func TestHandleOximeter_BothValues(t *testing.T) {
	readings := &MockReadingsRepository{}
	ingest, kv := newTestIngest(t, readings)
	ctx := context.Background()

	readings.On("InsertOximeter", mock.Anything, mock.MatchedBy(func(r *domain.OximeterReading) bool {
		return r.Type == domain.ReadingHeartRate && r.Value == 72
	})).Return(nil).Once()
	readings.On("InsertOximeter", mock.Anything, mock.MatchedBy(func(r *domain.OximeterReading) bool {
		return r.Type == domain.ReadingSpO2 && r.Value == 98
	})).Return(nil).Once()

	hr, spo2 := 72.0, 98.0
	require.NoError(t, ingest.HandleOximeter(ctx, &hr, &spo2))

	readings.AssertExpectations(t)

	_, err := kv.Get(ctx, store.KeyLatestHeartRate)
	assert.NoError(t, err)
	_, err = kv.Get(ctx, store.KeyLatestSpO2)
	assert.NoError(t, err)
}

func TestHandleOximeter_MissingAndZeroSkipped(t *testing.T) {
	readings := &MockReadingsRepository{}
	ingest, _ := newTestIngest(t, readings)

	zero := 0.0
	require.NoError(t, ingest.HandleOximeter(context.Background(), nil, &zero))

	readings.AssertNotCalled(t, "InsertOximeter", mock.Anything, mock.Anything)
}
