package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pillbox-backend/internal/domain"
	"pillbox-backend/internal/repository"
	"pillbox-backend/internal/service"
	"pillbox-backend/internal/store"
)

type fakeReadings struct {
	temperature *domain.TemperatureReading
	heartRate   *domain.OximeterReading
	spo2        *domain.OximeterReading
}

func (f *fakeReadings) InsertTemperature(ctx context.Context, r *domain.TemperatureReading) error {
	return nil
}

func (f *fakeReadings) InsertOximeter(ctx context.Context, r *domain.OximeterReading) error {
	return nil
}

func (f *fakeReadings) LatestTemperature(ctx context.Context) (*domain.TemperatureReading, error) {
	if f.temperature == nil {
		return nil, repository.ErrNoReadings
	}
	return f.temperature, nil
}

func (f *fakeReadings) LatestOximeter(ctx context.Context, readingType string) (*domain.OximeterReading, error) {
	switch readingType {
	case domain.ReadingHeartRate:
		if f.heartRate != nil {
			return f.heartRate, nil
		}
	case domain.ReadingSpO2:
		if f.spo2 != nil {
			return f.spo2, nil
		}
	}
	return nil, repository.ErrNoReadings
}

type fakeVitalsRepo struct {
	inserted []*domain.HealthVitals
}

func (f *fakeVitalsRepo) Insert(ctx context.Context, v *domain.HealthVitals) error {
	f.inserted = append(f.inserted, v)
	return nil
}

type emptyKV struct{}

func (emptyKV) Get(ctx context.Context, key string) (string, error) { return "", store.ErrMiss }

func (emptyKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return nil
}

type fakePredictor struct {
	predictions map[string]string
}

func (f *fakePredictor) Predict(ctx context.Context, vitals *domain.HealthVitals) (map[string]string, error) {
	return f.predictions, nil
}

func newTestRouter(readings *fakeReadings, vitalsRepo *fakeVitalsRepo, predictor *fakePredictor) *Router {
	logger := zap.NewNop()
	svc := service.NewVitalsService(readings, vitalsRepo, emptyKV{}, predictor, logger)
	r := NewRouter(logger)
	r.RegisterVitalsRoutes(NewVitalsHandler(svc, logger))
	return r
}

func TestGetLatestVitals_NoData(t *testing.T) {
	router := newTestRouter(&fakeReadings{}, &fakeVitalsRepo{}, &fakePredictor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/latestVitals", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "No vitals data found.", body["error"])
}

func TestGetLatestVitals_PartialData(t *testing.T) {
	readings := &fakeReadings{
		temperature: &domain.TemperatureReading{Celsius: 36.9, RecordedAt: time.Now()},
		spo2:        &domain.OximeterReading{Type: domain.ReadingSpO2, Value: 97, RecordedAt: time.Now()},
	}
	router := newTestRouter(readings, &fakeVitalsRepo{}, &fakePredictor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vitals/latest", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 36.9, body["temperature"])
	assert.Equal(t, 97.0, body["spo2"])
	_, hasHeartRate := body["heart_rate"]
	assert.False(t, hasHeartRate)
}

func TestPredictVitals_Success(t *testing.T) {
	vitalsRepo := &fakeVitalsRepo{}
	predictor := &fakePredictor{predictions: map[string]string{"diabetes": "No", "hypertension": "Yes"}}
	router := newTestRouter(&fakeReadings{}, vitalsRepo, predictor)

	payload := `{"glucose": 110, "diastolic": 82, "systolic": 135, "heart_rate": 78, "temperature": 36.7, "spo2": 98}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predictVitals", strings.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Message     string            `json:"message"`
		Predictions map[string]string `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Health vitals saved to DB", body.Message)
	assert.Equal(t, "Yes", body.Predictions["hypertension"])

	require.Len(t, vitalsRepo.inserted, 1)
	assert.Equal(t, 110.0, vitalsRepo.inserted[0].Glucose)
	assert.Equal(t, 135.0, vitalsRepo.inserted[0].Systolic)
}

func TestPredictVitals_MissingField(t *testing.T) {
	router := newTestRouter(&fakeReadings{}, &fakeVitalsRepo{}, &fakePredictor{})

	payload := `{"glucose": 110, "diastolic": 82, "systolic": 135, "heart_rate": 78, "temperature": 36.7}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predictVitals", strings.NewReader(payload)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "spo2")
}

func TestPredictVitals_NonNumericField(t *testing.T) {
	router := newTestRouter(&fakeReadings{}, &fakeVitalsRepo{}, &fakePredictor{})

	payload := `{"glucose": "high", "diastolic": 82, "systolic": 135, "heart_rate": 78, "temperature": 36.7, "spo2": 98}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predictVitals", strings.NewReader(payload)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictVitals_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(&fakeReadings{}, &fakeVitalsRepo{}, &fakePredictor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predictVitals", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRootBanner(t *testing.T) {
	router := newTestRouter(&fakeReadings{}, &fakeVitalsRepo{}, &fakePredictor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to the Health Vitals API")
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(&fakeReadings{}, &fakeVitalsRepo{}, &fakePredictor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/predictVitals", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
