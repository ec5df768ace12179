package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"pillbox-backend/internal/domain"
	"pillbox-backend/internal/service"
)

// VitalsHandler 体征查询与预测HTTP处理器
type VitalsHandler struct {
	vitals *service.VitalsService
	logger *zap.Logger
}

func NewVitalsHandler(vitals *service.VitalsService, logger *zap.Logger) *VitalsHandler {
	return &VitalsHandler{vitals: vitals, logger: logger}
}

type latestVitalsResponse struct {
	Temperature *float64 `json:"temperature,omitempty"`
	HeartRate   *float64 `json:"heart_rate,omitempty"`
	SpO2        *float64 `json:"spo2,omitempty"`
}

// GetLatest GET /latestVitals
// 三项体征均无数据时返回404
func (h *VitalsHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.vitals.Latest(r.Context())
	if err != nil {
		if err == service.ErrNoVitals {
			writeError(w, http.StatusNotFound, "No vitals data found.")
			return
		}
		h.logger.Error("Failed to query latest vitals", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to query latest vitals")
		return
	}

	writeJSON(w, http.StatusOK, latestVitalsResponse{
		Temperature: latest.Temperature,
		HeartRate:   latest.HeartRate,
		SpO2:        latest.SpO2,
	})
}

// predictVitalsRequest 六项字段均为必填数值；指针用于区分缺失与零值
type predictVitalsRequest struct {
	Glucose     *float64 `json:"glucose"`
	Diastolic   *float64 `json:"diastolic"`
	Systolic    *float64 `json:"systolic"`
	HeartRate   *float64 `json:"heart_rate"`
	Temperature *float64 `json:"temperature"`
	SpO2        *float64 `json:"spo2"`
}

func (req *predictVitalsRequest) missingField() string {
	switch {
	case req.Glucose == nil:
		return "glucose"
	case req.Diastolic == nil:
		return "diastolic"
	case req.Systolic == nil:
		return "systolic"
	case req.HeartRate == nil:
		return "heart_rate"
	case req.Temperature == nil:
		return "temperature"
	case req.SpO2 == nil:
		return "spo2"
	}
	return ""
}

// PredictVitals POST /predictVitals
// 保存六项体征并返回推理服务的预测结果
func (h *VitalsHandler) PredictVitals(w http.ResponseWriter, r *http.Request) {
	var req predictVitalsRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if field := req.missingField(); field != "" {
		writeError(w, http.StatusBadRequest, "Missing or invalid field: "+field)
		return
	}

	vitals := &domain.HealthVitals{
		Glucose:     *req.Glucose,
		Diastolic:   *req.Diastolic,
		Systolic:    *req.Systolic,
		HeartRate:   *req.HeartRate,
		Temperature: *req.Temperature,
		SpO2:        *req.SpO2,
	}

	predictions, err := h.vitals.SubmitAndPredict(r.Context(), vitals)
	if err != nil {
		h.logger.Error("Failed to save and predict vitals", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to process vitals")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Health vitals saved to DB",
		"predictions": predictions,
	})
}
