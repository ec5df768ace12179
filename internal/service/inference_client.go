package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"pillbox-backend/internal/domain"
)

// Predictor 外部模型推理服务接口
// 输入六项体征，输出各病症的 Yes/No 判定
type Predictor interface {
	Predict(ctx context.Context, vitals *domain.HealthVitals) (map[string]string, error)
}

// inferenceRequest 推理服务请求体
type inferenceRequest struct {
	Glucose     float64 `json:"glucose"`
	Diastolic   float64 `json:"diastolic"`
	Systolic    float64 `json:"systolic"`
	HeartRate   float64 `json:"heart_rate"`
	Temperature float64 `json:"temperature"`
	SpO2        float64 `json:"spo2"`
}

// inferenceResponse 推理服务响应体
type inferenceResponse struct {
	Predictions map[string]string `json:"predictions"`
}

// InferenceClient 模型推理服务HTTP客户端
type InferenceClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewInferenceClient 创建推理服务客户端
func NewInferenceClient(baseURL string, logger *zap.Logger) *InferenceClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &InferenceClient{httpClient: client, logger: logger}
}

var _ Predictor = (*InferenceClient)(nil)

// Predict 调用推理服务
func (c *InferenceClient) Predict(ctx context.Context, vitals *domain.HealthVitals) (map[string]string, error) {
	req := inferenceRequest{
		Glucose:     vitals.Glucose,
		Diastolic:   vitals.Diastolic,
		Systolic:    vitals.Systolic,
		HeartRate:   vitals.HeartRate,
		Temperature: vitals.Temperature,
		SpO2:        vitals.SpO2,
	}

	var result inferenceResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("inference service returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return result.Predictions, nil
}
