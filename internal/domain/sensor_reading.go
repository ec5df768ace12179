package domain

import "time"

// 血氧仪读数类型（与原始采集协议保持一致）
const (
	ReadingHeartRate = "Heart Rate"
	ReadingSpO2      = "SPO2"
)

// TemperatureReading 体温读数（通过稳定性过滤后才写入）
type TemperatureReading struct {
	UserID     int
	Celsius    float64
	RecordedAt time.Time
}

// OximeterReading 血氧仪读数（心率 / SpO2，各自独立一条记录）
type OximeterReading struct {
	UserID     int
	Type       string
	Value      float64
	RecordedAt time.Time
}

// HealthVitals 客户端提交的六项体征（用于预测接口）
type HealthVitals struct {
	Glucose     float64
	Diastolic   float64
	Systolic    float64
	HeartRate   float64
	Temperature float64
	SpO2        float64
	RecordedAt  time.Time
}
