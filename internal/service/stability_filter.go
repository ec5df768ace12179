package service

import "math"

// 稳定性过滤参数：连续3个差值小于0.2°C的采样才视为稳定读数
const (
	stableThreshold = 3
	stableTolerance = 0.2
)

// StabilityFilter 温度读数稳定性过滤器
// 每条传感器流一个实例（按用户/设备持有），抑制抖动：
// 连续 stableThreshold 个近似相等的采样才放行一次
type StabilityFilter struct {
	lastValue   *float64
	stableCount int
}

// NewStabilityFilter 创建稳定性过滤器
func NewStabilityFilter() *StabilityFilter {
	return &StabilityFilter{}
}

// Observe 观察一个采样值，返回该值是否应当持久化
func (f *StabilityFilter) Observe(value float64) bool {
	if f.lastValue != nil && math.Abs(value-*f.lastValue) < stableTolerance {
		f.stableCount++
	} else {
		f.stableCount = 0
	}
	v := value
	f.lastValue = &v

	if f.stableCount >= stableThreshold {
		f.stableCount = 0
		return true
	}
	return false
}
