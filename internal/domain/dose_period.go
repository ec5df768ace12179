package domain

// DosePeriod 服药时段（每日三个时段）
// 存储值与设备协议保持一致："M" / "A" / "N"
type DosePeriod string

const (
	PeriodMorning   DosePeriod = "M" // [5, 12)
	PeriodAfternoon DosePeriod = "A" // [12, 18)
	PeriodNight     DosePeriod = "N" // [18, 24) ∪ [0, 5)
)

// PeriodForHour 根据小时（0..23）返回所属服药时段
func PeriodForHour(hour int) DosePeriod {
	switch {
	case hour >= 5 && hour < 12:
		return PeriodMorning
	case hour >= 12 && hour < 18:
		return PeriodAfternoon
	default:
		return PeriodNight
	}
}

// Predecessor 返回固定循环 M→A→N→M 中的前一个时段
// 用于回填上一次服药记录的结果字段
func (p DosePeriod) Predecessor() DosePeriod {
	switch p {
	case PeriodMorning:
		return PeriodNight
	case PeriodAfternoon:
		return PeriodMorning
	default:
		return PeriodAfternoon
	}
}

// Valid 检查时段取值是否合法
func (p DosePeriod) Valid() bool {
	return p == PeriodMorning || p == PeriodAfternoon || p == PeriodNight
}
