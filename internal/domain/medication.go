package domain

import "time"

// 药盒支持的剂型（仅这两类可装入药仓）
const (
	DoseFormCapsule = "Capsule"
	DoseFormTablet  = "Tablet"
)

// Medication 用药主数据（外部维护，本服务只读）
type Medication struct {
	ID           int
	PillName     string
	Dosage       int
	DoseForm     string
	StartDate    time.Time
	EndDate      time.Time
	ReminderTime string
}

// PillCount 计算应装入药仓的药片数量
// 数量 = 剂量 × 剩余天数（从 max(start_date, today) 到 end_date，含当天），下限为0
func (m *Medication) PillCount(today time.Time) int {
	start := dateOnly(m.StartDate)
	end := dateOnly(m.EndDate)
	ref := dateOnly(today)
	if ref.After(start) {
		start = ref
	}
	days := int(end.Sub(start).Hours()/24) + 1
	count := m.Dosage * days
	if count < 0 {
		return 0
	}
	return count
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
