package domain

import "time"

// PillSlot 药仓（物理药盒隔间，最多4个）
// 由初始化流程创建，仅由服药事件处理器修改
type PillSlot struct {
	SlotID              int
	PillName            string
	RemainingCount      int
	StartDate           time.Time
	EndDate             time.Time
	ReminderTime        string // "HH:MM AM/PM"
	LastTakenAt         *string
	LastDosePeriod      *DosePeriod
	AvgDeviationMinutes int
}

// Complete 检查发布服药计划所需字段是否齐全
func (s *PillSlot) Complete() bool {
	return s.SlotID > 0 && s.PillName != "" && s.ReminderTime != ""
}
