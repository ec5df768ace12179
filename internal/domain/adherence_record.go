package domain

import "time"

// DoseOutcome 下一次服药是否被错过的结算状态
// 新记录写入时为 pending，观察到下一时段服药后回填为 taken；
// 明确判定错过时为 missed
type DoseOutcome string

const (
	OutcomePending DoseOutcome = "pending"
	OutcomeTaken   DoseOutcome = "taken"
	OutcomeMissed  DoseOutcome = "missed"
)

// AdherenceRecord 服药历史记录（只追加，除结果回填外不修改）
type AdherenceRecord struct {
	RecordID            string
	UserID              int
	Date                time.Time // 日粒度（本地时区）
	DosePeriod          DosePeriod
	TimeTaken           string // "HH:MM"
	ScheduledTime       string // "HH:MM AM/PM"
	DeviationMinutes    int    // 本次偏差（分钟）
	RollingAvgDeviation float64
	Missed              bool
	DaysSinceLastMissed int
	TotalMissedThisWeek int
	OutcomeNextDose     DoseOutcome
}
