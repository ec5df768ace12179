package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"pillbox-backend/internal/domain"
	"pillbox-backend/internal/repository"
)

// AdherenceHandler 服药历史查询与导出HTTP处理器
type AdherenceHandler struct {
	adherence repository.AdherenceRepository
	userID    int
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

func NewAdherenceHandler(adherence repository.AdherenceRepository, userID int, loc *time.Location, logger *zap.Logger) *AdherenceHandler {
	return &AdherenceHandler{
		adherence: adherence,
		userID:    userID,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

type adherenceRecordResponse struct {
	RecordID            string  `json:"record_id"`
	Date                string  `json:"date"`
	DosePeriod          string  `json:"dose_period"`
	TimeTaken           string  `json:"time_taken"`
	ScheduledTime       string  `json:"scheduled_time"`
	DeviationMinutes    int     `json:"deviation_minutes"`
	RollingAvgDeviation float64 `json:"rolling_avg_deviation"`
	Missed              bool    `json:"missed"`
	DaysSinceLastMissed int     `json:"days_since_last_missed"`
	TotalMissedThisWeek int     `json:"total_missed_this_week"`
	OutcomeNextDose     string  `json:"outcome_next_dose"`
}

func (h *AdherenceHandler) listRecords(r *http.Request) ([]domain.AdherenceRecord, int, error) {
	days := parseInt(r.URL.Query().Get("days"), 7)
	if days < 1 {
		days = 1
	}
	if days > 365 {
		days = 365
	}

	today := h.now().In(h.loc)
	since := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, h.loc).AddDate(0, 0, -(days - 1))

	records, err := h.adherence.ListSince(r.Context(), h.userID, since)
	return records, days, err
}

// GetHistory GET /api/adherence/history?days=N
func (h *AdherenceHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	records, days, err := h.listRecords(r)
	if err != nil {
		h.logger.Error("Failed to query adherence history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to query adherence history")
		return
	}

	items := make([]adherenceRecordResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, adherenceRecordResponse{
			RecordID:            rec.RecordID,
			Date:                rec.Date.Format("2006-01-02"),
			DosePeriod:          string(rec.DosePeriod),
			TimeTaken:           rec.TimeTaken,
			ScheduledTime:       rec.ScheduledTime,
			DeviationMinutes:    rec.DeviationMinutes,
			RollingAvgDeviation: rec.RollingAvgDeviation,
			Missed:              rec.Missed,
			DaysSinceLastMissed: rec.DaysSinceLastMissed,
			TotalMissedThisWeek: rec.TotalMissedThisWeek,
			OutcomeNextDose:     string(rec.OutcomeNextDose),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":    days,
		"records": items,
	})
}

// ExportHistory GET /api/adherence/export
// 导出服药历史为xlsx文件
func (h *AdherenceHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	records, _, err := h.listRecords(r)
	if err != nil {
		h.logger.Error("Failed to query adherence history for export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export adherence history")
		return
	}

	f := excelize.NewFile()
	sheet := "Adherence"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		h.logger.Error("Failed to create export sheet", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export adherence history")
		return
	}
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(idx)

	headers := []string{
		"Record ID", "Date", "Period", "Time Taken", "Scheduled Time",
		"Deviation (min)", "Rolling Avg Deviation", "Missed",
		"Days Since Last Missed", "Missed This Week", "Next Dose Outcome",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	for col, title := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, rec := range records {
		values := []any{
			rec.RecordID,
			rec.Date.Format("2006-01-02"),
			string(rec.DosePeriod),
			rec.TimeTaken,
			rec.ScheduledTime,
			rec.DeviationMinutes,
			rec.RollingAvgDeviation,
			rec.Missed,
			rec.DaysSinceLastMissed,
			rec.TotalMissedThisWeek,
			string(rec.OutcomeNextDose),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("adherence_history_%s.xlsx", h.now().In(h.loc).Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if _, err := f.WriteTo(w); err != nil {
		h.logger.Error("Failed to write export file", zap.Error(err))
	}
}
