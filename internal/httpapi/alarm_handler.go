package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/alarm"
)

// AlarmHandler serves the alarm lifecycle surface.
type AlarmHandler struct {
	engine *alarm.Engine
	logger *zap.Logger
}

func NewAlarmHandler(engine *alarm.Engine, logger *zap.Logger) *AlarmHandler {
	return &AlarmHandler{engine: engine, logger: logger}
}

// Active implements GET /alarms/active.
func (h *AlarmHandler) Active(w http.ResponseWriter, req *http.Request) {
	events, err := h.engine.ListActive(req.Context())
	if err != nil {
		h.logger.Error("Failed to list active alarms", zap.Error(err))
		fail(w, http.StatusServiceUnavailable, "alarm store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// History implements GET /alarms/history?limit&offset.
func (h *AlarmHandler) History(w http.ResponseWriter, req *http.Request) {
	limit := parseInt(req.URL.Query().Get("limit"), 50)
	offset := parseInt(req.URL.Query().Get("offset"), 0)

	events, err := h.engine.ListHistory(req.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list alarm history", zap.Error(err))
		fail(w, http.StatusServiceUnavailable, "alarm store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type alarmActionRequest struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
	User string `json:"user"`
}

// Acknowledge implements POST /alarms/ack {tag, name, user}.
func (h *AlarmHandler) Acknowledge(w http.ResponseWriter, req *http.Request) {
	var body alarmActionRequest
	if err := readBodyJSON(req, 1<<20, &body); err != nil || body.Tag == "" || body.Name == "" {
		fail(w, http.StatusBadRequest, "tag and name are required")
		return
	}
	user := body.User
	if user == "" {
		if id, ok := IdentityFrom(req.Context()); ok {
			user = id.User
		}
	}

	if err := h.engine.Acknowledge(req.Context(), body.Tag, body.Name, user); err != nil {
		h.logger.Error("Failed to acknowledge alarm", zap.String("tag", body.Tag), zap.Error(err))
		fail(w, http.StatusServiceUnavailable, "alarm store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Clear implements POST /alarms/clear {tag, name}.
func (h *AlarmHandler) Clear(w http.ResponseWriter, req *http.Request) {
	var body alarmActionRequest
	if err := readBodyJSON(req, 1<<20, &body); err != nil || body.Tag == "" || body.Name == "" {
		fail(w, http.StatusBadRequest, "tag and name are required")
		return
	}

	if err := h.engine.ReportInactive(req.Context(), body.Tag, body.Name, time.Now()); err != nil {
		h.logger.Error("Failed to clear alarm", zap.String("tag", body.Tag), zap.Error(err))
		fail(w, http.StatusServiceUnavailable, "alarm store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ClearRecognized implements POST /alarms/clear-recognized.
func (h *AlarmHandler) ClearRecognized(w http.ResponseWriter, req *http.Request) {
	removed, err := h.engine.PurgeRecognized(req.Context())
	if err != nil {
		h.logger.Error("Failed to purge recognized alarms", zap.Error(err))
		fail(w, http.StatusServiceUnavailable, "alarm store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": removed})
}

// Export implements GET /alarms/export: the alarm log as an .xlsx report.
func (h *AlarmHandler) Export(w http.ResponseWriter, req *http.Request) {
	limit := parseInt(req.URL.Query().Get("limit"), 500)
	events, err := h.engine.ListHistory(req.Context(), limit, 0)
	if err != nil {
		h.logger.Error("Failed to export alarm history", zap.Error(err))
		fail(w, http.StatusServiceUnavailable, "alarm store unavailable")
		return
	}

	report, err := GenerateAlarmHistoryExport(events)
	if err != nil {
		h.logger.Error("Failed to build alarm export", zap.Error(err))
		fail(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := fmt.Sprintf("alarm-history-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report)
}
