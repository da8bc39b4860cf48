package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/ingest"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
)

const maxPayloadBytes = 8 << 20

// DataHandler implements POST /dados, the telemetry ingestion endpoint.
type DataHandler struct {
	svc    *ingest.Service
	logger *zap.Logger
}

func NewDataHandler(svc *ingest.Service, logger *zap.Logger) *DataHandler {
	return &DataHandler{svc: svc, logger: logger}
}

func (h *DataHandler) Ingest(w http.ResponseWriter, req *http.Request) {
	body, err := readBody(req, maxPayloadBytes)
	if err != nil {
		fail(w, http.StatusBadRequest, "unreadable body")
		return
	}

	result, err := h.svc.Ingest(req.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrInvalidPayloadEncoding):
			fail(w, http.StatusBadRequest, "invalid payload encoding")
		case errors.Is(err, models.ErrInvalidTagFormat):
			fail(w, http.StatusBadRequest, "invalid tag format")
		default:
			h.logger.Error("Ingestion failed", zap.Error(err))
			fail(w, http.StatusInternalServerError, "ingestion failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
