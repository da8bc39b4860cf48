package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/structure"
)

// StructureHandler serves the navigation and detail projections.
type StructureHandler struct {
	queries *structure.Service
	logger  *zap.Logger
}

func NewStructureHandler(queries *structure.Service, logger *zap.Logger) *StructureHandler {
	return &StructureHandler{queries: queries, logger: logger}
}

// GetStructure implements GET /estrutura.
func (h *StructureHandler) GetStructure(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"structure":        h.queries.Structure(),
		"structureDetails": h.queries.Details(),
	})
}

// GetDiscipline implements GET /disciplina/{disc}.
func (h *StructureHandler) GetDiscipline(w http.ResponseWriter, req *http.Request, code string) {
	buildings, details, err := h.queries.Discipline(code)
	if err != nil {
		if errors.Is(err, structure.ErrNotFound) {
			fail(w, http.StatusNotFound, "unknown discipline")
			return
		}
		h.logger.Error("Discipline query failed", zap.String("discipline", code), zap.Error(err))
		fail(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"disciplina": code,
		"estrutura":  buildings,
		"detalhes":   details,
	})
}

// GetEquipment implements GET /equipamento/{tag} (URL-encoded tag).
func (h *StructureHandler) GetEquipment(w http.ResponseWriter, req *http.Request, raw string) {
	tag, err := models.ParseTag(raw)
	if err != nil {
		fail(w, http.StatusNotFound, "unknown equipment")
		return
	}

	detail, err := h.queries.EquipmentDetail(tag)
	if err != nil {
		if errors.Is(err, structure.ErrNotFound) {
			fail(w, http.StatusNotFound, "unknown equipment")
			return
		}
		h.logger.Error("Equipment query failed", zap.String("tag", tag.String()), zap.Error(err))
		fail(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"dados": detail,
	})
}
