package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/alarm"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/store"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/structure"
)

// ErrInvalidPayloadEncoding is returned when the body (or its base64
// "valor" wrapper) cannot be decoded; nothing is merged in that case.
var ErrInvalidPayloadEncoding = errors.New("invalid payload encoding")

// Ingestion modes. Classification is an explicit schema check, not key
// sniffing: a payload is single when it carries the four address fields,
// bulk when every top-level value is an object keyed by discipline code.
const (
	ModeBulk   = "bulk"
	ModeSingle = "single"
)

// Result is the ingestion summary returned to the gateway. Affected is
// the list of merged disciplines in bulk mode, the formatted tag in
// single mode.
type Result struct {
	Accepted bool   `json:"accepted"`
	Mode     string `json:"mode"`
	Affected any    `json:"affected"`
}

// Service drives the telemetry pipeline: decode -> merge -> alarm
// reconciliation -> projection refresh. Alarm failures are logged and
// isolated; the merge is never rolled back because of them.
type Service struct {
	tree       *store.Tree
	engine     *alarm.Engine
	projection *structure.Service
	logger     *zap.Logger
}

func NewService(tree *store.Tree, engine *alarm.Engine, projection *structure.Service, logger *zap.Logger) *Service {
	return &Service{
		tree:       tree,
		engine:     engine,
		projection: projection,
		logger:     logger,
	}
}

// DecodePayload parses a raw body. A {"valor": "<base64>"} wrapper is
// unwrapped first; any decode failure rejects the whole call.
func DecodePayload(body []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayloadEncoding, err)
	}

	wrapped, ok := payload["valor"].(string)
	if !ok {
		return payload, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayloadEncoding, err)
	}
	var inner map[string]any
	if err := json.Unmarshal(decoded, &inner); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayloadEncoding, err)
	}
	return inner, nil
}

// singleTag extracts the canonical tag when the payload carries the four
// explicit address fields.
func singleTag(payload map[string]any) (models.Tag, bool) {
	disc, okD := payload["discipline"].(string)
	building, okB := payload["building"].(string)
	floor, okF := payload["floor"].(string)
	equip, okE := payload["equipment"].(string)
	if !okD && !okB && !okF && !okE {
		return models.Tag{}, false
	}
	return models.Tag{Discipline: disc, Building: building, Floor: floor, Equipment: equip}, true
}

// Ingest applies one decoded-or-raw payload. The returned error is only
// non-nil when nothing was applied (bad encoding, or a single-equipment
// payload with a malformed tag).
func (s *Service) Ingest(ctx context.Context, body []byte) (*Result, error) {
	payload, err := DecodePayload(body)
	if err != nil {
		return nil, err
	}

	if tag, ok := singleTag(payload); ok {
		return s.ingestSingle(ctx, tag, payload)
	}
	return s.ingestBulk(ctx, payload)
}

func (s *Service) ingestSingle(ctx context.Context, tag models.Tag, payload map[string]any) (*Result, error) {
	if !tag.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTagFormat, tag.String())
	}

	// The address fields and the alarm list are routing input, not
	// telemetry; everything else passes through to the record untouched.
	record := models.EquipmentRecord{}
	for key, value := range payload {
		switch key {
		case "discipline", "building", "floor", "equipment", "alarm":
		default:
			record[key] = value
		}
	}
	s.tree.MergeEquipment(tag, record)

	if rows, ok := payload["alarm"].([]any); ok {
		s.reconcile(ctx, tag, rows)
	}

	s.projection.Refresh(ctx)
	return &Result{Accepted: true, Mode: ModeSingle, Affected: tag.String()}, nil
}

func (s *Service) ingestBulk(ctx context.Context, payload map[string]any) (*Result, error) {
	affected := []string{}
	var work []alarmWork
	for _, disc := range sortedKeys(payload) {
		subtree, ok := payload[disc].(map[string]any)
		if !ok || disc == "" {
			// Skip the malformed discipline, keep merging the rest.
			s.logger.Warn("Skipping malformed discipline in bulk payload",
				zap.String("discipline", disc),
			)
			continue
		}
		cleaned := s.sanitizeSubtree(disc, subtree)
		if len(cleaned) == 0 {
			s.logger.Warn("Skipping discipline with no well-formed equipment",
				zap.String("discipline", disc),
			)
			continue
		}
		// The alarm worklist is collected before the merge, while the
		// subtree is still private to this call. MergeDiscipline installs
		// these maps into the tree; iterating them afterwards would race
		// with concurrent merges.
		work = append(work, collectAlarmWork(disc, cleaned)...)
		s.tree.MergeDiscipline(disc, cleaned)
		affected = append(affected, disc)
	}

	for _, w := range work {
		s.reconcile(ctx, w.tag, w.rows)
	}

	s.projection.Refresh(ctx)
	return &Result{Accepted: true, Mode: ModeBulk, Affected: affected}, nil
}

// sanitizeSubtree keeps only well-formed building -> floor -> equipment
// branches of a bulk subtree. Malformed nodes are dropped so they never
// reach the tree.
func (s *Service) sanitizeSubtree(disc string, subtree map[string]any) map[string]any {
	cleaned := make(map[string]any, len(subtree))
	for building, rawFloors := range subtree {
		floors, ok := rawFloors.(map[string]any)
		if !ok {
			s.logger.Warn("Skipping malformed building in bulk payload",
				zap.String("discipline", disc),
				zap.String("building", building),
			)
			continue
		}
		cleanedFloors := make(map[string]any, len(floors))
		for floor, rawEquips := range floors {
			equips, ok := rawEquips.(map[string]any)
			if !ok {
				s.logger.Warn("Skipping malformed floor in bulk payload",
					zap.String("discipline", disc),
					zap.String("building", building),
					zap.String("floor", floor),
				)
				continue
			}
			cleanedEquips := make(map[string]any, len(equips))
			for equip, rawRecord := range equips {
				record, ok := rawRecord.(map[string]any)
				if !ok {
					s.logger.Warn("Skipping malformed equipment in bulk payload",
						zap.String("discipline", disc),
						zap.String("building", building),
						zap.String("floor", floor),
						zap.String("equipment", equip),
					)
					continue
				}
				cleanedEquips[equip] = record
			}
			if len(cleanedEquips) > 0 {
				cleanedFloors[floor] = cleanedEquips
			}
		}
		if len(cleanedFloors) > 0 {
			cleaned[building] = cleanedFloors
		}
	}
	return cleaned
}

// alarmWork is one pending reconciliation: the alarm list one equipment
// reported in a bulk snapshot.
type alarmWork struct {
	tag  models.Tag
	rows []any
}

// collectAlarmWork lists every equipment in a sanitized subtree that
// carries an alarm list. Equipment silent about alarms is left
// untouched: a partial merge must not close alarms it did not report on.
func collectAlarmWork(disc string, subtree map[string]any) []alarmWork {
	var work []alarmWork
	for building, rawFloors := range subtree {
		floors, _ := rawFloors.(map[string]any)
		for floor, rawEquips := range floors {
			equips, _ := rawEquips.(map[string]any)
			for equip, rawRecord := range equips {
				record, _ := rawRecord.(map[string]any)
				if !models.HasAlarmList(record) {
					continue
				}
				work = append(work, alarmWork{
					tag:  models.Tag{Discipline: disc, Building: building, Floor: floor, Equipment: equip},
					rows: models.AlarmRows(record),
				})
			}
		}
	}
	return work
}

func (s *Service) reconcile(ctx context.Context, tag models.Tag, rows []any) {
	reported := alarm.ParseReportedList(rows)
	if err := s.engine.Reconcile(ctx, tag.String(), reported, time.Now()); err != nil {
		s.logger.Error("Alarm reconciliation failed",
			zap.String("tag", tag.String()),
			zap.Error(err),
		)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic merge order keeps bulk results reproducible.
	sort.Strings(keys)
	return keys
}
