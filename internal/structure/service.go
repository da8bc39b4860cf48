package structure

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/store"
)

// ErrNotFound is returned by queries for a discipline or tag that is not
// present in the current projection.
var ErrNotFound = errors.New("not found")

// Redis keys for the published snapshot, readable by dashboard replicas
// that do not own the ingest path.
const (
	SnapshotStructureKey = "elipse:structure"
	SnapshotDetailsKey   = "elipse:details"
)

// Service holds the latest synthesized projections and answers the read
// contract. Refresh is called by the ingest path after every accepted
// payload; reads before the first ingest synthesize lazily.
type Service struct {
	tree        *store.Tree
	kv          store.KV // optional; nil disables snapshot publishing
	snapshotTTL time.Duration
	logger      *zap.Logger

	mu        sync.RWMutex
	fresh     bool
	structure Structure
	details   Details
}

func NewService(tree *store.Tree, kv store.KV, snapshotTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		tree:        tree,
		kv:          kv,
		snapshotTTL: snapshotTTL,
		logger:      logger,
	}
}

// Refresh recomputes both projections and publishes them to the KV
// snapshot. Publish failures are logged, never propagated: the in-process
// projection is already consistent and queries must keep working.
func (s *Service) Refresh(ctx context.Context) {
	structure, details := Synthesize(s.tree)

	s.mu.Lock()
	s.structure = structure
	s.details = details
	s.fresh = true
	s.mu.Unlock()

	s.publish(ctx, structure, details)
}

func (s *Service) publish(ctx context.Context, structure Structure, details Details) {
	if s.kv == nil {
		return
	}
	if raw, err := json.Marshal(structure); err == nil {
		if err := s.kv.Set(ctx, SnapshotStructureKey, string(raw), s.snapshotTTL); err != nil {
			s.logger.Warn("Failed to publish structure snapshot", zap.Error(err))
		}
	}
	if raw, err := json.Marshal(details); err == nil {
		if err := s.kv.Set(ctx, SnapshotDetailsKey, string(raw), s.snapshotTTL); err != nil {
			s.logger.Warn("Failed to publish details snapshot", zap.Error(err))
		}
	}
}

func (s *Service) current() (Structure, Details) {
	s.mu.RLock()
	if s.fresh {
		defer s.mu.RUnlock()
		return s.structure, s.details
	}
	s.mu.RUnlock()

	s.Refresh(context.Background())

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.structure, s.details
}

// Structure returns the full navigation projection.
func (s *Service) Structure() Structure {
	structure, _ := s.current()
	return structure
}

// Details returns the full detail projection.
func (s *Service) Details() Details {
	_, details := s.current()
	return details
}

// Discipline returns the navigation subset and details of one discipline.
func (s *Service) Discipline(code string) (map[string][]Floor, Details, error) {
	structure, details := s.current()
	buildings, ok := structure[code]
	if !ok {
		return nil, nil, ErrNotFound
	}
	subset := make(Details)
	for tag, detail := range details {
		if strings.HasPrefix(tag, code+"/") {
			subset[tag] = detail
		}
	}
	return buildings, subset, nil
}

// EquipmentDetail returns the detail record for one formatted tag.
func (s *Service) EquipmentDetail(tag models.Tag) (Detail, error) {
	_, details := s.current()
	detail, ok := details[tag.String()]
	if !ok {
		return Detail{}, ErrNotFound
	}
	return detail, nil
}
