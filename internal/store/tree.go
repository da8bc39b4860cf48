package store

import (
	"sort"
	"sync"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
)

// Tree is the in-memory telemetry store: a nested mapping
// discipline -> building -> floor -> equipment -> record. It is volatile
// (created empty at process start) and mutated only via deep merge.
//
// Merge policy is asymmetric: object-valued keys present on both sides
// are merged recursively, scalar and array leaves are replaced wholesale.
// An equipment "data" array is therefore swapped atomically per ingest,
// never patched field by field.
type Tree struct {
	mu   sync.RWMutex
	data map[string]map[string]any
}

func NewTree() *Tree {
	return &Tree{data: make(map[string]map[string]any)}
}

// MergeDiscipline deep-merges a building->floor->equipment subtree into
// one discipline. The subtree must not be reused by the caller after the
// call; it is owned by the tree from then on.
func (t *Tree) MergeDiscipline(discipline string, subtree map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	dst, ok := t.data[discipline]
	if !ok {
		dst = make(map[string]any)
		t.data[discipline] = dst
	}
	mergeMaps(dst, subtree)
}

// MergeEquipment deep-merges the record of a single tagged equipment.
func (t *Tree) MergeEquipment(tag models.Tag, record models.EquipmentRecord) {
	t.MergeDiscipline(tag.Discipline, map[string]any{
		tag.Building: map[string]any{
			tag.Floor: map[string]any{
				tag.Equipment: map[string]any(record),
			},
		},
	})
}

// Walk visits every depth-4 path in key-sorted order while holding the
// read lock. The record passed to fn is the live map; fn must not mutate
// it and must not retain it past the call without copying.
func (t *Tree) Walk(fn func(tag models.Tag, record models.EquipmentRecord)) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, disc := range sortedKeys(t.data) {
		buildings := t.data[disc]
		for _, building := range sortedKeys(buildings) {
			floors, ok := buildings[building].(map[string]any)
			if !ok {
				continue
			}
			for _, floor := range sortedKeys(floors) {
				equips, ok := floors[floor].(map[string]any)
				if !ok {
					continue
				}
				for _, equip := range sortedKeys(equips) {
					record, ok := equips[equip].(map[string]any)
					if !ok {
						continue
					}
					fn(models.Tag{
						Discipline: disc,
						Building:   building,
						Floor:      floor,
						Equipment:  equip,
					}, record)
				}
			}
		}
	}
}

// HasDiscipline reports whether the tree holds any data for a discipline.
func (t *Tree) HasDiscipline(code string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.data[code]
	return ok
}

// mergeMaps merges src into dst: descend where both sides hold objects,
// replace everything else (scalars and arrays) wholesale.
func mergeMaps(dst, src map[string]any) {
	for key, value := range src {
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[key] = value
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
