package structure

import (
	"sort"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/store"
)

// Floor is one floor of a building with its deduplicated equipment list.
// Floors are kept in a slice because presentation order (ordPav
// descending) must survive JSON encoding.
type Floor struct {
	Name      string   `json:"name"`
	OrdPav    int      `json:"ordPav"`
	Equipment []string `json:"equipment"`
}

// Structure is the navigation projection:
// discipline -> building -> ordered floors.
type Structure map[string]map[string][]Floor

// Detail is the read-optimized record for one equipment: the raw
// info/data plus the grandezas (name -> value) and unidades
// (name -> unit) maps derived from the positional variable list.
type Detail struct {
	Info      map[string]any    `json:"info"`
	Data      []models.Variable `json:"data"`
	Grandezas map[string]any    `json:"grandezas"`
	Unidades  map[string]string `json:"unidades"`
}

// Details maps a formatted tag to its equipment detail.
type Details map[string]Detail

// Synthesize derives both projections from the current tree. It is pure:
// running it twice on an unchanged tree yields structurally equal output,
// and nothing it returns aliases a mutable part of the tree.
func Synthesize(tree *store.Tree) (Structure, Details) {
	structure := make(Structure)
	details := make(Details)

	tree.Walk(func(tag models.Tag, record models.EquipmentRecord) {
		buildings, ok := structure[tag.Discipline]
		if !ok {
			buildings = make(map[string][]Floor)
			structure[tag.Discipline] = buildings
		}

		floors := buildings[tag.Building]
		idx := -1
		for i := range floors {
			if floors[i].Name == tag.Floor {
				idx = i
				break
			}
		}
		if idx < 0 {
			floors = append(floors, Floor{Name: tag.Floor})
			idx = len(floors) - 1
		}
		floor := &floors[idx]
		if !contains(floor.Equipment, tag.Equipment) {
			floor.Equipment = append(floor.Equipment, tag.Equipment)
		}
		// First non-zero hint wins; equipment without one contributes 0.
		if floor.OrdPav == 0 {
			floor.OrdPav = models.OrdPav(record)
		}
		buildings[tag.Building] = floors

		details[tag.String()] = buildDetail(record)
	})

	for _, buildings := range structure {
		for name, floors := range buildings {
			sort.SliceStable(floors, func(i, j int) bool {
				return floors[i].OrdPav > floors[j].OrdPav
			})
			buildings[name] = floors
		}
	}

	return structure, details
}

func buildDetail(record models.EquipmentRecord) Detail {
	vars := models.Variables(record)
	detail := Detail{
		Info:      copyMap(models.Info(record)),
		Data:      vars,
		Grandezas: make(map[string]any, len(vars)),
		Unidades:  make(map[string]string, len(vars)),
	}
	for _, v := range vars {
		name := v.Name()
		if name == "" {
			continue
		}
		detail.Grandezas[name] = v.Value()
		detail.Unidades[name] = v.Unit()
	}
	return detail
}

// copyMap deep-copies the nested-object spine of a record's info so the
// projection never shares maps that a later merge could mutate in place.
// Arrays and scalars are safe to share: merges replace them, they are
// never edited.
func copyMap(src map[string]any) map[string]any {
	if src == nil {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		if nested, ok := value.(map[string]any); ok {
			dst[key] = copyMap(nested)
			continue
		}
		dst[key] = value
	}
	return dst
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
