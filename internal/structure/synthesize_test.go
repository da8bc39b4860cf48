package structure

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/store"
)

func treeFromJSON(t *testing.T, discipline, raw string) *store.Tree {
	t.Helper()
	var subtree map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &subtree))
	tree := store.NewTree()
	tree.MergeDiscipline(discipline, subtree)
	return tree
}

func TestSynthesize_Scenario(t *testing.T) {
	tree := treeFromJSON(t, "EL",
		`{"Principal":{"PAV01":{"MM_01_01":{"info":{"name":"Painel","ordPav":2},"data":[["AI","Corrente",12.5,"A",true,15]]}}}}`)

	structure, details := Synthesize(tree)

	floors := structure["EL"]["Principal"]
	require.Len(t, floors, 1)
	assert.Equal(t, "PAV01", floors[0].Name)
	assert.Equal(t, []string{"MM_01_01"}, floors[0].Equipment)

	detail, ok := details["EL/Principal/PAV01/MM_01_01"]
	require.True(t, ok)
	assert.Equal(t, "Painel", detail.Info["name"])
	assert.Equal(t, 12.5, detail.Grandezas["Corrente"])
	assert.Equal(t, "A", detail.Unidades["Corrente"])
	require.Len(t, detail.Data, 1)
	assert.Equal(t, "AI", detail.Data[0].Type())
}

func TestSynthesize_FloorOrderingDescending(t *testing.T) {
	tree := treeFromJSON(t, "EL", `{
		"Principal": {
			"PAV01": {"E1": {"info": {"ordPav": 3}}},
			"PAV02": {"E2": {"info": {"ordPav": 1}}},
			"PAV03": {"E3": {"info": {"ordPav": 2}}}
		}
	}`)

	structure, _ := Synthesize(tree)
	floors := structure["EL"]["Principal"]
	require.Len(t, floors, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{floors[0].OrdPav, floors[1].OrdPav, floors[2].OrdPav})
	assert.Equal(t, []string{"PAV01", "PAV03", "PAV02"},
		[]string{floors[0].Name, floors[1].Name, floors[2].Name})
}

func TestSynthesize_MissingOrdPavDefaultsToZero(t *testing.T) {
	tree := treeFromJSON(t, "EL", `{
		"Principal": {
			"TERREO": {"E1": {"info": {"name": "sem ordem"}}},
			"PAV01": {"E2": {"info": {"ordPav": 1}}}
		}
	}`)

	structure, _ := Synthesize(tree)
	floors := structure["EL"]["Principal"]
	require.Len(t, floors, 2)
	assert.Equal(t, "PAV01", floors[0].Name)
	assert.Equal(t, 0, floors[1].OrdPav)
}

func TestSynthesize_DeduplicatesEquipment(t *testing.T) {
	// Same equipment reachable once; dedup is per floor list.
	tree := treeFromJSON(t, "EL", `{"B":{"F":{"E":{"info":{}},"E2":{"info":{}}}}}`)

	structure, _ := Synthesize(tree)
	floors := structure["EL"]["B"]
	require.Len(t, floors, 1)
	assert.ElementsMatch(t, []string{"E", "E2"}, floors[0].Equipment)
}

func TestSynthesize_Idempotent(t *testing.T) {
	tree := treeFromJSON(t, "AC",
		`{"Anexo":{"PAV02":{"FC_02_01":{"info":{"ordPav":2},"data":[["AI","Temp",21.5,"C"]]}}}}`)

	s1, d1 := Synthesize(tree)
	s2, d2 := Synthesize(tree)
	assert.Equal(t, s1, s2)
	assert.Equal(t, d1, d2)
}

func TestSynthesize_DetailDoesNotAliasTree(t *testing.T) {
	tree := treeFromJSON(t, "EL", `{"B":{"F":{"E":{"info":{"name":"before"}}}}}`)
	_, details := Synthesize(tree)

	var update map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"B":{"F":{"E":{"info":{"name":"after"}}}}}`), &update))
	tree.MergeDiscipline("EL", update)

	assert.Equal(t, "before", details["EL/B/F/E"].Info["name"])
}

func TestSynthesize_SkipsVariablesWithoutName(t *testing.T) {
	tree := treeFromJSON(t, "EL",
		`{"B":{"F":{"E":{"data":[["AI","Corrente",1,"A"],["AI"],"noise"]}}}}`)

	_, details := Synthesize(tree)
	detail := details["EL/B/F/E"]
	assert.Len(t, detail.Grandezas, 1)
	assert.Len(t, detail.Data, 2)
}
