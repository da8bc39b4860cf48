package store

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
)

func decodeSubtree(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func collect(tree *Tree) map[string]models.EquipmentRecord {
	out := map[string]models.EquipmentRecord{}
	tree.Walk(func(tag models.Tag, record models.EquipmentRecord) {
		out[tag.String()] = record
	})
	return out
}

func TestMergeDiscipline_Idempotent(t *testing.T) {
	payload := `{"Principal":{"PAV01":{"MM_01_01":{"info":{"name":"Painel","ordPav":2},"data":[["AI","Corrente",12.5,"A",true,15]]}}}}`

	once := NewTree()
	once.MergeDiscipline("EL", decodeSubtree(t, payload))

	twice := NewTree()
	twice.MergeDiscipline("EL", decodeSubtree(t, payload))
	twice.MergeDiscipline("EL", decodeSubtree(t, payload))

	assert.Equal(t, collect(once), collect(twice))
}

func TestMergeDiscipline_ArraysReplaceWholesale(t *testing.T) {
	tree := NewTree()
	tree.MergeDiscipline("EL", decodeSubtree(t, `{"B":{"F":{"E":{"data":[["AI","T1",1,"C"]]}}}}`))
	tree.MergeDiscipline("EL", decodeSubtree(t, `{"B":{"F":{"E":{"data":[["AI","T2",2,"C"]]}}}}`))

	records := collect(tree)
	record := records["EL/B/F/E"]
	require.NotNil(t, record)

	vars := models.Variables(record)
	require.Len(t, vars, 1)
	assert.Equal(t, "T2", vars[0].Name())
}

func TestMergeDiscipline_ObjectsMergeNonDestructively(t *testing.T) {
	tree := NewTree()
	tree.MergeDiscipline("EL", decodeSubtree(t, `{"B":{"F":{"E":{"info":{"name":"Painel","producer":"WEG"}}}}}`))
	tree.MergeDiscipline("EL", decodeSubtree(t, `{"B":{"F":{"E":{"info":{"comm":"ok"}}}}}`))

	record := collect(tree)["EL/B/F/E"]
	require.NotNil(t, record)

	info := models.Info(record)
	assert.Equal(t, "Painel", info["name"])
	assert.Equal(t, "WEG", info["producer"])
	assert.Equal(t, "ok", info["comm"])
}

func TestMergeDiscipline_KeepsSiblingEquipment(t *testing.T) {
	tree := NewTree()
	tree.MergeDiscipline("EL", decodeSubtree(t, `{"B":{"F":{"E1":{"info":{"name":"one"}}}}}`))
	tree.MergeDiscipline("EL", decodeSubtree(t, `{"B":{"F":{"E2":{"info":{"name":"two"}}}}}`))

	records := collect(tree)
	assert.Len(t, records, 2)
	assert.Contains(t, records, "EL/B/F/E1")
	assert.Contains(t, records, "EL/B/F/E2")
}

func TestMergeEquipment_PlacesRecordAtTagPath(t *testing.T) {
	tree := NewTree()
	tag := models.Tag{Discipline: "AC", Building: "Anexo", Floor: "PAV02", Equipment: "FC_02_01"}
	tree.MergeEquipment(tag, models.EquipmentRecord{"info": map[string]any{"name": "Fancoil"}})

	record := collect(tree)[tag.String()]
	require.NotNil(t, record)
	assert.Equal(t, "Fancoil", models.Info(record)["name"])
	assert.True(t, tree.HasDiscipline("AC"))
	assert.False(t, tree.HasDiscipline("EL"))
}

func TestWalk_SortedAndTypedOnly(t *testing.T) {
	tree := NewTree()
	// A scalar where a floor map is expected must not be visited.
	tree.MergeDiscipline("EL", decodeSubtree(t, `{"B":{"F":{"E":{"info":{}}},"broken":3}}`))

	var tags []string
	tree.Walk(func(tag models.Tag, record models.EquipmentRecord) {
		tags = append(tags, tag.String())
	})
	assert.Equal(t, []string{"EL/B/F/E"}, tags)
}

func TestMerge_ConcurrentDisciplines(t *testing.T) {
	tree := NewTree()
	var wg sync.WaitGroup
	for _, disc := range []string{"EL", "AC", "IL", "HI"} {
		disc := disc
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tree.MergeDiscipline(disc, map[string]any{
					"B": map[string]any{
						"F": map[string]any{
							"E": map[string]any{"info": map[string]any{"name": "x"}},
						},
					},
				})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, collect(tree), 4)
}
