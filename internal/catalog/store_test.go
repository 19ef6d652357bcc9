package catalog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"voltcat/internal/core"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTaxonomy(t *testing.T, dir string, categories []string) string {
	t.Helper()
	data, err := json.Marshal(categories)
	require.NoError(t, err)
	path := filepath.Join(dir, "categories.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func openTestStore(t *testing.T, categories []string) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	taxonomyPath := writeTaxonomy(t, dir, categories)
	basePath := filepath.Join(dir, "standard-inventory.json")
	store, err := Open(taxonomyPath, basePath)
	require.NoError(t, err)
	return store, basePath
}

func TestOpen(t *testing.T) {
	t.Run("missing knowledge base is a valid first run", func(t *testing.T) {
		store, _ := openTestStore(t, []string{"Capacitores", "Disjuntores"})
		assert.Equal(t, 0, store.Len())
		assert.Equal(t, 2, store.Taxonomy().Len())
	})

	t.Run("missing taxonomy fails", func(t *testing.T) {
		dir := t.TempDir()
		_, err := Open(filepath.Join(dir, "nope.json"), filepath.Join(dir, "kb.json"))
		var dfe *core.DataFormatError
		require.True(t, errors.As(err, &dfe))
	})

	t.Run("malformed taxonomy fails", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "categories.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0644))
		_, err := Open(path, filepath.Join(dir, "kb.json"))
		var dfe *core.DataFormatError
		require.True(t, errors.As(err, &dfe))
		assert.Equal(t, path, dfe.Path)
	})

	t.Run("empty taxonomy fails", func(t *testing.T) {
		dir := t.TempDir()
		path := writeTaxonomy(t, dir, []string{})
		_, err := Open(path, filepath.Join(dir, "kb.json"))
		var dfe *core.DataFormatError
		require.True(t, errors.As(err, &dfe))
	})

	t.Run("malformed knowledge base fails", func(t *testing.T) {
		dir := t.TempDir()
		taxonomyPath := writeTaxonomy(t, dir, []string{"Capacitores"})
		basePath := filepath.Join(dir, "kb.json")
		require.NoError(t, os.WriteFile(basePath, []byte("{{{"), 0644))
		_, err := Open(taxonomyPath, basePath)
		var dfe *core.DataFormatError
		require.True(t, errors.As(err, &dfe))
		assert.Equal(t, basePath, dfe.Path)
	})
}

func TestAppend(t *testing.T) {
	t.Run("rejects category outside the taxonomy", func(t *testing.T) {
		store, _ := openTestStore(t, []string{"Capacitores"})
		_, err := store.Append(Example{
			Description:      "widget",
			Category:         "Gadgets",
			StandardizedName: "WIDGET - (NO MODEL)",
		})
		var ve *core.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, core.StagePersist, ve.Stage)
		assert.Equal(t, "category", ve.Field)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("assigns identity and persists", func(t *testing.T) {
		store, basePath := openTestStore(t, []string{"Capacitores"})
		stored, err := store.Append(Example{
			Description:      "capacitor eletrolitico 100uF 16V",
			Category:         "Capacitores",
			StandardizedName: "CAPACITOR ELETROLÍTICO, 100UF, 16V - (SEM MODELO)",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
		assert.False(t, stored.CreatedAt.IsZero())
		assert.Equal(t, 1, store.Len())

		data, err := os.ReadFile(basePath)
		require.NoError(t, err)
		var doc struct {
			Version string    `json:"version"`
			Records []Example `json:"records"`
		}
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, "1.1", doc.Version)
		require.Len(t, doc.Records, 1)
		assert.Equal(t, stored.ID, doc.Records[0].ID)
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		store, basePath := openTestStore(t, []string{"Capacitores"})
		_, err := store.Append(Example{
			Description:      "capacitor 47uF",
			Category:         "Capacitores",
			StandardizedName: "CAPACITOR, 47UF - (SEM MODELO)",
		})
		require.NoError(t, err)

		entries, err := os.ReadDir(filepath.Dir(basePath))
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp")
		}
	})

	t.Run("rolls back in-memory state when the write fails", func(t *testing.T) {
		dir := t.TempDir()
		taxonomyPath := writeTaxonomy(t, dir, []string{"Capacitores"})
		basePath := filepath.Join(dir, "missing", "subdir", "kb.json")
		store, err := Open(taxonomyPath, basePath)
		require.NoError(t, err)

		_, err = store.Append(Example{
			Description:      "capacitor 47uF",
			Category:         "Capacitores",
			StandardizedName: "CAPACITOR, 47UF - (SEM MODELO)",
		})
		require.Error(t, err)
		assert.Equal(t, 0, store.Len())
	})
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	taxonomyPath := writeTaxonomy(t, dir, []string{"Capacitores", "Disjuntores"})
	basePath := filepath.Join(dir, "kb.json")

	store, err := Open(taxonomyPath, basePath)
	require.NoError(t, err)

	first, err := store.Append(Example{
		Description:      "capacitor eletrolitico 100uF 16V",
		Category:         "Capacitores",
		StandardizedName: "CAPACITOR ELETROLÍTICO, 100UF, 16V - (SEM MODELO)",
	})
	require.NoError(t, err)
	second, err := store.Append(Example{
		Description:      "disjuntor bipolar 20A curva C",
		Category:         "Disjuntores",
		StandardizedName: "DISJUNTOR TERMOMAGNÉTICO, 20A BIPOLAR, CURVA C - (SEM MODELO)",
	})
	require.NoError(t, err)

	reopened, err := Open(taxonomyPath, basePath)
	require.NoError(t, err)
	if diff := cmp.Diff([]Example{first, second}, reopened.Examples()); diff != "" {
		t.Errorf("reloaded examples mismatch (-want +got):\n%s", diff)
	}
}

func TestFindSimilar(t *testing.T) {
	store, _ := openTestStore(t, []string{"Capacitores", "Disjuntores", "Tomadas"})
	seed := []Example{
		{Description: "disjuntor bipolar 20A curva C", Category: "Disjuntores", StandardizedName: "A"},
		{Description: "disjuntor tripolar 32A", Category: "Disjuntores", StandardizedName: "B"},
		{Description: "capacitor eletrolitico 100uF 16V", Category: "Capacitores", StandardizedName: "C"},
		{Description: "tomada industrial 2P+T+N 32A", Category: "Tomadas", StandardizedName: "D"},
	}
	for _, ex := range seed {
		_, err := store.Append(ex)
		require.NoError(t, err)
	}

	t.Run("ranks by overlap and excludes zero scores", func(t *testing.T) {
		results := store.FindSimilar("disjuntor bipolar 20A", 10)
		require.NotEmpty(t, results)
		assert.Equal(t, "A", results[0].StandardizedName)
		for _, r := range results {
			assert.NotEqual(t, "C", r.StandardizedName, "capacitor shares no tokens")
		}
	})

	t.Run("caps at k", func(t *testing.T) {
		results := store.FindSimilar("disjuntor 20A 32A", 1)
		assert.Len(t, results, 1)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		first := store.FindSimilar("disjuntor 32A", 5)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, store.FindSimilar("disjuntor 32A", 5))
		}
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		tieStore, _ := openTestStore(t, []string{"Disjuntores"})
		for _, ex := range []Example{
			{Description: "rele termico 10A", Category: "Disjuntores", StandardizedName: "FIRST"},
			{Description: "rele termico 25A", Category: "Disjuntores", StandardizedName: "SECOND"},
		} {
			_, err := tieStore.Append(ex)
			require.NoError(t, err)
		}
		// Both candidates score the same against the query
		results := tieStore.FindSimilar("rele termico", 5)
		require.Len(t, results, 2)
		assert.Equal(t, "FIRST", results[0].StandardizedName)
		assert.Equal(t, "SECOND", results[1].StandardizedName)
	})

	t.Run("no matches gives empty result", func(t *testing.T) {
		assert.Empty(t, store.FindSimilar("parafuso sextavado M8", 5))
		assert.Empty(t, store.FindSimilar("disjuntor", 0))
	})
}

func TestFindByCategory(t *testing.T) {
	store, _ := openTestStore(t, []string{"Disjuntores", "Capacitores"})
	for _, ex := range []Example{
		{Description: "d1", Category: "Disjuntores", StandardizedName: "N1"},
		{Description: "c1", Category: "Capacitores", StandardizedName: "N2"},
		{Description: "d2", Category: "Disjuntores", StandardizedName: "N3"},
		{Description: "d3", Category: "Disjuntores", StandardizedName: "N4"},
	} {
		_, err := store.Append(ex)
		require.NoError(t, err)
	}

	t.Run("insertion order within the category", func(t *testing.T) {
		results := store.FindByCategory("Disjuntores", 10)
		require.Len(t, results, 3)
		assert.Equal(t, "N1", results[0].StandardizedName)
		assert.Equal(t, "N3", results[1].StandardizedName)
		assert.Equal(t, "N4", results[2].StandardizedName)
	})

	t.Run("caps at k", func(t *testing.T) {
		assert.Len(t, store.FindByCategory("Disjuntores", 2), 2)
	})

	t.Run("unknown category gives empty result", func(t *testing.T) {
		assert.Empty(t, store.FindByCategory("Tomadas", 10))
	})
}
