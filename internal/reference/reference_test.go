package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalogs(t *testing.T) {
	dir := t.TempDir()
	yml := `name: estados_obra
items:
  - code: activa
    label: Activa
    order: 1
  - code: finalizada
    label: Finalizada
    order: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "estados.yaml"), []byte(yml), 0o644))
	// без name — имя из файла
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paises.yml"), []byte("items:\n  - code: ar\n    label: Argentina\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignorar"), 0o644))

	set, err := LoadCatalogs(dir)
	require.NoError(t, err)
	require.Len(t, set, 2)

	assert.True(t, set.Valid("estados_obra", "activa"))
	assert.False(t, set.Valid("estados_obra", "borrada"))
	assert.Equal(t, "Finalizada", set.LabelFor("estados_obra", "finalizada"))
	assert.Equal(t, "xx", set.LabelFor("estados_obra", "xx"))
	assert.Equal(t, "Argentina", set.LabelFor("paises", "ar"))
}

func TestOptionsOrder(t *testing.T) {
	set := Set{
		"prioridad": Catalog{Items: []Choice{
			{Code: "baja", Label: "Baja", Order: 3},
			{Code: "alta", Label: "Alta", Order: 1},
			{Code: "media", Label: "Media", Order: 2},
		}},
	}
	opts := set.Options("prioridad")
	require.Len(t, opts, 3)
	assert.Equal(t, "alta", opts[0].Code)
	assert.Equal(t, "media", opts[1].Code)
	assert.Equal(t, "baja", opts[2].Code)
	assert.Nil(t, set.Options("nope"))
}
