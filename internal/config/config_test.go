package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Один тест на весь пакет: LoadWithPath регистрирует флаги, второй вызов
// в том же процессе невозможен.
func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"port": "9090",
		"catalogsDir": "cat",
		"pageSize": 50
	}`), 0o644))

	// ENV поверх JSON
	t.Setenv("TABLERO_PORT", "7000")
	t.Setenv("TABLERO_AUTO_MIGRATE", "yes")

	cfg := LoadWithPath(path)

	assert.Equal(t, "7000", cfg.Port, "ENV перекрывает JSON")
	assert.Equal(t, "cat", cfg.CatalogsDir)
	assert.Equal(t, 50, cfg.PageSize)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "/admin", cfg.BasePath, "дефолт, нигде не задан")
	assert.Empty(t, cfg.DBURL)
}
