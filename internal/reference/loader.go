package reference

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadCatalogs читает все yaml-справочники из каталога.
// Имя справочника — из поля name или из имени файла.
func LoadCatalogs(dir string) (Set, error) {
	result := make(Set)
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if !strings.HasSuffix(file.Name(), ".yaml") && !strings.HasSuffix(file.Name(), ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}
		var cat Catalog
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, err
		}
		if cat.Name == "" {
			cat.Name = strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
		}
		result[cat.Name] = cat
	}
	return result, nil
}
