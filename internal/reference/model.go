package reference

import "sort"

// Catalog — один справочник вариантов для полей-перечислений.
type Catalog struct {
	Name  string   `yaml:"name"`
	Items []Choice `yaml:"items"`
}

type Choice struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
	Order int    `yaml:"order,omitempty"`
}

// Set — все справочники процесса, ключ — имя каталога.
type Set map[string]Catalog

// Options отдаёт варианты каталога, отсортированные по Order, затем по коду.
func (s Set) Options(name string) []Choice {
	cat, ok := s[name]
	if !ok {
		return nil
	}
	out := make([]Choice, len(cat.Items))
	copy(out, cat.Items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Valid проверяет, что код входит в каталог.
func (s Set) Valid(name, code string) bool {
	cat, ok := s[name]
	if !ok {
		return false
	}
	for _, it := range cat.Items {
		if it.Code == code {
			return true
		}
	}
	return false
}

// LabelFor возвращает подпись кода; если кода нет — сам код.
func (s Set) LabelFor(name, code string) string {
	cat, ok := s[name]
	if !ok {
		return code
	}
	for _, it := range cat.Items {
		if it.Code == code {
			return it.Label
		}
	}
	return code
}
