package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tablero/internal/meta"
	"tablero/internal/resolve"
)

// Specifier применяет поиск, фильтры и сортировку к срезу сущностей.
// Создаётся view-конфигом, сам по себе состояния запроса не держит.
type Specifier struct {
	Desc         *meta.Descriptor
	Res          *resolve.Resolver
	SearchFields []string
	FilterPaths  []string
}

// Apply: поиск → фильтры → дедупликация по PK. Сортировка отдельным шагом,
// порядок входного среза без сортировки сохраняется.
func (s *Specifier) Apply(items []any, req Request) []any {
	out := items
	if req.Search != "" && len(s.SearchFields) > 0 {
		out = s.search(out, req.Search)
	}
	for _, path := range s.FilterPaths {
		v, ok := req.Filters[path]
		if !ok || v == "" {
			continue
		}
		out = s.filter(out, path, v)
	}
	return s.distinct(out)
}

// search: каждое слово должно найтись хотя бы в одном из полей поиска
// (AND по словам, OR по полям).
func (s *Specifier) search(items []any, text string) []any {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return items
	}
	out := make([]any, 0, len(items))
	for _, it := range items {
		vals := make([]string, 0, len(s.SearchFields))
		for _, f := range s.SearchFields {
			vals = append(vals, strings.ToLower(s.Res.Plain(it, f)))
		}
		matched := true
		for _, w := range words {
			found := false
			for _, v := range vals {
				if strings.Contains(v, w) {
					found = true
					break
				}
			}
			if !found {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, it)
		}
	}
	return out
}

// filter: равенство по пути. Для связей принимаем и PK цели, и её
// строковое представление.
func (s *Specifier) filter(items []any, path, v string) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		if s.Res.Plain(it, path) == v {
			out = append(out, it)
			continue
		}
		// сырое значение: bool как "true"/"false", числа как есть
		if rv, ok := s.Res.Raw(it, path); ok {
			switch rv.(type) {
			case bool, int, int64, float64:
				if fmt.Sprintf("%v", rv) == v {
					out = append(out, it)
					continue
				}
			}
		}
		if pk := s.Res.Plain(it, path+"__id"); pk != "" && pk == v {
			out = append(out, it)
		}
	}
	return out
}

// distinct: обход связей может продублировать строки — убираем по PK,
// сохраняя порядок первого вхождения.
func (s *Specifier) distinct(items []any) []any {
	if s.Desc == nil {
		return items
	}
	seen := make(map[string]bool, len(items))
	out := make([]any, 0, len(items))
	for _, it := range items {
		pk := s.Desc.PKString(it)
		if pk != "" && seen[pk] {
			continue
		}
		if pk != "" {
			seen[pk] = true
		}
		out = append(out, it)
	}
	return out
}

// Order сортирует стабильно по списку ключей ("-campo" — по убыванию)
// с политикой nulls first/last. Пустой список ключей — порядок не трогаем.
func (s *Specifier) Order(items []any, keys []string, nulls string) {
	if len(keys) == 0 {
		return
	}
	type kspec struct {
		path string
		desc bool
	}
	specs := make([]kspec, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		desc := strings.HasPrefix(k, "-")
		specs = append(specs, kspec{path: strings.TrimPrefix(k, "-"), desc: desc})
	}

	sort.SliceStable(items, func(i, j int) bool {
		for _, sp := range specs {
			if c := s.cmpByPath(items[i], items[j], sp.path, nulls, sp.desc); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func (s *Specifier) cmpByPath(a, b any, path, nulls string, desc bool) int {
	va, oka := s.Res.Raw(a, path)
	vb, okb := s.Res.Raw(b, path)

	na := !oka || va == nil
	nb := !okb || vb == nil

	// nulls first/last — вне зависимости от направления
	if na && nb {
		return 0
	}
	if na != nb {
		if nulls == "first" {
			if na {
				return -1
			}
			return +1
		}
		if na {
			return +1
		}
		return -1
	}

	rel := cmpValues(va, vb)
	if rel == 0 {
		// типизированное сравнение не взялось — строковое
		sa, sb := s.Res.Plain(a, path), s.Res.Plain(b, path)
		if sa < sb {
			rel = -1
		} else if sa > sb {
			rel = +1
		}
	}
	if desc {
		rel = -rel
	}
	return rel
}

// cmpValues сравнивает типизированно, 0 — равно или несравнимо.
func cmpValues(a, b any) int {
	switch x := a.(type) {
	case int:
		if y, ok := b.(int); ok {
			return cmpInt(int64(x), int64(y))
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmpInt(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return +1
			}
			return 0
		}
	case decimal.Decimal:
		if y, ok := b.(decimal.Decimal); ok {
			return x.Cmp(y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			switch {
			case x.Before(y):
				return -1
			case x.After(y):
				return +1
			}
			return 0
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case !x && y:
				return -1
			case x && !y:
				return +1
			}
			return 0
		}
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return +1
	}
	return 0
}
