package query

import (
	"net/url"
	"strings"
)

// Request — разобранные параметры листинга. Живёт один запрос.
type Request struct {
	Search   string
	Filters  map[string]string
	Ordering []string // "campo" asc, "-campo" desc
	RawPage  string   // как пришло; нормализуется в Paginate
	PageSize int      // задаёт view, 0 — без пагинации
	Nulls    string   // "last" (default) | "first"
	Popup    bool     // режим пикера из чужой формы
}

// служебные ключи, которые не являются фильтрами
var serviceKeys = map[string]bool{
	"action":      true,
	"kword":       true,
	"pagina":      true,
	"o":           true,
	"nulls":       true,
	"_popup":      true,
	"_addanother": true,
	"_continue":   true,
	"_export":     true,
}

// Parse разбирает query-параметры запроса.
func Parse(q url.Values) Request {
	var ordering []string
	if sv := strings.TrimSpace(q.Get("o")); sv != "" {
		for _, p := range strings.Split(sv, ",") {
			p = strings.TrimSpace(p)
			if p == "" || p == "-" {
				continue
			}
			ordering = append(ordering, strings.TrimPrefix(p, "+"))
		}
	}

	nulls := strings.ToLower(strings.TrimSpace(q.Get("nulls")))
	if nulls != "first" && nulls != "last" {
		nulls = "last"
	}

	filters := make(map[string]string)
	for key, vals := range q {
		if serviceKeys[key] {
			continue
		}
		for _, v := range vals {
			if strings.TrimSpace(v) != "" {
				filters[key] = v
				break
			}
		}
	}

	return Request{
		Search:   strings.TrimSpace(q.Get("kword")),
		Filters:  filters,
		Ordering: ordering,
		RawPage:  q.Get("pagina"),
		Nulls:    nulls,
		Popup:    q.Get("_popup") == "1",
	}
}
