package admin

import (
	"html"
	"strings"

	"tablero/internal/meta"
)

// DisplaySpec — параллельные заголовки и ячейки-аксессоры таблицы.
// Строится заново на каждый запрос: колонки могут зависеть от контекста
// (режим пикера, ссылки относительно хоста).
type DisplaySpec struct {
	Headers []string
	Cells   []func(obj any) string
}

// buildDisplay разворачивает декларации колонок. popup добавляет
// синтетическую первую колонку выбора записи.
func (e *Engine) buildDisplay(v *View, cols []Column, popup bool) DisplaySpec {
	d := v.desc
	spec := DisplaySpec{}

	if popup {
		spec.Headers = append(spec.Headers, "")
		spec.Cells = append(spec.Cells, func(obj any) string {
			pk := d.PKString(obj)
			label := meta.Display(obj)
			if label == "" {
				label = pk
			}
			return `<button type="button" class="btn btn-sm btn-outline-primary select-row"` +
				` data-id="` + html.EscapeString(pk) + `" data-label="` + html.EscapeString(label) + `">` +
				`Elegir</button>`
		})
	}

	for _, col := range cols {
		spec.Headers = append(spec.Headers, e.columnHeader(d, col))
		spec.Cells = append(spec.Cells, e.columnCell(d, col))
	}
	return spec
}

func (e *Engine) columnHeader(d *meta.Descriptor, col Column) string {
	if col.Label != "" {
		return col.Label
	}
	segments := splitPath(col.Path)
	if len(segments) == 1 {
		if f, ok := d.FieldByName(segments[0]); ok {
			return f.Label
		}
	}
	return meta.Humanize(segments[len(segments)-1])
}

func (e *Engine) columnCell(d *meta.Descriptor, col Column) func(any) string {
	if col.Func != nil {
		return col.Func
	}
	path := col.Path
	segments := splitPath(path)

	// прямое choice-поле показываем подписью каталога
	if len(segments) == 1 {
		if f, ok := d.FieldByName(segments[0]); ok {
			switch f.Kind {
			case meta.KindChoice:
				name := f.Choices
				return func(obj any) string {
					code := e.res.Plain(obj, path)
					if code == "" {
						return ""
					}
					return e.catalogs().LabelFor(name, code)
				}
			case meta.KindCollection:
				// коллекция может быть не загружена — добираем из хранилища
				target, fk := f.Target, f.FK
				return func(obj any) string {
					if s := e.res.Resolve(obj, path); s != "" {
						return s
					}
					children, err := e.repo.ListChildren(target.Name, fk, d.PKString(obj))
					if err != nil {
						return ""
					}
					parts := make([]string, 0, len(children))
					for _, c := range children {
						if s := meta.Display(c); s != "" {
							parts = append(parts, s)
						} else {
							parts = append(parts, target.PKString(c))
						}
					}
					return strings.Join(parts, e.res.Join)
				}
			}
		}
	}
	return func(obj any) string { return e.res.Resolve(obj, path) }
}

// exportCell — то же, но без html-разметки (иконки, глифы остаются текстом).
func (e *Engine) exportCell(d *meta.Descriptor, col Column) func(any) string {
	if col.Func != nil {
		return col.Func
	}
	path := col.Path
	segments := splitPath(path)
	if len(segments) == 1 {
		if f, ok := d.FieldByName(segments[0]); ok && f.Kind == meta.KindChoice {
			name := f.Choices
			return func(obj any) string {
				code := e.res.Plain(obj, path)
				if code == "" {
					return ""
				}
				return e.catalogs().LabelFor(name, code)
			}
		}
	}
	return func(obj any) string { return e.res.Plain(obj, path) }
}
