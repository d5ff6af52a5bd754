package admin

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tablero/internal/meta"
	"tablero/internal/query"
	"tablero/internal/reference"
)

// list: QueryRequest → Specifier → сортировка → Paginator → таблица.
func (e *Engine) list(c *gin.Context, v *View) {
	req := e.queryRequest(c, v)
	items, err := e.filteredItems(v, req)
	if err != nil {
		panic(err)
	}
	page := query.Paginate(items, req.RawPage, req.PageSize)
	spec := e.buildDisplay(v, v.ListDisplay, req.Popup)

	var b strings.Builder
	e.pageHead(&b, v.Title)
	b.WriteString(`<h1>` + html.EscapeString(v.Title) + `</h1>`)
	e.renderToolbar(&b, v, req)
	e.renderFilters(&b, v, req)
	e.renderTable(&b, c, v, spec, page.Items, req.Popup)
	e.renderPagination(&b, v, page, req)
	e.pageFoot(&b)

	c.Header("X-Total-Count", strconv.Itoa(page.Total))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(b.String()))
}

func (e *Engine) pageHead(b *strings.Builder, title string) {
	b.WriteString(`<!doctype html><html><head><meta charset="utf-8"><title>` +
		html.EscapeString(title) + `</title></head><body class="container">`)
}

func (e *Engine) pageFoot(b *strings.Builder) {
	b.WriteString(`</body></html>`)
}

func (e *Engine) renderToolbar(b *strings.Builder, v *View, req query.Request) {
	b.WriteString(`<div class="toolbar d-flex mb-3">`)
	if len(v.SearchFields) > 0 {
		b.WriteString(`<form method="get" action="` + e.listURL(v) + `" class="me-auto">` +
			`<input type="search" name="kword" value="` + html.EscapeString(req.Search) + `" placeholder="Buscar...">` +
			`<button type="submit" class="btn btn-sm btn-outline-secondary">Buscar</button></form>`)
	}
	b.WriteString(`<a class="btn btn-primary" href="` + e.actionURL(v, "add", "") + `">Agregar</a>`)
	if len(v.Export) > 0 {
		b.WriteString(` <a class="btn btn-outline-success" href="` + e.actionURL(v, "export", "") + `">Exportar</a>`)
	}
	b.WriteString(`</div>`)
}

func (e *Engine) renderFilters(b *strings.Builder, v *View, req query.Request) {
	if len(v.Filters) == 0 {
		return
	}
	b.WriteString(`<form method="get" action="` + e.listURL(v) + `" class="filters mb-3">`)
	for _, flt := range v.Filters {
		label := flt.Label
		if label == "" {
			label = e.filterLabel(v.desc, flt.Path)
		}
		current := req.Filters[flt.Path]
		b.WriteString(`<label>` + html.EscapeString(label) + `</label>`)
		b.WriteString(`<select name="` + html.EscapeString(flt.Path) + `">`)
		b.WriteString(`<option value="">Todos</option>`)
		for _, opt := range e.filterOptions(v, flt.Path) {
			sel := ""
			if opt.Code == current {
				sel = " selected"
			}
			b.WriteString(`<option value="` + html.EscapeString(opt.Code) + `"` + sel + `>` +
				html.EscapeString(opt.Label) + `</option>`)
		}
		b.WriteString(`</select>`)
	}
	b.WriteString(`<button type="submit" class="btn btn-sm btn-outline-secondary">Filtrar</button></form>`)
}

func (e *Engine) filterLabel(d *meta.Descriptor, path string) string {
	segments := splitPath(path)
	if len(segments) == 1 {
		if f, ok := d.FieldByName(segments[0]); ok {
			return f.Label
		}
	}
	return meta.Humanize(segments[len(segments)-1])
}

// filterOptions — кандидаты значений фильтра: bool — да/нет, choice —
// каталог, связь — список целевых записей, иначе — distinct по колонке.
func (e *Engine) filterOptions(v *View, path string) []reference.Choice {
	f := terminalField(v.desc, path)
	if f != nil {
		switch f.Kind {
		case meta.KindBool:
			return []reference.Choice{{Code: "true", Label: "Sí"}, {Code: "false", Label: "No"}}
		case meta.KindChoice:
			return e.catalogs().Options(f.Choices)
		case meta.KindRelation:
			all, err := e.repo.List(f.Target.Name)
			if err != nil {
				return nil
			}
			out := make([]reference.Choice, 0, len(all))
			for _, rec := range all {
				pk := f.Target.PKString(rec)
				label := meta.Display(rec)
				if label == "" {
					label = pk
				}
				out = append(out, reference.Choice{Code: pk, Label: label})
			}
			return out
		}
	}

	items, err := e.repo.List(v.desc.Name)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []reference.Choice
	for _, it := range items {
		s := e.res.Plain(it, path)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, reference.Choice{Code: s, Label: s})
	}
	return out
}

// terminalField идёт по пути, пока сегменты — поля; nil, если путь
// упирается в метод или неизвестный сегмент.
func terminalField(d *meta.Descriptor, path string) *meta.Field {
	cur := d
	var last *meta.Field
	for _, seg := range splitPath(path) {
		if cur == nil {
			return nil
		}
		f, ok := cur.FieldByName(seg)
		if !ok {
			return nil
		}
		last = f
		if f.Kind == meta.KindRelation || f.Kind == meta.KindCollection {
			cur = f.Target
		} else {
			cur = nil
		}
	}
	return last
}

func (e *Engine) renderTable(b *strings.Builder, c *gin.Context, v *View, spec DisplaySpec, items []any, popup bool) {
	b.WriteString(`<table class="table table-striped"><thead><tr>`)
	for _, h := range spec.Headers {
		b.WriteString(`<th>` + html.EscapeString(h) + `</th>`)
	}
	if !popup {
		b.WriteString(`<th>Acciones</th>`)
	}
	b.WriteString(`</tr></thead><tbody>`)

	for _, obj := range items {
		b.WriteString(`<tr>`)
		for _, cell := range spec.Cells {
			b.WriteString(`<td>` + cell(obj) + `</td>`)
		}
		if !popup {
			b.WriteString(`<td>`)
			for _, ra := range e.rowActions(c, v, obj) {
				cls := "btn btn-sm btn-outline-secondary"
				if ra.Modal {
					cls += " js-modal"
				}
				b.WriteString(`<a class="` + cls + `" href="` + ra.URL + `">`)
				if ra.Icon != "" {
					b.WriteString(`<i class="` + html.EscapeString(ra.Icon) + `"></i> `)
				}
				b.WriteString(html.EscapeString(ra.Label) + `</a> `)
			}
			b.WriteString(`</td>`)
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)
}

func (e *Engine) renderPagination(b *strings.Builder, v *View, page query.PageResult, req query.Request) {
	if page.TotalPages <= 1 {
		return
	}
	b.WriteString(`<nav class="pagination">`)
	if page.HasPrev {
		b.WriteString(`<a href="` + e.pageURL(v, req, page.Page-1) + `">&laquo;</a>`)
	}
	b.WriteString(fmt.Sprintf(`<span>Página %d de %d (%d)</span>`, page.Page, page.TotalPages, page.Total))
	if page.HasNext {
		b.WriteString(`<a href="` + e.pageURL(v, req, page.Page+1) + `">&raquo;</a>`)
	}
	b.WriteString(`</nav>`)
}

func (e *Engine) pageURL(v *View, req query.Request, page int) string {
	q := url.Values{"pagina": {strconv.Itoa(page)}}
	if req.Search != "" {
		q.Set("kword", req.Search)
	}
	for k, val := range req.Filters {
		q.Set(k, val)
	}
	return e.listURL(v) + "?" + q.Encode()
}

// renderForm — страница add/edit: первичная форма по раскладке view,
// затем inline-наборы с management-полями.
func (e *Engine) renderForm(c *gin.Context, v *View, instance any) {
	comp, err := e.composite(v, instance)
	if err != nil {
		panic(err)
	}

	action := "add"
	id := ""
	if instance != nil {
		action = "edit"
		id = v.desc.PKString(instance)
	}

	var b strings.Builder
	e.pageHead(&b, v.Title)
	b.WriteString(`<h1>` + html.EscapeString(v.Title) + `</h1>`)
	b.WriteString(`<form method="post" action="` + e.actionURL(v, action, id) + `" class="crud-form">`)
	if id != "" {
		b.WriteString(`<input type="hidden" name="id" value="` + html.EscapeString(id) + `">`)
	}
	b.WriteString(formLayout(v, comp.Primary).Render(comp.Primary))

	for _, fs := range comp.Inlines {
		prefix := fs.Opts.Prefix
		b.WriteString(`<fieldset class="inline-set" data-prefix="` + html.EscapeString(prefix) + `">`)
		b.WriteString(`<legend>` + html.EscapeString(meta.Humanize(prefix)) + `</legend>`)
		b.WriteString(`<input type="hidden" name="` + prefix + `-TOTAL_FORMS" value="` +
			strconv.Itoa(len(fs.Forms)) + `">`)
		for i, row := range fs.Forms {
			rowPrefix := fmt.Sprintf("%s-%d", prefix, i)
			b.WriteString(`<div class="inline-row">`)
			if row.Instance != nil {
				rid := fs.Opts.Child.PKString(row.Instance)
				b.WriteString(`<input type="hidden" name="` + rowPrefix + `-id" value="` +
					html.EscapeString(rid) + `">`)
			}
			for _, ff := range row.Fields {
				b.WriteString(`<div class="inline-cell">` +
					row.RenderLabel(ff.Meta.Name, "form-label") +
					row.RenderWidget(ff.Meta.Name, nil) +
					row.FieldErrorsHTML(ff.Meta.Name) + `</div>`)
			}
			if fs.Opts.CanDelete && row.Instance != nil {
				b.WriteString(`<label class="inline-delete"><input type="checkbox" name="` +
					rowPrefix + `-DELETE"> Eliminar</label>`)
			}
			b.WriteString(`</div>`)
		}
		b.WriteString(`</fieldset>`)
	}

	b.WriteString(`<div class="form-actions">` +
		`<button type="submit" class="btn btn-primary">Guardar</button>` +
		`<button type="submit" name="_addanother" value="1" class="btn btn-outline-primary">Guardar y agregar otro</button>` +
		`<button type="submit" name="_continue" value="1" class="btn btn-outline-primary">Guardar y continuar</button>` +
		`</div></form>`)
	e.pageFoot(&b)

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(b.String()))
}

func (e *Engine) renderDeleteConfirm(c *gin.Context, v *View, instance any) {
	id := v.desc.PKString(instance)
	label := meta.Display(instance)
	if label == "" {
		label = id
	}
	var b strings.Builder
	e.pageHead(&b, v.Title)
	b.WriteString(`<h1>Eliminar ` + html.EscapeString(v.Title) + `</h1>`)
	b.WriteString(`<p>¿Confirma eliminar "` + html.EscapeString(label) + `"?</p>`)
	b.WriteString(`<form method="post" action="` + e.actionURL(v, "delete", id) + `">` +
		`<button type="submit" class="btn btn-danger">Eliminar</button>` +
		`<a class="btn btn-secondary" href="` + e.listURL(v) + `">Cancelar</a></form>`)
	e.pageFoot(&b)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(b.String()))
}
