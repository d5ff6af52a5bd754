// layout: дерево раскладки формы. Узел рендерит себя против привязанной
// формы; рендер — чистая depth-first конкатенация, повторный вызов даёт
// байт-в-байт тот же результат.
package layout

import (
	"html"
	"strings"

	"tablero/internal/forms"
)

type Node interface {
	Render(f *forms.Form) string
}

// Layout — плоская верхнеуровневая последовательность узлов.
type Layout struct {
	Nodes []Node
}

// New принимает узлы и строки: голая строка — сахар для Field с меткой сверху.
func New(items ...any) *Layout {
	return &Layout{Nodes: coerceNodes(items)}
}

func (l *Layout) Render(f *forms.Form) string {
	var b strings.Builder
	for _, n := range l.Nodes {
		b.WriteString(n.Render(f))
	}
	return b.String()
}

// Default строит раскладку по умолчанию: все поля формы одним столбцом.
func Default(f *forms.Form) *Layout {
	l := &Layout{}
	for _, ff := range f.Fields {
		l.Nodes = append(l.Nodes, Field{Name: ff.Meta.Name})
	}
	return l
}

func coerceNodes(items []any) []Node {
	out := make([]Node, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			out = append(out, Field{Name: v})
		case Node:
			out = append(out, v)
		}
	}
	return out
}

// Положение метки поля.
const (
	LabelTop    = "top"
	LabelLeft   = "left"
	LabelRight  = "right" // чекбоксы: сначала поле, метка после
	LabelHidden = "hidden"
)

// Field — одно поле формы с меткой и обёрткой.
type Field struct {
	Name         string
	LabelPos     string // по умолчанию top
	CSSClass     string // дополнительные классы виджета
	WrapperClass string
	LabelClass   string
	Attrs        map[string]string
}

func (n Field) Render(f *forms.Form) string {
	var extra map[string]string
	if n.CSSClass != "" || len(n.Attrs) > 0 {
		extra = make(map[string]string, len(n.Attrs)+1)
		for k, v := range n.Attrs {
			extra[k] = v
		}
		if n.CSSClass != "" {
			extra["class"] = n.CSSClass
		}
	}

	widget := f.RenderWidget(n.Name, extra)
	if widget == "" {
		return ""
	}
	errs := f.FieldErrorsHTML(n.Name)

	wrapper := "mb-3"
	if n.WrapperClass != "" {
		wrapper += " " + n.WrapperClass
	}

	pos := n.LabelPos
	if pos == "" {
		pos = LabelTop
	}
	switch pos {
	case LabelHidden:
		return `<div class="` + wrapper + `">` + widget + errs + `</div>`
	case LabelLeft:
		label := f.RenderLabel(n.Name, joinClass("col-form-label col-sm-3", n.LabelClass))
		return `<div class="` + wrapper + ` row">` + label +
			`<div class="col-sm-9">` + widget + errs + `</div></div>`
	case LabelRight:
		label := f.RenderLabel(n.Name, joinClass("form-check-label", n.LabelClass))
		return `<div class="` + wrapper + ` form-check">` + widget + label + errs + `</div>`
	default: // top
		label := f.RenderLabel(n.Name, joinClass("form-label", n.LabelClass))
		return `<div class="` + wrapper + `">` + label + widget + errs + `</div>`
	}
}

// Row — flex-строка, дети в колонках.
type Row struct {
	Items    []any
	CSSClass string
}

func (n Row) Render(f *forms.Form) string {
	return container("row"+suffix(n.CSSClass), coerceNodes(n.Items), f)
}

// Column — колонка внутри Row.
type Column struct {
	Items    []any
	CSSClass string
}

func (n Column) Render(f *forms.Form) string {
	class := n.CSSClass
	if class == "" {
		class = "col"
	}
	return container(class, coerceNodes(n.Items), f)
}

// Div — группировка без семантики.
type Div struct {
	Items    []any
	CSSClass string
}

func (n Div) Render(f *forms.Form) string {
	return container(n.CSSClass, coerceNodes(n.Items), f)
}

// Fieldset — группа с legend.
type Fieldset struct {
	Legend   string
	Items    []any
	CSSClass string
}

func (n Fieldset) Render(f *forms.Form) string {
	var b strings.Builder
	b.WriteString(`<fieldset class="border rounded p-3 mb-3` + suffix(n.CSSClass) + `">`)
	if n.Legend != "" {
		b.WriteString(`<legend class="float-none w-auto fs-6">` + html.EscapeString(n.Legend) + `</legend>`)
	}
	for _, c := range coerceNodes(n.Items) {
		b.WriteString(c.Render(f))
	}
	b.WriteString(`</fieldset>`)
	return b.String()
}

// Card — рамка с заголовком.
type Card struct {
	Title    string
	Items    []any
	CSSClass string
}

func (n Card) Render(f *forms.Form) string {
	var b strings.Builder
	b.WriteString(`<div class="card mb-3` + suffix(n.CSSClass) + `">`)
	if n.Title != "" {
		b.WriteString(`<div class="card-header">` + html.EscapeString(n.Title) + `</div>`)
	}
	b.WriteString(`<div class="card-body">`)
	for _, c := range coerceNodes(n.Items) {
		b.WriteString(c.Render(f))
	}
	b.WriteString(`</div></div>`)
	return b.String()
}

// HTML — сырой фрагмент, без экранирования.
type HTML string

func (n HTML) Render(*forms.Form) string { return string(n) }

// Separator — горизонтальный разделитель, опционально с текстом.
type Separator struct {
	Text     string
	CSSClass string
}

func (n Separator) Render(*forms.Form) string {
	if n.Text == "" {
		return `<hr class="my-3` + suffix(n.CSSClass) + `">`
	}
	return `<div class="separator text-muted my-3` + suffix(n.CSSClass) + `">` +
		html.EscapeString(n.Text) + `</div>`
}

// Submit — кнопка отправки.
type Submit struct {
	Label    string
	CSSClass string
}

func (n Submit) Render(*forms.Form) string {
	class := n.CSSClass
	if class == "" {
		class = "btn btn-primary"
	}
	label := n.Label
	if label == "" {
		label = "Guardar"
	}
	return `<button type="submit" class="` + html.EscapeString(class) + `">` +
		html.EscapeString(label) + `</button>`
}

// ButtonGroup — ряд кнопок действий.
type ButtonGroup struct {
	Items    []any
	CSSClass string
}

func (n ButtonGroup) Render(f *forms.Form) string {
	return container("btn-group"+suffix(n.CSSClass), coerceNodes(n.Items), f)
}

func container(class string, children []Node, f *forms.Form) string {
	var b strings.Builder
	if class != "" {
		b.WriteString(`<div class="` + class + `">`)
	} else {
		b.WriteString(`<div>`)
	}
	for _, c := range children {
		b.WriteString(c.Render(f))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func suffix(class string) string {
	if class == "" {
		return ""
	}
	return " " + class
}

func joinClass(base, extra string) string {
	if extra == "" {
		return base
	}
	return base + " " + extra
}
