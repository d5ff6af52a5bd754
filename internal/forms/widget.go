package forms

import (
	"html"
	"sort"
	"strings"

	"tablero/internal/meta"
)

// RenderWidget рендерит input поля. extra-атрибуты и классы вливаются в
// копию — повторный рендер той же формы даёт тот же результат.
func (f *Form) RenderWidget(name string, extra map[string]string) string {
	ff, ok := f.FieldMap[name]
	if !ok {
		return ""
	}
	mf := ff.Meta
	key := f.key(name)
	id := "id_" + key

	attrs := map[string]string{
		"name": key,
		"id":   id,
	}
	for k, v := range ff.Attrs {
		attrs[k] = v
	}
	mergeAttrs(attrs, extra)
	if mf.Required {
		attrs["required"] = ""
	}

	value := f.Initial(name)

	switch mf.Kind {
	case meta.KindText:
		addClass(attrs, "form-control")
		return "<textarea" + renderAttrs(attrs) + ">" + html.EscapeString(value) + "</textarea>"

	case meta.KindBool:
		addClass(attrs, "form-check-input")
		attrs["type"] = "checkbox"
		if value != "" {
			attrs["checked"] = ""
		}
		return "<input" + renderAttrs(attrs) + ">"

	case meta.KindChoice:
		addClass(attrs, "form-select")
		var b strings.Builder
		b.WriteString("<select" + renderAttrs(attrs) + ">")
		b.WriteString(`<option value="">---------</option>`)
		if f.Catalogs != nil {
			for _, opt := range f.Catalogs.Options(mf.Choices) {
				b.WriteString(option(opt.Code, opt.Label, opt.Code == value))
			}
		}
		b.WriteString("</select>")
		return b.String()

	case meta.KindRelation:
		addClass(attrs, "form-select")
		var b strings.Builder
		b.WriteString("<select" + renderAttrs(attrs) + ">")
		b.WriteString(`<option value="">---------</option>`)
		if f.Repo != nil && mf.Target != nil {
			all, err := f.Repo.List(mf.Target.Name)
			if err == nil {
				for _, rec := range all {
					pk := mf.Target.PKString(rec)
					label := meta.Display(rec)
					if label == "" {
						label = pk
					}
					b.WriteString(option(pk, label, pk == value))
				}
			}
		}
		b.WriteString("</select>")
		return b.String()

	default:
		addClass(attrs, "form-control")
		attrs["type"] = inputType(mf.Kind)
		if mf.Kind == meta.KindDecimal || mf.Kind == meta.KindFloat {
			attrs["step"] = "any"
		}
		attrs["value"] = value
		return "<input" + renderAttrs(attrs) + ">"
	}
}

// RenderLabel — тег label поля.
func (f *Form) RenderLabel(name string, class string) string {
	ff, ok := f.FieldMap[name]
	if !ok {
		return ""
	}
	attrs := map[string]string{"for": "id_" + f.key(name)}
	if class != "" {
		attrs["class"] = class
	}
	return "<label" + renderAttrs(attrs) + ">" + html.EscapeString(ff.Label) + "</label>"
}

// FieldErrorsHTML — блок ошибок поля для ререндера невалидной формы.
func (f *Form) FieldErrorsHTML(name string) string {
	ff, ok := f.FieldMap[name]
	if !ok || len(ff.Errors) == 0 {
		return ""
	}
	var b strings.Builder
	for _, msg := range ff.Errors {
		b.WriteString(`<div class="invalid-feedback d-block">` + html.EscapeString(msg) + `</div>`)
	}
	return b.String()
}

func inputType(k meta.Kind) string {
	switch k {
	case meta.KindInt, meta.KindFloat, meta.KindDecimal:
		return "number"
	case meta.KindDate:
		return "date"
	case meta.KindDateTime:
		return "datetime-local"
	}
	return "text"
}

func option(code, label string, selected bool) string {
	sel := ""
	if selected {
		sel = " selected"
	}
	return `<option value="` + html.EscapeString(code) + `"` + sel + `>` + html.EscapeString(label) + `</option>`
}

// mergeAttrs вливает extra в base; class конкатенируется, остальное
// перезаписывается.
func mergeAttrs(base, extra map[string]string) {
	for k, v := range extra {
		if k == "class" {
			addClass(base, v)
			continue
		}
		base[k] = v
	}
}

func addClass(attrs map[string]string, class string) {
	if class == "" {
		return
	}
	if cur := attrs["class"]; cur != "" {
		// не дублируем уже присутствующий класс
		for _, c := range strings.Fields(cur) {
			if c == class {
				return
			}
		}
		attrs["class"] = cur + " " + class
		return
	}
	attrs["class"] = class
}

func renderAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		v := attrs[k]
		if v == "" && (k == "required" || k == "checked" || k == "selected" || k == "disabled") {
			b.WriteString(" " + k)
			continue
		}
		b.WriteString(" " + k + `="` + html.EscapeString(v) + `"`)
	}
	return b.String()
}
