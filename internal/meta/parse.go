package meta

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// tag "admin": разделитель — запятая, пары через двоеточие.
// Пример: `admin:"label:Nombre,required,choices:paises"`.
type fieldTag struct {
	Label    string
	Kind     string
	Required bool
	ReadOnly bool
	Unique   bool
	Choices  string
	OnDelete string
	FK       string
	Skip     bool
}

func parseTag(tagStr string) fieldTag {
	var t fieldTag
	if tagStr == "" {
		return t
	}
	if tagStr == "-" {
		t.Skip = true
		return t
	}
	for _, part := range strings.Split(tagStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		var val string
		if len(kv) > 1 {
			val = strings.TrimSpace(kv[1])
		}
		switch key {
		case "label":
			t.Label = val
		case "kind":
			t.Kind = strings.ToLower(val)
		case "required":
			t.Required = true
		case "readonly":
			t.ReadOnly = true
		case "unique":
			t.Unique = true
		case "choices":
			t.Choices = val
		case "on_delete":
			t.OnDelete = strings.ToLower(val)
		case "fk":
			t.FK = val
		}
	}
	return t
}

// parseDescriptor разбирает структуру в Descriptor. Связи остаются
// неразрешёнными (Target == nil) до второго прохода в Registry.
func parseDescriptor(typ reflect.Type) (*Descriptor, error) {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("meta: %s is not a struct", typ)
	}

	d := &Descriptor{
		Name:     camelToSnake(typ.Name()),
		Label:    Humanize(camelToSnake(typ.Name())),
		Type:     typ,
		FieldMap: make(map[string]*Field),
	}

	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := parseTag(sf.Tag.Get("admin"))
		if tag.Skip {
			continue
		}

		f := &Field{
			Name:     camelToSnake(sf.Name),
			GoName:   sf.Name,
			Index:    i,
			Required: tag.Required,
			ReadOnly: tag.ReadOnly,
			Unique:   tag.Unique,
			Choices:  tag.Choices,
			OnDelete: tag.OnDelete,
			FK:       tag.FK,
		}
		if f.Label = tag.Label; f.Label == "" {
			f.Label = Humanize(f.Name)
		}

		kind, target, err := fieldKind(sf.Type, tag)
		if err != nil {
			return nil, fmt.Errorf("meta: %s.%s: %w", typ.Name(), sf.Name, err)
		}
		f.Kind = kind
		f.TargetType = target

		if f.Kind == KindRelation && f.OnDelete == "" {
			f.OnDelete = "restrict"
		}

		d.Fields = append(d.Fields, f)
		d.FieldMap[f.Name] = f

		if f.Name == "id" {
			d.PK = f
			f.ReadOnly = true
		}
	}

	if d.PK == nil {
		return nil, fmt.Errorf("meta: %s has no string field ID", typ.Name())
	}
	return d, nil
}

// fieldKind выводит вид поля из Go-типа и тега.
func fieldKind(t reflect.Type, tag fieldTag) (Kind, reflect.Type, error) {
	switch {
	case t == timeType:
		if tag.Kind == "date" {
			return KindDate, nil, nil
		}
		return KindDateTime, nil, nil
	case t == decimalType:
		return KindDecimal, nil, nil
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		return KindRelation, t.Elem(), nil
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Ptr && t.Elem().Elem().Kind() == reflect.Struct:
		if tag.FK == "" {
			return 0, nil, fmt.Errorf("collection field needs fk tag")
		}
		return KindCollection, t.Elem().Elem(), nil
	}

	switch t.Kind() {
	case reflect.String:
		if tag.Choices != "" {
			return KindChoice, nil, nil
		}
		if tag.Kind == "text" {
			return KindText, nil, nil
		}
		return KindString, nil, nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		return KindInt, nil, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil, nil
	case reflect.Bool:
		return KindBool, nil, nil
	}
	return 0, nil, fmt.Errorf("unsupported field type %s", t)
}

// camelToSnake: "FechaInicio" -> "fecha_inicio", "URL" -> "url".
func camelToSnake(s string) string {
	if s == "ID" {
		return "id"
	}
	var res []rune
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rune(s[i-1])) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
				res = append(res, '_')
			}
			res = append(res, unicode.ToLower(r))
		} else {
			res = append(res, r)
		}
	}
	return string(res)
}

// SnakeCase — экспортированная версия для других пакетов (resolve, pg).
func SnakeCase(s string) string { return camelToSnake(s) }
