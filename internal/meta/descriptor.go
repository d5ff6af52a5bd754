package meta

import (
	"reflect"
	"strings"
)

// Kind — вид поля после разбора структуры.
type Kind int

const (
	KindString Kind = iota
	KindText
	KindInt
	KindFloat
	KindDecimal
	KindBool
	KindDate
	KindDateTime
	KindChoice
	KindRelation   // указатель на другую сущность (belongs-to)
	KindCollection // срез дочерних сущностей (has-many)
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindChoice:
		return "choice"
	case KindRelation:
		return "relation"
	case KindCollection:
		return "collection"
	}
	return "unknown"
}

// Field — описание одного поля сущности.
type Field struct {
	Name     string // snake_case имя: ключ форм, путей и колонок
	GoName   string
	Index    int // индекс в структуре
	Kind     Kind
	Label    string
	Required bool
	ReadOnly bool
	Unique   bool
	Choices  string // имя каталога для KindChoice
	OnDelete string // relation: restrict (default) | set_null | cascade
	FK       string // collection: snake-имя поля в дочерней сущности, указывающего на родителя

	// Для relation/collection: тип целевой структуры и разрешённый дескриптор.
	// Target заполняется вторым проходом в Registry.
	TargetType reflect.Type
	Target     *Descriptor
}

// Descriptor — метаданные одной сущности.
type Descriptor struct {
	Name     string // slug, по нему строятся URL-ы
	Label    string
	Type     reflect.Type // тип структуры (без указателя)
	PK       *Field
	Fields   []*Field
	FieldMap map[string]*Field

	Ordering []string // сортировка по умолчанию ("-campo" — по убыванию)
}

// FieldByName находит поле по snake-имени.
func (d *Descriptor) FieldByName(name string) (*Field, bool) {
	f, ok := d.FieldMap[name]
	return f, ok
}

// DataFields — все поля без коллекций и PK (то, что редактируется формой).
func (d *Descriptor) DataFields() []*Field {
	out := make([]*Field, 0, len(d.Fields))
	for _, f := range d.Fields {
		if f.Kind == KindCollection || (d.PK != nil && f.Name == d.PK.Name) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// PKString возвращает строковый PK экземпляра. Пустая строка — нет значения.
func (d *Descriptor) PKString(v any) string {
	if v == nil || d.PK == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return ""
	}
	fv := rv.Field(d.PK.Index)
	if fv.Kind() == reflect.String {
		return fv.String()
	}
	return ""
}

// Display — человекочитаемая метка записи: её String(), если объявлен.
func Display(rec any) string {
	if s, ok := rec.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

// Humanize превращает snake_case в подпись: "fecha_inicio" -> "Fecha inicio".
func Humanize(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
