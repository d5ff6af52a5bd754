// forms: биндинг и валидация одной формы сущности, inline-наборы дочерних
// строк и композитная форма с атомарным сохранением.
package forms

import (
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/shopspring/decimal"

	"tablero/internal/meta"
	"tablero/internal/reference"
	"tablero/internal/repo"
)

type Options struct {
	Fields   []string // подмножество полей; пусто — все редактируемые
	Prefix   string   // "modulos-0" для inline-строк
	Catalogs reference.Set
	Repo     repo.Repository
	Instance any // nil — создание
}

type Field struct {
	Meta   *meta.Field
	Label  string
	Raw    string // как пришло из запроса
	Value  any    // после coerce
	Errors []string
	Attrs  map[string]string // декларативные атрибуты виджета
	bound  bool
}

// Form — одна форма одной сущности. Живёт один запрос.
type Form struct {
	Desc     *meta.Descriptor
	Prefix   string
	Fields   []*Field
	FieldMap map[string]*Field
	Instance any
	Catalogs reference.Set
	Repo     repo.Repository

	bound     bool
	validated bool
	valid     bool
	errs      []FieldError
}

// New собирает форму по дескриптору. Неизвестное имя поля — ошибка
// конфигурации, а не запроса.
func New(desc *meta.Descriptor, opts Options) (*Form, error) {
	f := &Form{
		Desc:     desc,
		Prefix:   opts.Prefix,
		FieldMap: make(map[string]*Field),
		Instance: opts.Instance,
		Catalogs: opts.Catalogs,
		Repo:     opts.Repo,
	}

	var fields []*meta.Field
	if len(opts.Fields) == 0 {
		for _, mf := range desc.DataFields() {
			if mf.ReadOnly {
				continue
			}
			fields = append(fields, mf)
		}
	} else {
		for _, name := range opts.Fields {
			mf, ok := desc.FieldByName(name)
			if !ok {
				return nil, meta.ConfigErr(desc.Name, "form field %q does not exist", name)
			}
			if mf.Kind == meta.KindCollection {
				return nil, meta.ConfigErr(desc.Name, "form field %q is a collection, use an inline", name)
			}
			fields = append(fields, mf)
		}
	}

	for _, mf := range fields {
		ff := &Field{Meta: mf, Label: mf.Label}
		f.Fields = append(f.Fields, ff)
		f.FieldMap[mf.Name] = ff
	}
	return f, nil
}

// key — имя input-а в запросе с учётом префикса.
func (f *Form) key(name string) string {
	if f.Prefix == "" {
		return name
	}
	return f.Prefix + "-" + name
}

// Bind привязывает данные запроса. Валидация — отдельно, в IsValid.
func (f *Form) Bind(values url.Values) {
	f.bound = true
	f.validated = false
	for _, ff := range f.Fields {
		ff.Raw = values.Get(f.key(ff.Meta.Name))
		ff.bound = true
	}
}

// IsValid чистит все поля. Ошибки копятся, а не обрывают проверку.
func (f *Form) IsValid() bool {
	if !f.bound {
		return false
	}
	if f.validated {
		return f.valid
	}
	f.validated = true
	f.errs = nil

	for _, ff := range f.Fields {
		ff.Errors = nil
		f.cleanField(ff)
	}
	f.valid = len(f.errs) == 0
	return f.valid
}

func (f *Form) cleanField(ff *Field) {
	mf := ff.Meta
	name := mf.Name

	if ff.Raw == "" {
		if mf.Kind == meta.KindBool {
			ff.Value = false // чекбокс: отсутствие значения — false
			return
		}
		if mf.Required {
			f.addErr(ff, ferr(ErrRequired, name, "Field '"+name+"' is required"))
			return
		}
		ff.Value = nil
		return
	}

	switch mf.Kind {
	case meta.KindRelation:
		inst, err := f.Repo.Get(mf.Target.Name, ff.Raw)
		if err != nil {
			f.addErr(ff, ferr(ErrRefNotFound, name, "Referenced '"+mf.Target.Name+"' not found"))
			return
		}
		ff.Value = inst
	case meta.KindChoice:
		if f.Catalogs != nil && !f.Catalogs.Valid(mf.Choices, ff.Raw) {
			f.addErr(ff, ferr(ErrChoiceInvalid, name, "Invalid value for '"+name+"'"))
			return
		}
		ff.Value = ff.Raw
	default:
		v, err := coerce(mf, ff.Raw)
		if err != nil {
			f.addErr(ff, ferr(ErrTypeMismatch, name, "Field '"+name+"' "+err.Error()))
			return
		}
		ff.Value = v
	}

	if mf.Unique {
		if f.violatesUnique(mf, ff.Value) {
			f.addErr(ff, ferr(ErrUniqueViolation, name, "Field '"+name+"' must be unique"))
		}
	}
}

func (f *Form) violatesUnique(mf *meta.Field, value any) bool {
	if f.Repo == nil {
		return false
	}
	all, err := f.Repo.List(f.Desc.Name)
	if err != nil {
		return false
	}
	needle := fmt.Sprintf("%v", value)
	ownPK := f.Desc.PKString(f.Instance)
	for _, rec := range all {
		if ownPK != "" && f.Desc.PKString(rec) == ownPK {
			continue
		}
		rv := reflect.ValueOf(rec).Elem().Field(mf.Index)
		if fmt.Sprintf("%v", rv.Interface()) == needle {
			return true
		}
	}
	return false
}

func (f *Form) addErr(ff *Field, e FieldError) {
	ff.Errors = append(ff.Errors, e.Message)
	f.errs = append(f.errs, e)
}

// ErrorList — плоский список с кодами.
func (f *Form) ErrorList() []FieldError { return f.errs }

// Errors — поле → сообщения, ключи с префиксом формы.
func (f *Form) Errors() map[string][]string {
	out := make(map[string][]string)
	for _, e := range f.errs {
		k := f.key(e.Field)
		out[k] = append(out[k], e.Message)
	}
	return out
}

// Apply переносит вычищенные значения в экземпляр.
// Зовётся только после успешного IsValid.
func (f *Form) Apply(instance any) error {
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("forms: Apply needs a non-nil pointer, got %T", instance)
	}
	rv = rv.Elem()

	for _, ff := range f.Fields {
		fv := rv.Field(ff.Meta.Index)
		if ff.Value == nil {
			fv.Set(reflect.Zero(fv.Type()))
			continue
		}
		switch ff.Meta.Kind {
		case meta.KindInt:
			fv.SetInt(ff.Value.(int64))
		case meta.KindFloat:
			fv.SetFloat(ff.Value.(float64))
		case meta.KindBool:
			fv.SetBool(ff.Value.(bool))
		case meta.KindDecimal:
			fv.Set(reflect.ValueOf(ff.Value.(decimal.Decimal)))
		case meta.KindDate, meta.KindDateTime:
			fv.Set(reflect.ValueOf(ff.Value.(time.Time)))
		case meta.KindRelation:
			fv.Set(reflect.ValueOf(ff.Value))
		default:
			fv.SetString(ff.Value.(string))
		}
	}
	return nil
}

// Initial — значение поля для рендера: после Bind — сырое из запроса,
// иначе — из привязанного экземпляра.
func (f *Form) Initial(name string) string {
	ff, ok := f.FieldMap[name]
	if !ok {
		return ""
	}
	if ff.bound {
		return ff.Raw
	}
	if f.Instance == nil {
		return ""
	}
	rv := reflect.ValueOf(f.Instance)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	fv := rv.Field(ff.Meta.Index)
	switch ff.Meta.Kind {
	case meta.KindRelation:
		if fv.IsNil() || ff.Meta.Target == nil {
			return ""
		}
		return ff.Meta.Target.PKString(fv.Interface())
	case meta.KindDate:
		t := fv.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	case meta.KindDateTime:
		t := fv.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02T15:04")
	case meta.KindBool:
		if fv.Bool() {
			return "on"
		}
		return ""
	case meta.KindDecimal:
		return fv.Interface().(decimal.Decimal).String()
	}
	return fmt.Sprintf("%v", fv.Interface())
}
