package forms

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"tablero/internal/meta"
	"tablero/internal/reference"
	"tablero/internal/repo"
)

// InlineOptions — декларация одного inline-набора у родительской формы.
type InlineOptions struct {
	Child     *meta.Descriptor
	FK        string // snake-имя поля дочерней сущности, смотрящего на родителя
	Prefix    string // префикс input-ов: "<prefix>-<index>-<field>"
	Fields    []string
	Extra     int // пустых строк при рендере
	CanDelete bool
	Catalogs  reference.Set
	Repo      repo.Repository
}

// InlineFormSet — набор строк дочерней сущности, редактируемых вместе
// с родителем. Каждая строка — обычная Form с префиксом "<prefix>-<i>".
type InlineFormSet struct {
	Opts   InlineOptions
	Forms  []*Form
	Delete []bool // пометка на удаление по строкам

	existing  []any // привязанные дочерние записи (для edit)
	validated bool
	valid     bool
}

// NewInlineFormSet строит набор. parentID пустой — создание родителя,
// существующих строк нет.
func NewInlineFormSet(opts InlineOptions, parentID string) (*InlineFormSet, error) {
	fk, ok := opts.Child.FieldByName(opts.FK)
	if !ok || fk.Kind != meta.KindRelation {
		return nil, meta.ConfigErr(opts.Child.Name, "inline fk %q is not a relation", opts.FK)
	}
	fs := &InlineFormSet{Opts: opts}

	if parentID != "" && opts.Repo != nil {
		children, err := opts.Repo.ListChildren(opts.Child.Name, opts.FK, parentID)
		if err != nil {
			return nil, err
		}
		fs.existing = children
	}

	// несвязанный набор: формы существующих строк + Extra пустых
	for i, child := range fs.existing {
		form, err := fs.rowForm(i, child)
		if err != nil {
			return nil, err
		}
		fs.Forms = append(fs.Forms, form)
		fs.Delete = append(fs.Delete, false)
	}
	for i := 0; i < opts.Extra; i++ {
		form, err := fs.rowForm(len(fs.existing)+i, nil)
		if err != nil {
			return nil, err
		}
		fs.Forms = append(fs.Forms, form)
		fs.Delete = append(fs.Delete, false)
	}
	return fs, nil
}

func (fs *InlineFormSet) rowForm(index int, instance any) (*Form, error) {
	fields := fs.Opts.Fields
	if len(fields) == 0 {
		for _, mf := range fs.Opts.Child.DataFields() {
			if mf.ReadOnly || mf.Name == fs.Opts.FK {
				continue
			}
			fields = append(fields, mf.Name)
		}
	}
	return New(fs.Opts.Child, Options{
		Fields:   fields,
		Prefix:   fmt.Sprintf("%s-%d", fs.Opts.Prefix, index),
		Catalogs: fs.Opts.Catalogs,
		Repo:     fs.Opts.Repo,
		Instance: instance,
	})
}

// Bind пересобирает строки из запроса по management-полю TOTAL_FORMS.
// Пустые дополнительные строки без id молча пропускаются.
func (fs *InlineFormSet) Bind(values url.Values) error {
	fs.validated = false
	fs.Forms = nil
	fs.Delete = nil

	total, _ := strconv.Atoi(values.Get(fs.Opts.Prefix + "-TOTAL_FORMS"))
	byID := make(map[string]any, len(fs.existing))
	for _, c := range fs.existing {
		byID[fs.Opts.Child.PKString(c)] = c
	}

	for i := 0; i < total; i++ {
		rowPrefix := fmt.Sprintf("%s-%d", fs.Opts.Prefix, i)
		rowID := values.Get(rowPrefix + "-id")
		instance := byID[rowID]

		if instance == nil && emptyRow(values, rowPrefix, fs.rowFieldNames()) {
			continue
		}

		form, err := fs.rowForm(len(fs.Forms), instance)
		if err != nil {
			return err
		}
		// биндим по исходному префиксу строки, даже если пустые строки
		// перед ней были пропущены
		form.Prefix = rowPrefix
		form.Bind(values)
		fs.Forms = append(fs.Forms, form)
		fs.Delete = append(fs.Delete, fs.Opts.CanDelete && values.Get(rowPrefix+"-DELETE") != "")
	}
	return nil
}

func (fs *InlineFormSet) rowFieldNames() []string {
	if len(fs.Opts.Fields) > 0 {
		return fs.Opts.Fields
	}
	var names []string
	for _, mf := range fs.Opts.Child.DataFields() {
		if mf.ReadOnly || mf.Name == fs.Opts.FK {
			continue
		}
		names = append(names, mf.Name)
	}
	return names
}

func emptyRow(values url.Values, rowPrefix string, fields []string) bool {
	for _, name := range fields {
		if values.Get(rowPrefix+"-"+name) != "" {
			return false
		}
	}
	return true
}

// IsValid проверяет все строки; помеченные на удаление не валидируются.
func (fs *InlineFormSet) IsValid() bool {
	if fs.validated {
		return fs.valid
	}
	fs.validated = true
	fs.valid = true
	for i, form := range fs.Forms {
		if fs.Delete[i] {
			continue
		}
		if !form.IsValid() {
			fs.valid = false
		}
	}
	return fs.valid
}

// Errors — ключи вида "<prefix>-<index>-<field>".
func (fs *InlineFormSet) Errors() map[string][]string {
	out := make(map[string][]string)
	for i, form := range fs.Forms {
		if fs.Delete[i] {
			continue
		}
		for k, msgs := range form.Errors() {
			out[k] = append(out[k], msgs...)
		}
	}
	return out
}

// Save пишет строки набора против сохранённого родителя.
// Родитель обязан существовать к этому моменту.
func (fs *InlineFormSet) Save(tx repo.Repository, parent any) error {
	fk, _ := fs.Opts.Child.FieldByName(fs.Opts.FK)

	for i, form := range fs.Forms {
		if fs.Delete[i] {
			if form.Instance != nil {
				id := fs.Opts.Child.PKString(form.Instance)
				if id != "" {
					if err := tx.Delete(fs.Opts.Child.Name, id); err != nil {
						return err
					}
				}
			}
			continue
		}

		instance := form.Instance
		if instance == nil {
			instance = reflect.New(fs.Opts.Child.Type).Interface()
		}
		if err := form.Apply(instance); err != nil {
			return err
		}
		reflect.ValueOf(instance).Elem().Field(fk.Index).Set(reflect.ValueOf(parent))
		if _, err := tx.Save(instance); err != nil {
			return err
		}
	}
	return nil
}
