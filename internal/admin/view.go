// admin: движок административного CRUD. Одна точка входа на сущность,
// действие выбирается параметром action; запись всегда идёт через одну
// атомарную единицу работы.
package admin

import (
	"reflect"

	"github.com/gin-gonic/gin"

	"tablero/internal/layout"
	"tablero/internal/meta"
	"tablero/internal/reference"
	"tablero/internal/repo"
)

// Column — колонка листинга или экспорта.
// Path — путь через "__"; Func — вычисляемая ячейка (требует Label).
type Column struct {
	Label string
	Path  string
	Func  func(obj any) string
}

// Cols — сахар для набора колонок по путям.
func Cols(paths ...string) []Column {
	out := make([]Column, 0, len(paths))
	for _, p := range paths {
		out = append(out, Column{Path: p})
	}
	return out
}

// Filter — фильтр листинга: путь + необязательная подпись.
type Filter struct {
	Path  string
	Label string
}

// Inline — декларация inline-набора на форме сущности.
type Inline struct {
	Proto     any    // прототип дочерней сущности
	FK        string // поле дочерней сущности, смотрящее на родителя
	Prefix    string // пусто — slug дочерней сущности
	Fields    []string
	Extra     int
	CanDelete bool

	desc *meta.Descriptor
}

// RowAction — действие в строке таблицы.
type RowAction struct {
	Name  string
	Label string
	Icon  string
	URL   string
	Modal bool
}

// ActionFunc — обработчик нестандартного действия view.
type ActionFunc func(c *gin.Context, e *Engine, v *View)

// View — декларативная настройка CRUD одной сущности.
type View struct {
	Proto        any
	Title        string
	PageSize     int // 0 — без пагинации
	ListDisplay  []Column
	SearchFields []string
	Filters      []Filter
	Ordering     []string
	Export       []Column // пусто — export недоступен
	FormFields   []string
	Layout       *layout.Layout
	Inlines      []Inline

	// Actions — дополнительные действия поверх стандартных.
	Actions map[string]ActionFunc

	// RowActions переопределяет действия строки; nil — edit + delete.
	RowActions func(c *gin.Context, e *Engine, v *View, obj any) []RowAction

	// DeleteGuard зовётся перед удалением внутри транзакции; ошибка
	// отменяет удаление и уходит пользователю.
	DeleteGuard func(tx repo.Repository, obj any) error

	desc *meta.Descriptor
}

// Desc — дескриптор сущности view (после регистрации).
func (v *View) Desc() *meta.Descriptor { return v.desc }

// lint гоняет декларацию view по дескрипторам. Ошибки конфигурации
// должны валить старт, а не первый запрос.
func (v *View) lint(e *Engine, refs reference.Set) error {
	d := v.desc

	for _, col := range v.ListDisplay {
		if err := lintColumn(d, col); err != nil {
			return err
		}
	}
	for _, col := range v.Export {
		if err := lintColumn(d, col); err != nil {
			return err
		}
	}
	for _, f := range v.SearchFields {
		if err := lintPath(d, f); err != nil {
			return err
		}
	}
	for _, f := range v.Filters {
		if err := lintPath(d, f.Path); err != nil {
			return err
		}
	}
	for _, name := range v.FormFields {
		if _, ok := d.FieldByName(name); !ok {
			return meta.ConfigErr(d.Name, "form field %q does not exist", name)
		}
	}
	for _, f := range d.Fields {
		if f.Kind == meta.KindChoice {
			if _, ok := refs[f.Choices]; !ok {
				return meta.ConfigErr(d.Name, "field %s references unknown catalog %q", f.Name, f.Choices)
			}
		}
	}
	for i := range v.Inlines {
		inl := &v.Inlines[i]
		cd, ok := e.reg.LookupType(inl.Proto)
		if !ok {
			return meta.ConfigErr(d.Name, "inline type %T is not registered", inl.Proto)
		}
		inl.desc = cd
		fk, ok := cd.FieldByName(inl.FK)
		if !ok || fk.Kind != meta.KindRelation || fk.Target != d {
			return meta.ConfigErr(d.Name, "inline %s: fk %q is not a relation back to %s", cd.Name, inl.FK, d.Name)
		}
		if inl.Prefix == "" {
			inl.Prefix = cd.Name + "s"
		}
	}
	return nil
}

func lintColumn(d *meta.Descriptor, col Column) error {
	if col.Func != nil {
		if col.Label == "" {
			return meta.ConfigErr(d.Name, "computed column needs a label")
		}
		return nil
	}
	if col.Path == "" {
		return meta.ConfigErr(d.Name, "column needs a path or a func")
	}
	return lintPath(d, col.Path)
}

// lintPath валидирует путь, пока сегменты остаются полями дескрипторов.
// Сегмент-метод (вычисляемое свойство) обрывает проверку.
func lintPath(d *meta.Descriptor, path string) error {
	cur := d
	segments := splitPath(path)
	for i, seg := range segments {
		if cur == nil {
			return meta.ConfigErr(d.Name, "path %q goes past a scalar segment", path)
		}
		f, ok := cur.FieldByName(seg)
		if !ok {
			if hasMethod(cur.Type, seg) {
				return nil
			}
			return meta.ConfigErr(d.Name, "path %q: unknown segment %q on %s", path, seg, cur.Name)
		}
		switch f.Kind {
		case meta.KindRelation, meta.KindCollection:
			cur = f.Target
		default:
			if i != len(segments)-1 {
				return meta.ConfigErr(d.Name, "path %q: segment %q is not a relation", path, seg)
			}
			cur = nil
		}
	}
	return nil
}

func hasMethod(t reflect.Type, snakeName string) bool {
	pt := reflect.PtrTo(t)
	for i := 0; i < pt.NumMethod(); i++ {
		if meta.SnakeCase(pt.Method(i).Name) == snakeName {
			return true
		}
	}
	return false
}

func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(path); i++ {
		if path[i] == '_' && path[i+1] == '_' {
			out = append(out, path[start:i])
			start = i + 2
			i++
		}
	}
	out = append(out, path[start:])
	return out
}
