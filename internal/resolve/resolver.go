// resolve: разыменование путей вида "cliente__direccion__ciudad" по экземпляру
// сущности. Контракт жёсткий: резолвер никогда не паникует — любой обрыв пути
// схлопывается в пустую строку (или настроенный null-маркер).
package resolve

import (
	"fmt"
	"html"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

type Resolver struct {
	Sep   string // разделитель сегментов пути
	Join  string // разделитель элементов коллекции
	Null  string // маркер отсутствующего значения
	True  string // глиф для true
	False string // глиф для false
	Icons bool   // оборачивать ли иконочные классы в <i>
}

func New() *Resolver {
	return &Resolver{
		Sep:   "__",
		Join:  ", ",
		Null:  "",
		True:  "✅",
		False: "❌",
		Icons: true,
	}
}

// Resolve возвращает отображаемый текст по пути. Для ячеек таблиц.
func (r *Resolver) Resolve(instance any, path string) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			out = r.Null
		}
	}()
	v, ok := r.walk(instance, path)
	if !ok {
		return r.Null
	}
	return r.format(v, true)
}

// Plain — то же, но без иконочной разметки. Для поиска, сортировки и экспорта.
func (r *Resolver) Plain(instance any, path string) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			out = r.Null
		}
	}()
	v, ok := r.walk(instance, path)
	if !ok {
		return r.Null
	}
	return r.format(v, false)
}

// Raw отдаёт сырое значение листа пути (до форматирования).
// ok=false — путь оборвался на отсутствующем или nil-значении.
func (r *Resolver) Raw(instance any, path string) (v any, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			v, ok = nil, false
		}
	}()
	return r.walk(instance, path)
}

func (r *Resolver) walk(instance any, path string) (any, bool) {
	sep := r.Sep
	if sep == "" {
		sep = "__"
	}
	segments := strings.Split(path, sep)
	cur := reflect.ValueOf(instance)

	for i, seg := range segments {
		if seg == "" {
			return nil, false
		}
		cur = deref(cur)
		if !cur.IsValid() {
			return nil, false
		}

		next, found := attr(cur, seg)
		if !found {
			return nil, false
		}
		cur = next

		// промежуточный nil обрывает путь без ошибки
		if i < len(segments)-1 {
			if cur.Kind() == reflect.Ptr && cur.IsNil() {
				return nil, false
			}
			if cur.Kind() == reflect.Interface && cur.IsNil() {
				return nil, false
			}
		}
	}

	if !cur.IsValid() {
		return nil, false
	}
	if (cur.Kind() == reflect.Ptr || cur.Kind() == reflect.Interface || cur.Kind() == reflect.Slice) && cur.IsNil() {
		return nil, false
	}
	return cur.Interface(), true
}

// attr ищет сегмент: сначала поле структуры по snake-имени, затем метод без
// аргументов (вычисляемое свойство). Метод зовём на адресуемом значении, если
// он объявлен на указателе.
func attr(v reflect.Value, seg string) (reflect.Value, bool) {
	if v.Kind() == reflect.Struct {
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			if snake(sf.Name) == seg {
				return v.Field(i), true
			}
		}
	}

	// метод: ищем и на значении, и на *T
	candidates := []reflect.Value{v}
	if v.CanAddr() {
		candidates = append(candidates, v.Addr())
	} else if v.Kind() == reflect.Struct {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		candidates = append(candidates, p)
	}
	for _, c := range candidates {
		t := c.Type()
		for i := 0; i < t.NumMethod(); i++ {
			m := t.Method(i)
			if snake(m.Name) != seg {
				continue
			}
			fn := c.Method(i)
			if fn.Type().NumIn() != 0 || fn.Type().NumOut() == 0 {
				// вызываемое, но не нульарное — отдаём строковое представление
				return reflect.ValueOf(fmt.Sprintf("%v", fn)), true
			}
			res := fn.Call(nil)
			return res[0], true
		}
	}
	return reflect.Value{}, false
}

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// format нормализует значение в текст. Порядок веток важен.
func (r *Resolver) format(v any, icons bool) string {
	if v == nil {
		return r.Null
	}
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return r.Null
		}
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	case decimal.Decimal:
		return t.String()
	case bool:
		if t {
			return r.True
		}
		return r.False
	case string:
		if icons && r.Icons && isIconClass(t) {
			return `<i class="` + html.EscapeString(t) + `"></i>`
		}
		return t
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return r.Null
		}
		rv = rv.Elem()
		return r.format(rv.Interface(), icons)
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, r.format(rv.Index(i).Interface(), icons))
		}
		return strings.Join(parts, r.Join)
	}
	return fmt.Sprintf("%v", v)
}

var iconPrefixes = []string{"fa-", "fa ", "fas ", "far ", "bi-", "bi ", "mdi-", "mdi "}

func isIconClass(s string) bool {
	for _, p := range iconPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func snake(s string) string {
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
