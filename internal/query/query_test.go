package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablero/internal/meta"
	"tablero/internal/resolve"
)

type contacto struct {
	ID     string
	Nombre string
	Email  string
	Edad   int
	Alta   time.Time
	Grupo  *grupo
}

type grupo struct {
	ID     string
	Nombre string
}

func (g *grupo) String() string { return g.Nombre }

func fixture(t *testing.T) (*Specifier, []any) {
	t.Helper()
	reg := meta.NewRegistry()
	require.NoError(t, reg.Register(contacto{}, grupo{}))
	d, _ := reg.Lookup("contacto")

	ventas := &grupo{ID: "g1", Nombre: "Ventas"}
	compras := &grupo{ID: "g2", Nombre: "Compras"}
	items := []any{
		&contacto{ID: "1", Nombre: "Alpha Beta", Email: "ab@x.com", Edad: 30, Grupo: ventas},
		&contacto{ID: "2", Nombre: "Alpha", Email: "beta@x.com", Edad: 25, Grupo: compras},
		&contacto{ID: "3", Nombre: "Gamma", Email: "g@x.com", Edad: 41},
		&contacto{ID: "4", Nombre: "Beta", Email: "alpha@x.com", Edad: 2, Grupo: ventas},
	}
	s := &Specifier{
		Desc:         d,
		Res:          resolve.New(),
		SearchFields: []string{"nombre", "email"},
		FilterPaths:  []string{"grupo", "edad"},
	}
	return s, items
}

func TestSearchAndAcrossWordsOrAcrossFields(t *testing.T) {
	s, items := fixture(t)

	// каждое слово должно найтись хотя бы в одном поле
	got := s.Apply(items, Request{Search: "alpha beta"})
	ids := pks(s, got)
	assert.Equal(t, []string{"1", "2", "4"}, ids)

	got = s.Apply(items, Request{Search: "gamma"})
	assert.Equal(t, []string{"3"}, pks(s, got))

	got = s.Apply(items, Request{Search: "alpha zeta"})
	assert.Empty(t, got)
}

func TestSearchWithoutFieldsIsNoop(t *testing.T) {
	s, items := fixture(t)
	s.SearchFields = nil
	got := s.Apply(items, Request{Search: "alpha"})
	assert.Len(t, got, len(items))
}

func TestFilterByRelationPK(t *testing.T) {
	s, items := fixture(t)
	got := s.Apply(items, Request{Filters: map[string]string{"grupo": "g1"}})
	assert.Equal(t, []string{"1", "4"}, pks(s, got))

	// по строковому представлению тоже работает
	got = s.Apply(items, Request{Filters: map[string]string{"grupo": "Compras"}})
	assert.Equal(t, []string{"2"}, pks(s, got))

	// мусорное значение — пустой результат, не ошибка
	got = s.Apply(items, Request{Filters: map[string]string{"grupo": "zzz"}})
	assert.Empty(t, got)
}

func TestDistinct(t *testing.T) {
	s, items := fixture(t)
	dup := append([]any{items[0]}, items...)
	got := s.Apply(dup, Request{})
	assert.Len(t, got, len(items))
}

func TestOrder(t *testing.T) {
	s, items := fixture(t)

	s.Order(items, []string{"edad"}, "last")
	assert.Equal(t, []string{"4", "2", "1", "3"}, pks(s, items))

	s.Order(items, []string{"-edad"}, "last")
	assert.Equal(t, []string{"3", "1", "2", "4"}, pks(s, items))
}

func TestOrderNullsPolicy(t *testing.T) {
	s, items := fixture(t)

	// id=3 без группы
	s.Order(items, []string{"grupo__nombre"}, "last")
	assert.Equal(t, "3", pks(s, items)[len(items)-1])

	s.Order(items, []string{"grupo__nombre"}, "first")
	assert.Equal(t, "3", pks(s, items)[0])
}

func TestParse(t *testing.T) {
	q := url.Values{}
	q.Set("kword", "  alpha ")
	q.Set("pagina", "7")
	q.Set("o", "-edad, nombre")
	q.Set("grupo", "g1")
	q.Set("action", "list")
	q.Set("_popup", "1")

	req := Parse(q)
	assert.Equal(t, "alpha", req.Search)
	assert.Equal(t, "7", req.RawPage)
	assert.Equal(t, []string{"-edad", "nombre"}, req.Ordering)
	assert.Equal(t, map[string]string{"grupo": "g1"}, req.Filters)
	assert.True(t, req.Popup)
	assert.Equal(t, "last", req.Nulls)
}

func TestPaginateClamping(t *testing.T) {
	items := make([]any, 7)
	for i := range items {
		items[i] = i
	}

	cases := []struct {
		raw      string
		wantPage int
	}{
		{"", 1},
		{"abc", 1},
		{"0", 1},
		{"-3", 1},
		{"2", 2},
		{"99", 3},
	}
	for _, tc := range cases {
		p := Paginate(items, tc.raw, 3)
		assert.Equal(t, tc.wantPage, p.Page, "raw=%q", tc.raw)
		assert.Equal(t, 3, p.TotalPages)
		assert.NotEmpty(t, p.Items, "raw=%q", tc.raw)
	}

	p := Paginate(items, "2", 3)
	assert.Len(t, p.Items, 3)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = Paginate(items, "3", 3)
	assert.Len(t, p.Items, 1)
	assert.False(t, p.HasNext)
}

func TestPaginateUnbounded(t *testing.T) {
	items := []any{1, 2, 3}
	p := Paginate(items, "5", 0)
	assert.Len(t, p.Items, 3)
	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate(nil, "4", 10)
	assert.Empty(t, p.Items)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)
}

func pks(s *Specifier, items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, s.Desc.PKString(it))
	}
	return out
}
