package forms

import (
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablero/internal/meta"
	"tablero/internal/reference"
	"tablero/internal/repo"
)

type rubro struct {
	ID     string
	Nombre string
}

func (r *rubro) String() string { return r.Nombre }

type proveedor struct {
	ID       string
	Nombre   string `admin:"label:Nombre,required"`
	CUIT     string `admin:"unique"`
	Estado   string `admin:"choices:estados"`
	Saldo    decimal.Decimal
	Activo   bool
	Rubro    *rubro
	Facturas []*factura `admin:"fk:proveedor"`
}

type factura struct {
	ID        string
	Numero    string `admin:"required"`
	Total     decimal.Decimal
	Proveedor *proveedor
}

var catalogs = reference.Set{
	"estados": reference.Catalog{Items: []reference.Choice{
		{Code: "alta", Label: "Alta"},
		{Code: "baja", Label: "Baja"},
	}},
}

func setup(t *testing.T) (*meta.Registry, *repo.Memory, *meta.Descriptor) {
	t.Helper()
	reg := meta.NewRegistry()
	require.NoError(t, reg.Register(proveedor{}, factura{}, rubro{}))
	m := repo.NewMemory(reg)
	d, _ := reg.Lookup("proveedor")
	return reg, m, d
}

func newForm(t *testing.T, m *repo.Memory, d *meta.Descriptor, instance any) *Form {
	t.Helper()
	f, err := New(d, Options{Catalogs: catalogs, Repo: m, Instance: instance})
	require.NoError(t, err)
	return f
}

func TestFormValidAndApply(t *testing.T) {
	_, m, d := setup(t)
	rid, _ := m.Save(&rubro{Nombre: "Corralón"})

	f := newForm(t, m, d, nil)
	f.Bind(url.Values{
		"nombre": {"Acme"},
		"cuit":   {"30-1"},
		"estado": {"alta"},
		"saldo":  {"150.25"},
		"activo": {"on"},
		"rubro":  {rid},
	})
	require.True(t, f.IsValid(), f.Errors())

	p := &proveedor{}
	require.NoError(t, f.Apply(p))
	assert.Equal(t, "Acme", p.Nombre)
	assert.Equal(t, "alta", p.Estado)
	assert.True(t, p.Activo)
	assert.True(t, p.Saldo.Equal(decimal.RequireFromString("150.25")))
	require.NotNil(t, p.Rubro)
	assert.Equal(t, "Corralón", p.Rubro.Nombre)
}

func TestFormErrorsAccumulate(t *testing.T) {
	_, m, d := setup(t)
	f := newForm(t, m, d, nil)
	f.Bind(url.Values{
		"estado": {"inexistente"},
		"saldo":  {"no-numero"},
		"rubro":  {"id-falso"},
	})
	require.False(t, f.IsValid())

	errs := f.Errors()
	assert.Contains(t, errs, "nombre") // required
	assert.Contains(t, errs, "estado")
	assert.Contains(t, errs, "saldo")
	assert.Contains(t, errs, "rubro")

	codes := map[string]bool{}
	for _, e := range f.ErrorList() {
		codes[e.Code] = true
	}
	assert.True(t, codes[ErrRequired])
	assert.True(t, codes[ErrChoiceInvalid])
	assert.True(t, codes[ErrTypeMismatch])
	assert.True(t, codes[ErrRefNotFound])
}

func TestFormUnique(t *testing.T) {
	_, m, d := setup(t)
	_, err := m.Save(&proveedor{Nombre: "Uno", CUIT: "30-7"})
	require.NoError(t, err)

	f := newForm(t, m, d, nil)
	f.Bind(url.Values{"nombre": {"Dos"}, "cuit": {"30-7"}})
	require.False(t, f.IsValid())
	assert.Contains(t, f.Errors(), "cuit")

	// при редактировании своя запись не считается конфликтом
	all, _ := m.List("proveedor")
	own := all[0]
	fe := newForm(t, m, d, own)
	fe.Bind(url.Values{"nombre": {"Uno"}, "cuit": {"30-7"}})
	assert.True(t, fe.IsValid(), fe.Errors())
}

func TestCheckboxAbsentMeansFalse(t *testing.T) {
	_, m, d := setup(t)
	f := newForm(t, m, d, nil)
	f.Bind(url.Values{"nombre": {"X"}})
	require.True(t, f.IsValid(), f.Errors())
	p := &proveedor{Activo: true}
	require.NoError(t, f.Apply(p))
	assert.False(t, p.Activo)
}

func TestWidgetRenderIdempotent(t *testing.T) {
	_, m, d := setup(t)
	f := newForm(t, m, d, nil)

	extra := map[string]string{"class": "is-grande"}
	first := f.RenderWidget("nombre", extra)
	second := f.RenderWidget("nombre", extra)
	assert.Equal(t, first, second, "повторный рендер не накапливает атрибуты")
	assert.Equal(t, 1, strings.Count(second, "is-grande"))
	assert.Contains(t, first, `name="nombre"`)
	assert.Contains(t, first, "required")
}

func TestSelectWidgets(t *testing.T) {
	_, m, d := setup(t)
	rid, _ := m.Save(&rubro{Nombre: "Corralón"})

	p := &proveedor{Estado: "baja"}
	f := newForm(t, m, d, p)

	sel := f.RenderWidget("estado", nil)
	assert.Contains(t, sel, `<option value="baja" selected>`)

	rel := f.RenderWidget("rubro", nil)
	assert.Contains(t, rel, `value="`+rid+`"`)
	assert.Contains(t, rel, "Corralón")
}

func inlineOpts(m *repo.Memory, child *meta.Descriptor) InlineOptions {
	return InlineOptions{
		Child:     child,
		FK:        "proveedor",
		Prefix:    "facturas",
		Extra:     2,
		CanDelete: true,
		Catalogs:  catalogs,
		Repo:      m,
	}
}

func TestInlineBindAndErrors(t *testing.T) {
	reg, m, _ := setup(t)
	fd, _ := reg.Lookup("factura")

	fs, err := NewInlineFormSet(inlineOpts(m, fd), "")
	require.NoError(t, err)
	assert.Len(t, fs.Forms, 2, "extra-строки в несвязанном наборе")

	require.NoError(t, fs.Bind(url.Values{
		"facturas-TOTAL_FORMS": {"3"},
		"facturas-0-numero":    {"A-1"},
		"facturas-0-total":     {"10"},
		"facturas-1-numero":    {""},
		"facturas-1-total":     {"zzz"},
		// строка 2 полностью пустая — пропускается молча
	}))
	require.Len(t, fs.Forms, 2)
	require.False(t, fs.IsValid())

	errs := fs.Errors()
	assert.Contains(t, errs, "facturas-1-numero", "ключ вида prefix-index-field")
	assert.Contains(t, errs, "facturas-1-total")
	assert.NotContains(t, errs, "facturas-0-numero")
}

func TestCompositeSaveCreatesParentAndRows(t *testing.T) {
	reg, m, d := setup(t)
	fd, _ := reg.Lookup("factura")

	primary := newForm(t, m, d, nil)
	fs, err := NewInlineFormSet(inlineOpts(m, fd), "")
	require.NoError(t, err)

	c := &Composite{Primary: primary, Inlines: []*InlineFormSet{fs}}
	require.NoError(t, c.Bind(url.Values{
		"nombre":               {"Acme"},
		"facturas-TOTAL_FORMS": {"2"},
		"facturas-0-numero":    {"A-1"},
		"facturas-0-total":     {"99.90"},
		"facturas-1-numero":    {"A-2"},
	}))
	require.True(t, c.IsValid(), c.Errors())

	var saved any
	require.NoError(t, m.Atomic(func(tx repo.Repository) error {
		var err error
		saved, err = c.Save(tx)
		return err
	}))

	pid := d.PKString(saved)
	require.NotEmpty(t, pid)

	kids, err := m.ListChildren("factura", "proveedor", pid)
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, "A-1", kids[0].(*factura).Numero)
	assert.Equal(t, pid, d.PKString(kids[0].(*factura).Proveedor))
}

func TestCompositeInvalidInlineBlocksAll(t *testing.T) {
	reg, m, d := setup(t)
	fd, _ := reg.Lookup("factura")

	primary := newForm(t, m, d, nil)
	fs, _ := NewInlineFormSet(inlineOpts(m, fd), "")
	c := &Composite{Primary: primary, Inlines: []*InlineFormSet{fs}}

	require.NoError(t, c.Bind(url.Values{
		"nombre":               {"Acme"},
		"facturas-TOTAL_FORMS": {"1"},
		"facturas-0-total":     {"10"}, // numero обязателен
	}))
	assert.False(t, c.IsValid())
	assert.Contains(t, c.Errors(), "facturas-0-numero")
}

func TestInlineEditDeleteRow(t *testing.T) {
	reg, m, _ := setup(t)
	fd, _ := reg.Lookup("factura")

	pid, _ := m.Save(&proveedor{Nombre: "Acme"})
	parent, _ := m.Get("proveedor", pid)
	f1id, _ := m.Save(&factura{Numero: "A-1", Proveedor: parent.(*proveedor)})
	_, err := m.Save(&factura{Numero: "A-2", Proveedor: parent.(*proveedor)})
	require.NoError(t, err)

	fs, err := NewInlineFormSet(inlineOpts(m, fd), pid)
	require.NoError(t, err)
	assert.Len(t, fs.Forms, 4, "2 существующих + 2 extra")

	require.NoError(t, fs.Bind(url.Values{
		"facturas-TOTAL_FORMS": {"2"},
		"facturas-0-id":        {f1id},
		"facturas-0-numero":    {"A-1-bis"},
		"facturas-0-DELETE":    {"on"},
		"facturas-1-numero":    {"A-2-bis"},
	}))
	require.True(t, fs.IsValid(), fs.Errors())

	require.NoError(t, m.Atomic(func(tx repo.Repository) error {
		p, err := tx.Get("proveedor", pid)
		if err != nil {
			return err
		}
		return fs.Save(tx, p)
	}))

	kids, _ := m.ListChildren("factura", "proveedor", pid)
	numeros := make([]string, 0, len(kids))
	for _, k := range kids {
		numeros = append(numeros, k.(*factura).Numero)
	}
	assert.NotContains(t, numeros, "A-1")
	assert.NotContains(t, numeros, "A-1-bis")
	assert.Contains(t, numeros, "A-2-bis")
}
