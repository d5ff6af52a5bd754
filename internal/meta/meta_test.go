package meta

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type obra struct {
	ID           string
	Nombre       string `admin:"label:Nombre,required"`
	Presupuesto  decimal.Decimal
	FechaInicio  time.Time `admin:"kind:date"`
	Activa       bool
	Estado       string  `admin:"choices:estados_obra"`
	Responsable  *persona
	Tareas       []*tareaObra `admin:"fk:obra"`
	Observacion  string       `admin:"kind:text"`
	interno      int
	SinMetadatos string `admin:"-"`
}

type persona struct {
	ID     string
	Nombre string
}

func (p *persona) String() string { return p.Nombre }

type tareaObra struct {
	ID   string
	Obra *obra `admin:"on_delete:cascade"`
	Tipo string
}

func TestParseDescriptor(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(obra{}, persona{}, tareaObra{}))

	d, ok := r.Lookup("obra")
	require.True(t, ok)
	assert.Equal(t, "obra", d.Name)
	require.NotNil(t, d.PK)
	assert.Equal(t, "id", d.PK.Name)
	assert.True(t, d.PK.ReadOnly)

	cases := map[string]Kind{
		"nombre":       KindString,
		"presupuesto":  KindDecimal,
		"fecha_inicio": KindDate,
		"activa":       KindBool,
		"estado":       KindChoice,
		"responsable":  KindRelation,
		"tareas":       KindCollection,
		"observacion":  KindText,
	}
	for name, kind := range cases {
		f, ok := d.FieldByName(name)
		require.True(t, ok, name)
		assert.Equal(t, kind, f.Kind, name)
	}

	// скрытые поля не попадают в дескриптор
	_, ok = d.FieldByName("sin_metadatos")
	assert.False(t, ok)
	_, ok = d.FieldByName("interno")
	assert.False(t, ok)

	nombre, _ := d.FieldByName("nombre")
	assert.Equal(t, "Nombre", nombre.Label)
	assert.True(t, nombre.Required)

	estado, _ := d.FieldByName("estado")
	assert.Equal(t, "estados_obra", estado.Choices)
}

func TestRelationLinking(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(obra{}, persona{}, tareaObra{}))

	d, _ := r.Lookup("obra")
	resp, _ := d.FieldByName("responsable")
	require.NotNil(t, resp.Target)
	assert.Equal(t, "persona", resp.Target.Name)
	assert.Equal(t, "restrict", resp.OnDelete)

	tareas, _ := d.FieldByName("tareas")
	require.NotNil(t, tareas.Target)
	assert.Equal(t, "tarea_obra", tareas.Target.Name)
	assert.Equal(t, "obra", tareas.FK)

	td, _ := r.Lookup("tarea_obra")
	back, _ := td.FieldByName("obra")
	assert.Equal(t, "cascade", back.OnDelete)
}

func TestRegisterUnresolvedRelation(t *testing.T) {
	r := NewRegistry()
	err := r.Register(obra{}) // persona и tarea_obra не зарегистрированы
	require.Error(t, err)
	var cfg *ConfigurationError
	require.ErrorAs(t, err, &cfg)
}

func TestRefreshKeepsOldSetOnError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(persona{}))

	err := r.Refresh(obra{}) // невалидный набор
	require.Error(t, err)

	_, ok := r.Lookup("persona")
	assert.True(t, ok, "старый набор должен пережить неудачный Refresh")
}

func TestLookupType(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(persona{}))

	d, ok := r.LookupType(&persona{})
	require.True(t, ok)
	assert.Equal(t, "persona", d.Name)

	_, ok = r.LookupType(struct{ X int }{})
	assert.False(t, ok)
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "Ana", Display(&persona{Nombre: "Ana"}))
	assert.Equal(t, "", Display(&tareaObra{ID: "x"}), "без String — пустая метка")
	assert.Equal(t, "", Display(nil))
}

func TestCamelToSnake(t *testing.T) {
	assert.Equal(t, "tarea_obra", camelToSnake("TareaObra"))
	assert.Equal(t, "id", camelToSnake("ID"))
	assert.Equal(t, "url", camelToSnake("URL"))
	assert.Equal(t, "tipo_iva", camelToSnake("TipoIVA"))
}
