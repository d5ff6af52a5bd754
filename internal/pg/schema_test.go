package pg

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablero/internal/meta"
)

type rubro struct {
	ID     string
	Nombre string `admin:"required,unique"`
}

type comprobante struct {
	ID      string
	Numero  string    `admin:"required"`
	Fecha   time.Time `admin:"kind:date"`
	Importe decimal.Decimal
	Pagado  bool
	Rubro   *rubro `admin:"on_delete:set_null"`
}

func testRegistry(t *testing.T) *meta.Registry {
	t.Helper()
	reg := meta.NewRegistry()
	require.NoError(t, reg.Register(rubro{}, comprobante{}))
	return reg
}

func TestGenerateDDLTables(t *testing.T) {
	ddl, err := GenerateDDL(testRegistry(t), "contable")
	require.NoError(t, err)

	tables := ddl["000_schema_and_tables"]
	require.NotEmpty(t, tables)

	assert.Contains(t, tables, `create schema if not exists "contable";`)
	assert.Contains(t, tables, `create table if not exists "contable"."rubros"`)
	assert.Contains(t, tables, `create table if not exists "contable"."comprobantes"`)
	assert.Contains(t, tables, `"id" text primary key`)
	assert.Contains(t, tables, `"numero" text not null`)
	assert.Contains(t, tables, `"fecha" date null`)
	assert.Contains(t, tables, `"importe" numeric(18,2) null`)
	assert.Contains(t, tables, `"pagado" boolean null`)
	assert.Contains(t, tables, `"rubro" text null`)
	assert.Contains(t, tables, `create unique index if not exists rubro_nombre_uq`)
}

func TestGenerateDDLForeignKeys(t *testing.T) {
	ddl, err := GenerateDDL(testRegistry(t), "contable")
	require.NoError(t, err)

	fks := ddl["200_foreign_keys"]
	require.NotEmpty(t, fks)
	assert.Contains(t, fks, `alter table "contable"."comprobantes" add constraint comprobante_rubro_fk`)
	assert.Contains(t, fks, `references "contable"."rubros"(id) on delete SET NULL;`)
}

func TestSafeTable(t *testing.T) {
	assert.Equal(t, "productos", safeTable("producto"))
	assert.Equal(t, "rubros", safeTable("rubros"), "уже множественное")
	assert.Equal(t, "e_values", safeTable("value"), "зарезервированное слово")
}
