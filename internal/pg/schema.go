package pg

import (
	"fmt"
	"sort"
	"strings"

	"tablero/internal/meta"
)

type OnDeletePolicy string

const (
	OnDeleteRestrict OnDeletePolicy = "RESTRICT"
	OnDeleteSetNull  OnDeletePolicy = "SET NULL"
	OnDeleteCascade  OnDeletePolicy = "CASCADE"
)

var reserved = map[string]struct{}{
	"user": {}, "select": {}, "table": {}, "insert": {}, "update": {}, "delete": {},
	"where": {}, "join": {}, "group": {}, "order": {}, "limit": {}, "offset": {},
	"primary": {}, "foreign": {}, "key": {}, "constraint": {}, "default": {},
	"from": {}, "into": {}, "values": {}, "unique": {}, "index": {}, "create": {},
	"drop": {}, "alter": {}, "schema": {}, "grant": {}, "revoke": {},
}

func isReserved(s string) bool { _, ok := reserved[strings.ToLower(s)]; return ok }

// элементарная плюрализация (достаточно для usuarios, productos, ...)
func plural(s string) string {
	s = strings.ToLower(s)
	if strings.HasSuffix(s, "s") {
		return s
	}
	return s + "s"
}

func safeTable(entity string) string {
	t := plural(entity)
	if isReserved(t) {
		// помечаем «опасное» имя префиксом
		t = "e_" + t
	}
	return t
}

func sqlIdent(s string) string { return `"` + strings.ToLower(s) + `"` }

func columnType(f *meta.Field) (string, error) {
	switch f.Kind {
	case meta.KindString, meta.KindText:
		return "text", nil
	case meta.KindInt:
		return "bigint", nil
	case meta.KindFloat:
		return "double precision", nil
	case meta.KindDecimal:
		return "numeric(18,2)", nil
	case meta.KindBool:
		return "boolean", nil
	case meta.KindDate:
		return "date", nil
	case meta.KindDateTime:
		return "timestamp with time zone", nil
	case meta.KindChoice:
		// код справочника; enum types генерить не стали
		return "text", nil
	case meta.KindRelation:
		return "text", nil // id целевой записи
	default:
		return "", fmt.Errorf("no column type for kind %v", f.Kind)
	}
}

func deletePolicy(f *meta.Field) OnDeletePolicy {
	switch f.OnDelete {
	case "set_null":
		return OnDeleteSetNull
	case "cascade":
		return OnDeleteCascade
	default:
		return OnDeleteRestrict
	}
}

// GenerateDDL возвращает карту ключ -> SQL: сначала схема и таблицы,
// затем внешние ключи, когда все таблицы уже есть.
func GenerateDDL(reg *meta.Registry, schema string) (map[string]string, error) {
	if schema == "" {
		schema = "tablero"
	}
	schema = strings.ToLower(schema)

	descs := reg.All()
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })

	out := make(map[string]string, 2)

	var phaseA strings.Builder
	fmt.Fprintf(&phaseA, "create schema if not exists %s;\n", sqlIdent(schema))

	type fkStmt struct {
		tbl, name, col, refTbl string
		onDelete               OnDeletePolicy
	}
	var fks []fkStmt

	for _, d := range descs {
		tbl := safeTable(d.Name)

		cols := []string{`"id" text primary key`}
		for _, f := range d.DataFields() {
			typ, err := columnType(f)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", d.Name, f.Name, err)
			}
			null := "null"
			if f.Required {
				null = "not null"
			}
			cols = append(cols, fmt.Sprintf("%s %s %s", sqlIdent(f.Name), typ, null))

			if f.Kind == meta.KindRelation && f.Target != nil {
				fks = append(fks, fkStmt{
					tbl:      tbl,
					name:     strings.ToLower(d.Name + "_" + f.Name + "_fk"),
					col:      f.Name,
					refTbl:   safeTable(f.Target.Name),
					onDelete: deletePolicy(f),
				})
			}
		}

		fmt.Fprintf(&phaseA, "create table if not exists %s.%s (\n  %s\n);\n",
			sqlIdent(schema), sqlIdent(tbl), strings.Join(cols, ",\n  "))

		for _, f := range d.DataFields() {
			if f.Unique {
				fmt.Fprintf(&phaseA, "create unique index if not exists %s_%s_uq on %s.%s(%s);\n",
					strings.ToLower(d.Name), strings.ToLower(f.Name),
					sqlIdent(schema), sqlIdent(tbl), sqlIdent(f.Name))
			}
		}
	}

	out["000_schema_and_tables"] = phaseA.String()

	var phaseB strings.Builder
	for _, fk := range fks {
		fmt.Fprintf(&phaseB,
			"alter table %s.%s add constraint %s foreign key (%s) references %s.%s(id) on delete %s;\n",
			sqlIdent(schema), sqlIdent(fk.tbl),
			fk.name,
			sqlIdent(fk.col),
			sqlIdent(schema), sqlIdent(fk.refTbl),
			fk.onDelete,
		)
	}
	if phaseB.Len() > 0 {
		out["200_foreign_keys"] = phaseB.String()
	}

	return out, nil
}
