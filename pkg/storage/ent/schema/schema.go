// Package schema declares the ent schemas backing the ent storage driver and
// migrates the tables derived from them.
package schema

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	entschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	MemoriesTable    = "memories"
	CheckpointsTable = "checkpoints"
)

// Schemas lists every entity in table creation order.
var Schemas = []ent.Interface{
	Memory{},
	Checkpoint{},
}

// Tables converts Schemas into migration tables. A schema without an "id"
// field gets an auto-incrementing integer id as its primary key.
func Tables() ([]*entschema.Table, error) {
	tables := make([]*entschema.Table, 0, len(Schemas))
	for _, s := range Schemas {
		t, err := tableOf(s)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// Create runs an append-only migration of Tables against drv.
func Create(ctx context.Context, drv dialect.Driver) error {
	tables, err := Tables()
	if err != nil {
		return err
	}

	m, err := entschema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("building migration: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("running migration: %w", err)
	}
	return nil
}

func tableOf(s ent.Interface) (*entschema.Table, error) {
	t := &entschema.Table{Name: tableName(s)}
	if t.Name == "" {
		return nil, fmt.Errorf("schema %T has no table annotation", s)
	}

	byField := map[string]*entschema.Column{}
	for _, f := range s.Fields() {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, d.Name, d.Err)
		}

		col := &entschema.Column{
			Name:     d.Name,
			Type:     d.Info.Type,
			Size:     int64(d.Size),
			Unique:   d.Unique,
			Nullable: d.Optional,
		}
		if d.StorageKey != "" {
			col.Name = d.StorageKey
		}
		switch v := d.Default.(type) {
		case string, bool, int, int64, float64:
			col.Default = v
		}

		if d.Name == "id" {
			t.PrimaryKey = []*entschema.Column{col}
		}
		byField[d.Name] = col
		t.Columns = append(t.Columns, col)
	}

	if t.PrimaryKey == nil {
		id := &entschema.Column{Name: "id", Type: field.TypeInt, Increment: true}
		t.Columns = append([]*entschema.Column{id}, t.Columns...)
		t.PrimaryKey = []*entschema.Column{id}
	}

	singular := strings.TrimSuffix(t.Name, "s")
	for _, idx := range s.Indexes() {
		d := idx.Descriptor()
		ix := &entschema.Index{
			Name:   d.StorageKey,
			Unique: d.Unique,
		}
		if ix.Name == "" {
			ix.Name = singular + "_" + strings.Join(d.Fields, "_")
		}
		for _, name := range d.Fields {
			col, ok := byField[name]
			if !ok {
				return nil, fmt.Errorf("index %s references unknown field %q", ix.Name, name)
			}
			ix.Columns = append(ix.Columns, col)
		}
		t.Indexes = append(t.Indexes, ix)
	}

	return t, nil
}

func tableName(s ent.Interface) string {
	for _, a := range s.Annotations() {
		switch a := a.(type) {
		case entsql.Annotation:
			return a.Table
		case *entsql.Annotation:
			return a.Table
		}
	}
	return ""
}
