package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	entschemaapi "entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Memory holds the schema definition for a long-term record extracted from
// a conversation. Records are keyed by (kind, user_id, key).
type Memory struct {
	ent.Schema
}

// Fields of the Memory.
func (Memory) Fields() []ent.Field {
	return []ent.Field{
		// kind is the memory kind: profile, instructions or projects
		field.String("kind").
			MaxLen(64).
			NotEmpty(),

		field.String("user_id").
			MaxLen(255),

		// key is fixed for the profile and a fresh id for other kinds
		field.String("key").
			MaxLen(255).
			NotEmpty(),

		// value is the record JSON
		field.Text("value"),

		field.Time("created_at").
			Default(time.Now).
			Immutable(),

		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the Memory.
func (Memory) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("kind", "user_id", "key").
			Unique(),

		// Search lists a namespace oldest first
		index.Fields("kind", "user_id", "created_at"),
	}
}

// Annotations of the Memory.
func (Memory) Annotations() []entschemaapi.Annotation {
	return []entschemaapi.Annotation{
		entsql.Annotation{Table: MemoriesTable},
	}
}
