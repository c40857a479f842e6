package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	entschemaapi "entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
)

// Checkpoint holds the schema definition for the last saved state of a
// conversation. Saves replace the row.
type Checkpoint struct {
	ent.Schema
}

// Fields of the Checkpoint.
func (Checkpoint) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("conversation_id").
			MaxLen(255).
			NotEmpty().
			Immutable(),

		field.Text("summary").
			Default(""),

		// messages is the JSON encoded message list
		field.Text("messages"),

		field.Time("updated_at"),
	}
}

// Annotations of the Checkpoint.
func (Checkpoint) Annotations() []entschemaapi.Annotation {
	return []entschemaapi.Annotation{
		entsql.Annotation{Table: CheckpointsTable},
	}
}
