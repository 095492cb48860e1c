package typeinfo

import (
	"reflect"
	"strings"
)

// TagKey is the struct tag controlling persisted field names.
// `persist:"name"` renames a field, `persist:"-"` excludes it.
const TagKey = "persist"

// Field is a persistable struct field.
type Field struct {
	reflect.StructField

	// PersistedName is the key the field is stored under.
	PersistedName string
}

// Fields returns the exported, non excluded fields of a struct type in
// declaration order. Nil is returned for non struct types.
func Fields(t reflect.Type) []Field {
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	out := make([]Field, 0, t.NumField())

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name

		if tag, ok := field.Tag.Lookup(TagKey); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			tagName = strings.TrimSpace(tagName)

			switch tagName {
			case "-":
				continue
			case "":
			default:
				name = tagName
			}
		}

		out = append(out, Field{StructField: field, PersistedName: name})
	}

	return out
}
