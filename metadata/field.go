package metadata

import (
	"reflect"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-persist/copystrategy"
	"github.com/tarantool/go-persist/entity"
)

// FieldMetadata describes one field of a component. Methods taking an
// instance expect the struct value holding the field (not a pointer to it);
// SetValue expects it addressable.
type FieldMetadata struct {
	name          string
	persistedName string
	index         []int
	typ           reflect.Type
	markers       []Marker
	replication   option.Generic[Replicate]
	owned         bool
	strategy      copystrategy.Strategy
	strategies    *copystrategy.Library
}

// Name returns the Go field name.
func (f *FieldMetadata) Name() string { return f.name }

// PersistedName returns the key the field is serialized under.
func (f *FieldMetadata) PersistedName() string { return f.persistedName }

// Index returns the index path of the field within its struct.
func (f *FieldMetadata) Index() []int { return append([]int(nil), f.index...) }

// Type returns the declared type of the field.
func (f *FieldMetadata) Type() reflect.Type { return f.typ }

// Markers returns the field level markers.
func (f *FieldMetadata) Markers() []Marker { return append([]Marker(nil), f.markers...) }

// IsReplicated reports whether the field carries a Replicate marker.
func (f *FieldMetadata) IsReplicated() bool { return f.replication.IsSome() }

// ReplicationInfo returns the Replicate marker of the field.
func (f *FieldMetadata) ReplicationInfo() option.Generic[Replicate] { return f.replication }

// IsOwnedReference reports whether the entities the field refers to are
// owned by the component.
func (f *FieldMetadata) IsOwnedReference() bool { return f.owned }

// Value returns the field of instance.
func (f *FieldMetadata) Value(instance reflect.Value) reflect.Value {
	return instance.FieldByIndex(f.index)
}

// SetValue sets the field of instance.
func (f *FieldMetadata) SetValue(instance, value reflect.Value) {
	instance.FieldByIndex(f.index).Set(value)
}

// CopyOfValue returns a copy of the field of instance made by its copy strategy.
func (f *FieldMetadata) CopyOfValue(instance reflect.Value) reflect.Value {
	return f.strategy.Copy(f.Value(instance))
}

// CopyOfValueWithOwnedEntities is CopyOfValue where, for owned reference
// fields, every entity referenced is duplicated through entities and the copy
// refers to the duplicate.
func (f *FieldMetadata) CopyOfValueWithOwnedEntities(instance reflect.Value, entities entity.Copier) reflect.Value {
	if !f.owned || entities == nil {
		return f.CopyOfValue(instance)
	}

	return entity.Rewrite(f.Value(instance), entities.CopyEntity, func(v reflect.Value) reflect.Value {
		return f.strategies.Strategy(v.Type()).Copy(v)
	})
}

// OwnedEntities returns the entities the field of instance owns. It is empty
// for fields that are not owned references.
func (f *FieldMetadata) OwnedEntities(instance reflect.Value) []entity.Ref {
	if !f.owned {
		return nil
	}

	value := f.Value(instance)
	if !value.CanInterface() {
		return nil
	}

	return entity.Collect(value.Interface())
}
