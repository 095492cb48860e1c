package metadata

import (
	"fmt"
	"reflect"

	"github.com/tarantool/go-persist/typeinfo"
)

// FieldInfo describes one persistable field found by an Introspector.
type FieldInfo struct {
	Name          string
	PersistedName string
	Index         []int
	Type          reflect.Type
	Markers       []Marker
}

// TypeInfo is the structure of a component type.
type TypeInfo struct {
	// Type is the struct type holding the fields.
	Type    reflect.Type
	Markers []Marker
	// Fields are listed in declaration order.
	Fields []FieldInfo
	// New returns a new addressable zero value of Type.
	New func() (reflect.Value, error)
}

// Introspector enumerates the structure of component types.
type Introspector interface {
	Introspect(t reflect.Type) (TypeInfo, error)
}

// IntrospectorFunc adapts a function to the Introspector interface.
type IntrospectorFunc func(t reflect.Type) (TypeInfo, error)

// Introspect implements Introspector.
func (f IntrospectorFunc) Introspect(t reflect.Type) (TypeInfo, error) {
	return f(t)
}

type reflectIntrospector struct{}

// NewIntrospector returns the reflect based introspector. It accepts structs
// and pointers to structs. Fields are the exported fields not tagged
// `persist:"-"`; markers come from struct tags and from MarkerProvider.
func NewIntrospector() Introspector {
	return reflectIntrospector{}
}

var markerProviderType = reflect.TypeFor[MarkerProvider]() //nolint:gochecknoglobals

func (reflectIntrospector) Introspect(t reflect.Type) (TypeInfo, error) {
	structType := t
	if t != nil && t.Kind() == reflect.Pointer {
		structType = t.Elem()
	}

	if structType == nil || structType.Kind() != reflect.Struct {
		return TypeInfo{}, fmt.Errorf("%w: %v is not a struct", ErrNoConstructor, t)
	}

	info := TypeInfo{
		Type:    structType,
		Markers: providedMarkers(structType),
		Fields:  nil,
		New: func() (reflect.Value, error) {
			return reflect.New(structType).Elem(), nil
		},
	}

	for _, field := range typeinfo.Fields(structType) {
		markers, err := fieldMarkers(field.StructField)
		if err != nil {
			return TypeInfo{}, err
		}

		info.Fields = append(info.Fields, FieldInfo{
			Name:          field.Name,
			PersistedName: field.PersistedName,
			Index:         field.Index,
			Type:          field.Type,
			Markers:       markers,
		})
	}

	return info, nil
}

func providedMarkers(structType reflect.Type) []Marker {
	switch {
	case structType.Implements(markerProviderType):
		return reflect.Zero(structType).Interface().(MarkerProvider).ComponentMarkers() //nolint:forcetypeassert
	case reflect.PointerTo(structType).Implements(markerProviderType):
		// Pointer receiver: call on a pointer to a fresh zero value.
		return reflect.New(structType).Interface().(MarkerProvider).ComponentMarkers() //nolint:forcetypeassert
	default:
		return nil
	}
}
