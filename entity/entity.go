// Package entity defines references to entities and the walkers finding them
// inside component values.
package entity

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// Ref identifies an entity. The zero Ref is Null.
type Ref struct {
	id uuid.UUID
}

// Null refers to no entity.
var Null = Ref{} //nolint:gochecknoglobals

// RefType is the reflect.Type of Ref.
var RefType = reflect.TypeFor[Ref]() //nolint:gochecknoglobals

// New returns a reference to a fresh random identifier.
func New() Ref {
	return Ref{id: uuid.New()}
}

// NewRef wraps an existing identifier.
func NewRef(id uuid.UUID) Ref {
	return Ref{id: id}
}

// Parse reads a reference from its string form.
func Parse(s string) (Ref, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Null, fmt.Errorf("invalid entity ref %q: %w", s, err)
	}

	return Ref{id: id}, nil
}

// ID returns the referenced identifier.
func (r Ref) ID() uuid.UUID {
	return r.id
}

// IsNull reports whether r refers to no entity.
func (r Ref) IsNull() bool {
	return r.id == uuid.Nil
}

// String returns the identifier in its canonical form.
func (r Ref) String() string {
	return r.id.String()
}

// Copier duplicates an entity together with its components and returns a
// reference to the duplicate.
type Copier interface {
	CopyEntity(ref Ref) Ref
}

// CopierFunc adapts a function to the Copier interface.
type CopierFunc func(ref Ref) Ref

// CopyEntity implements Copier.
func (f CopierFunc) CopyEntity(ref Ref) Ref {
	return f(ref)
}
