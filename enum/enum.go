// Package enum declares closed sets of named constants.
//
// Go has no enumerations, so an enumerated type is any comparable type whose
// constants are listed once through [Declare]. Types that embed a declared type
// as their first field, for example to override methods for a single constant,
// are treated as its subtypes: see [Supertype].
package enum

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrNoConstants is returned when a set is declared without constants.
	ErrNoConstants = errors.New("enum declares no constants")
	// ErrDuplicateName is returned when two constants share a name, ignoring case.
	ErrDuplicateName = errors.New("duplicate constant name")
	// ErrAlreadyDeclared is returned when a catalog already holds a set for the type.
	ErrAlreadyDeclared = errors.New("enum already declared")
)

// Constant is the abstract root of every enumerated type.
type Constant interface {
	fmt.Stringer
}

// RootType is the reflect.Type of Constant.
var RootType = reflect.TypeFor[Constant]() //nolint:gochecknoglobals

// Set is the declared set of constants of one type.
type Set struct {
	typ       reflect.Type
	constants []any
	names     []string
	byName    map[string]int
	byValue   map[any]int
}

// Declare builds the set of E from its constants, in ordinal order.
// Names are taken from String and must be unique ignoring case.
func Declare[E interface {
	comparable
	fmt.Stringer
}](constants ...E) (*Set, error) {
	if len(constants) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoConstants, reflect.TypeFor[E]())
	}

	set := &Set{
		typ:       reflect.TypeFor[E](),
		constants: make([]any, 0, len(constants)),
		names:     make([]string, 0, len(constants)),
		byName:    make(map[string]int, len(constants)),
		byValue:   make(map[any]int, len(constants)),
	}

	for i, c := range constants {
		name := c.String()
		key := strings.ToLower(name)

		if _, ok := set.byName[key]; ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateName, set.typ, name)
		}

		set.byName[key] = i
		set.byValue[c] = i
		set.constants = append(set.constants, c)
		set.names = append(set.names, name)
	}

	return set, nil
}

// MustDeclare is like Declare but panics on error.
func MustDeclare[E interface {
	comparable
	fmt.Stringer
}](constants ...E) *Set {
	set, err := Declare(constants...)
	if err != nil {
		panic(err)
	}

	return set
}

// Type returns the declared type.
func (s *Set) Type() reflect.Type {
	return s.typ
}

// Len returns the number of constants.
func (s *Set) Len() int {
	return len(s.constants)
}

// Names returns constant names in ordinal order.
func (s *Set) Names() []string {
	return slices.Clone(s.names)
}

// ByName looks a constant up by name, ignoring case.
func (s *Set) ByName(name string) (any, bool) {
	i, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return nil, false
	}

	return s.constants[i], true
}

// NameOf returns the name of a declared constant. Values of subtypes are
// unwrapped to the embedded constant first.
func (s *Set) NameOf(v any) (string, bool) {
	i, ok := s.Ordinal(v)
	if !ok {
		return "", false
	}

	return s.names[i], true
}

// Ordinal returns the position of a declared constant.
func (s *Set) Ordinal(v any) (int, bool) {
	if v == nil {
		return 0, false
	}

	rv, ok := Unwrap(reflect.ValueOf(v), s.typ)
	if !ok {
		return 0, false
	}

	if rv.CanInterface() {
		i, ok := s.byValue[rv.Interface()]
		return i, ok
	}

	// Reached through an unexported embedded field.
	for i, c := range s.constants {
		if rv.Equal(reflect.ValueOf(c)) {
			return i, true
		}
	}

	return 0, false
}

// Supertype returns the type t embeds as its first field, which is how
// per-constant override types refer to their enumeration.
func Supertype(t reflect.Type) (reflect.Type, bool) {
	if t == nil || t.Kind() != reflect.Struct || t.NumField() == 0 {
		return nil, false
	}

	field := t.Field(0)
	if !field.Anonymous {
		return nil, false
	}

	return field.Type, true
}

// Unwrap walks the first embedded fields of v until it reaches a value of type target.
func Unwrap(v reflect.Value, target reflect.Type) (reflect.Value, bool) {
	for v.IsValid() {
		if v.Type() == target {
			return v, true
		}

		if _, ok := Supertype(v.Type()); !ok {
			return reflect.Value{}, false
		}

		v = v.Field(0)
	}

	return reflect.Value{}, false
}

// Wrap returns a new value of type t holding constant at the end of its first
// embedded fields, so that Unwrap(Wrap(t, c), type of c) yields c. The other
// fields of t are zero. It fails if the chain does not reach the type of
// constant or passes through an unexported field.
func Wrap(t reflect.Type, constant any) (reflect.Value, bool) {
	if t == nil || constant == nil {
		return reflect.Value{}, false
	}

	cv := reflect.ValueOf(constant)
	out := reflect.New(t).Elem()

	for v := out; ; v = v.Field(0) {
		if v.Type() == cv.Type() {
			if !v.CanSet() {
				return reflect.Value{}, false
			}

			v.Set(cv)

			return out, true
		}

		if _, ok := Supertype(v.Type()); !ok {
			return reflect.Value{}, false
		}
	}
}

// Catalog holds declared sets by type. It is safe for concurrent use.
type Catalog struct {
	mu   sync.RWMutex
	sets map[reflect.Type]*Set
}

// NewCatalog returns a catalog holding sets. It panics if two sets declare the same type.
func NewCatalog(sets ...*Set) *Catalog {
	c := &Catalog{sets: make(map[reflect.Type]*Set, len(sets))}

	if err := c.Add(sets...); err != nil {
		panic(err)
	}

	return c
}

// Add registers sets. Nothing is added if any of them is already declared.
func (c *Catalog) Add(sets ...*Set) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[reflect.Type]struct{}, len(sets))

	for _, set := range sets {
		_, inBatch := seen[set.typ]
		if _, ok := c.sets[set.typ]; ok || inBatch {
			return fmt.Errorf("%w: %s", ErrAlreadyDeclared, set.typ)
		}

		seen[set.typ] = struct{}{}
	}

	for _, set := range sets {
		c.sets[set.typ] = set
	}

	return nil
}

// Lookup returns the set declared for exactly t.
func (c *Catalog) Lookup(t reflect.Type) (*Set, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set, ok := c.sets[t]

	return set, ok
}

// Resolve returns the set of t or of the closest declared supertype of t.
// Interface types, including Constant itself, never resolve.
func (c *Catalog) Resolve(t reflect.Type) (*Set, bool) {
	for t != nil && t.Kind() != reflect.Interface {
		if set, ok := c.Lookup(t); ok {
			return set, true
		}

		next, ok := Supertype(t)
		if !ok {
			return nil, false
		}

		t = next
	}

	return nil, false
}
