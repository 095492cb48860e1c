// Package copystrategy decides how values of a type are copied when a
// component is duplicated.
//
// Registered strategies win, then the type's own Clone method; otherwise the
// copy depth follows the kind: immutable values and references (pointers,
// interfaces, functions, channels) are shared, containers and structs are
// copied element by element.
package copystrategy

import (
	"reflect"
	"sync"
)

// Strategy copies values of one type. Copy receives and returns a value of
// that type.
type Strategy interface {
	Copy(value reflect.Value) reflect.Value
}

// Func adapts a function to the Strategy interface.
type Func func(value reflect.Value) reflect.Value

// Copy implements Strategy.
func (f Func) Copy(value reflect.Value) reflect.Value {
	return f(value)
}

// Cloner is implemented by types providing their own deep copy.
type Cloner[T any] interface {
	Clone() T
}

// Identity returns values unchanged.
var Identity Strategy = Func(func(value reflect.Value) reflect.Value { return value }) //nolint:gochecknoglobals

// Library resolves and caches strategies by type. It is safe for concurrent use.
type Library struct {
	mu         sync.RWMutex
	registered map[reflect.Type]Strategy
	cache      map[reflect.Type]Strategy
}

// New returns a library with no registered strategies.
func New() *Library {
	return &Library{
		mu:         sync.RWMutex{},
		registered: map[reflect.Type]Strategy{},
		cache:      map[reflect.Type]Strategy{},
	}
}

// Register installs s for exactly t, replacing the derived strategy. Later
// Strategy calls see s. A strategy of a type containing t that was obtained
// before the call and has already copied a value keeps the strategy it
// resolved for t then.
func (l *Library) Register(t reflect.Type, s Strategy) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.registered[t] = s
	// Derived strategies may embed the old one for t.
	clear(l.cache)
}

// Register installs fn as the strategy for T.
func Register[T any](l *Library, fn func(T) T) {
	l.Register(reflect.TypeFor[T](), Func(func(value reflect.Value) reflect.Value {
		out := reflect.New(value.Type()).Elem()
		out.Set(reflect.ValueOf(fn(value.Interface().(T)))) //nolint:forcetypeassert

		return out
	}))
}

// Copy copies v with the strategy of its dynamic type.
func (l *Library) Copy(v any) any {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)

	return interfaceOf(l.Strategy(rv.Type()).Copy(rv))
}

// Strategy returns the strategy for t.
func (l *Library) Strategy(t reflect.Type) Strategy {
	l.mu.RLock()
	s, ok := l.registered[t]
	if !ok {
		s, ok = l.cache[t]
	}
	l.mu.RUnlock()

	if ok {
		return s
	}

	s = l.derive(t)

	l.mu.Lock()
	if cached, ok := l.cache[t]; ok {
		s = cached
	} else {
		l.cache[t] = s
	}
	l.mu.Unlock()

	return s
}

// child returns a strategy resolving the one of t on first use, so recursive
// types do not recurse while deriving.
func (l *Library) child(t reflect.Type) Strategy {
	var (
		once     sync.Once
		resolved Strategy
	)

	return Func(func(value reflect.Value) reflect.Value {
		once.Do(func() { resolved = l.Strategy(t) })

		return resolved.Copy(value)
	})
}

func (l *Library) derive(t reflect.Type) Strategy {
	if s, ok := cloneMethod(t); ok {
		return s
	}

	switch t.Kind() {
	case reflect.Slice:
		return sliceStrategy{elem: l.child(t.Elem())}
	case reflect.Array:
		return arrayStrategy{elem: l.child(t.Elem())}
	case reflect.Map:
		return mapStrategy{value: l.child(t.Elem())}
	case reflect.Struct:
		return l.structStrategy(t)
	default:
		return Identity
	}
}

// cloneMethod returns a strategy calling `Clone() T` when t declares it.
func cloneMethod(t reflect.Type) (Strategy, bool) {
	method, ok := t.MethodByName("Clone")
	if !ok || method.Type.NumIn() != 1 || method.Type.NumOut() != 1 || method.Type.Out(0) != t {
		return nil, false
	}

	return Func(func(value reflect.Value) reflect.Value {
		if value.Kind() == reflect.Pointer && value.IsNil() {
			return value
		}

		return method.Func.Call([]reflect.Value{value})[0]
	}), true
}

type sliceStrategy struct {
	elem Strategy
}

func (s sliceStrategy) Copy(value reflect.Value) reflect.Value {
	if value.IsNil() {
		return value
	}

	out := reflect.MakeSlice(value.Type(), value.Len(), value.Len())
	for i := range value.Len() {
		out.Index(i).Set(s.elem.Copy(value.Index(i)))
	}

	return out
}

type arrayStrategy struct {
	elem Strategy
}

func (s arrayStrategy) Copy(value reflect.Value) reflect.Value {
	out := reflect.New(value.Type()).Elem()
	for i := range value.Len() {
		out.Index(i).Set(s.elem.Copy(value.Index(i)))
	}

	return out
}

type mapStrategy struct {
	value Strategy
}

func (s mapStrategy) Copy(value reflect.Value) reflect.Value {
	if value.IsNil() {
		return value
	}

	out := reflect.MakeMapWithSize(value.Type(), value.Len())

	iter := value.MapRange()
	for iter.Next() {
		out.SetMapIndex(iter.Key(), s.value.Copy(iter.Value()))
	}

	return out
}

type structField struct {
	index    int
	strategy Strategy
}

type structStrategy struct {
	fields []structField
}

func (l *Library) structStrategy(t reflect.Type) Strategy {
	fields := make([]structField, 0, t.NumField())

	for i := range t.NumField() {
		field := t.Field(i)
		// Unexported fields are copied with the struct value itself.
		if !field.IsExported() {
			continue
		}

		fields = append(fields, structField{index: i, strategy: l.child(field.Type)})
	}

	return structStrategy{fields: fields}
}

func (s structStrategy) Copy(value reflect.Value) reflect.Value {
	out := reflect.New(value.Type()).Elem()
	out.Set(value)

	for _, field := range s.fields {
		out.Field(field.index).Set(field.strategy.Copy(value.Field(field.index)))
	}

	return out
}

func interfaceOf(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}

	return rv.Interface()
}
