package entity

import (
	"reflect"
	"sync"
)

var containsCache sync.Map //nolint:gochecknoglobals

// Contains reports whether values of t can hold a Ref, directly or inside
// pointers, slices, arrays, maps and exported struct fields. Interface types
// report false: their content is not known from the type.
func Contains(t reflect.Type) bool {
	if t == nil {
		return false
	}

	if v, ok := containsCache.Load(t); ok {
		return v.(bool) //nolint:forcetypeassert
	}

	out := contains(t, map[reflect.Type]bool{})
	containsCache.Store(t, out)

	return out
}

func contains(t reflect.Type, seen map[reflect.Type]bool) bool {
	if t == nil {
		return false
	}

	if t == RefType {
		return true
	}

	if v, ok := seen[t]; ok {
		return v
	}

	// Cycles are resolved by the other branches of the type.
	seen[t] = false

	var out bool

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		out = contains(t.Elem(), seen)
	case reflect.Map:
		out = contains(t.Key(), seen) || contains(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			field := t.Field(i)
			if field.IsExported() && contains(field.Type, seen) {
				out = true
				break
			}
		}
	default:
	}

	seen[t] = out

	return out
}

// Collect returns every non null Ref held by v, in traversal order.
// Pointers are followed once each.
func Collect(v any) []Ref {
	if v == nil {
		return nil
	}

	var out []Ref

	collect(reflect.ValueOf(v), map[uintptr]struct{}{}, &out)

	return out
}

func collect(v reflect.Value, visited map[uintptr]struct{}, out *[]Ref) {
	if !v.IsValid() || !Contains(v.Type()) {
		return
	}

	if v.Type() == RefType {
		if ref := v.Interface().(Ref); !ref.IsNull() { //nolint:forcetypeassert
			*out = append(*out, ref)
		}

		return
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return
		}

		if _, ok := visited[v.Pointer()]; ok {
			return
		}

		visited[v.Pointer()] = struct{}{}

		collect(v.Elem(), visited, out)
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			collect(v.Index(i), visited, out)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			collect(iter.Key(), visited, out)
			collect(iter.Value(), visited, out)
		}
	case reflect.Struct:
		for i := range v.NumField() {
			if v.Type().Field(i).IsExported() {
				collect(v.Field(i), visited, out)
			}
		}
	default:
	}
}

// Rewrite returns a copy of v with every Ref replaced by fn(ref). Containers
// on the way to a Ref are copied, a pointer reached twice is copied once;
// values whose type cannot hold a Ref are handed to other, which decides how
// they are copied.
func Rewrite(v reflect.Value, fn func(Ref) Ref, other func(reflect.Value) reflect.Value) reflect.Value {
	r := rewriter{fn: fn, other: other, pointers: map[uintptr]reflect.Value{}}

	return r.rewrite(v)
}

type rewriter struct {
	fn       func(Ref) Ref
	other    func(reflect.Value) reflect.Value
	pointers map[uintptr]reflect.Value
}

func (r rewriter) rewrite(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	t := v.Type()

	if !Contains(t) {
		return r.other(v)
	}

	if t == RefType {
		ref := v.Interface().(Ref) //nolint:forcetypeassert
		if ref.IsNull() {
			return v
		}

		return reflect.ValueOf(r.fn(ref))
	}

	switch t.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}

		if done, ok := r.pointers[v.Pointer()]; ok {
			return done
		}

		out := reflect.New(t.Elem())
		r.pointers[v.Pointer()] = out
		out.Elem().Set(r.rewrite(v.Elem()))

		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}

		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(r.rewrite(v.Index(i)))
		}

		return out
	case reflect.Array:
		out := reflect.New(t).Elem()
		for i := range v.Len() {
			out.Index(i).Set(r.rewrite(v.Index(i)))
		}

		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}

		out := reflect.MakeMapWithSize(t, v.Len())

		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(r.rewrite(iter.Key()), r.rewrite(iter.Value()))
		}

		return out
	case reflect.Struct:
		out := reflect.New(t).Elem()
		out.Set(v)

		for i := range t.NumField() {
			if t.Field(i).IsExported() {
				out.Field(i).Set(r.rewrite(v.Field(i)))
			}
		}

		return out
	default:
		return r.other(v)
	}
}
