package typehandler

import (
	"maps"
	"slices"
	"sync"

	"github.com/tarantool/go-option"
	"go.uber.org/zap"

	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typeinfo"
)

// Library resolves handlers by querying its factories in registration order.
// The first factory returning a handler wins, so more specific factories must
// be registered before general ones.
//
// Resolved handlers are cached. A Library is safe for concurrent use.
type Library struct {
	factories []Factory
	logger    *zap.Logger

	mu      sync.RWMutex
	cache   map[typeinfo.Descriptor]TypeHandler[any]
	missing map[typeinfo.Descriptor]struct{}
}

var _ Context = (*Library)(nil)

// Builder configures a Library. Builder values are immutable: every WithXxx
// call returns a modified copy.
type Builder struct {
	factories []Factory
	handlers  map[typeinfo.Descriptor]TypeHandler[any]
	logger    *zap.Logger
}

// NewBuilder returns an empty Builder.
func NewBuilder() Builder {
	return Builder{
		factories: nil,
		handlers:  map[typeinfo.Descriptor]TypeHandler[any]{},
		logger:    zap.NewNop(),
	}
}

func (b Builder) copy() Builder {
	handlers := maps.Clone(b.handlers)
	if handlers == nil {
		handlers = map[typeinfo.Descriptor]TypeHandler[any]{}
	}

	return Builder{
		factories: slices.Clone(b.factories),
		handlers:  handlers,
		logger:    b.logger,
	}
}

// WithFactory appends factories after the ones already registered.
func (b Builder) WithFactory(factories ...Factory) Builder {
	out := b.copy()

	out.factories = append(out.factories, factories...)

	return out
}

// WithHandler installs h for exactly desc. Installed handlers take priority
// over every factory.
func (b Builder) WithHandler(desc typeinfo.Descriptor, h TypeHandler[any]) Builder {
	out := b.copy()

	out.handlers[desc] = h

	return out
}

// WithLogger sets the logger used by the library and handed to factories.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	out := b.copy()

	if logger == nil {
		logger = zap.NewNop()
	}

	out.logger = logger

	return out
}

// Build creates the Library.
func (b Builder) Build() *Library {
	out := b.copy()

	if out.logger == nil {
		out.logger = zap.NewNop()
	}

	return &Library{
		factories: out.factories,
		logger:    out.logger,
		cache:     out.handlers,
		missing:   map[typeinfo.Descriptor]struct{}{},
	}
}

// AddHandler is a typed shortcut for Builder.WithHandler.
func AddHandler[T any](b Builder, h TypeHandler[T]) Builder {
	return b.WithHandler(typeinfo.Of[T](), Erase(h))
}

// Logger implements Context.
func (l *Library) Logger() *zap.Logger {
	return l.logger
}

// Resolve implements Context.
func (l *Library) Resolve(desc typeinfo.Descriptor) option.Generic[TypeHandler[any]] {
	if desc.IsZero() {
		return option.None[TypeHandler[any]]()
	}

	if h, known, ok := l.lookup(desc); known {
		if !ok {
			return option.None[TypeHandler[any]]()
		}

		return option.Some(h)
	}

	session := &resolution{
		lib:      l,
		pending:  map[typeinfo.Descriptor]*future{},
		resolved: map[typeinfo.Descriptor]TypeHandler[any]{},
	}

	result := session.Resolve(desc)

	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := result.Get(); ok {
		for d, resolved := range session.resolved {
			if _, exists := l.cache[d]; !exists {
				l.cache[d] = resolved
			}
		}

		// A concurrent resolution may have stored its own handler first.
		return option.Some(l.cacheOr(desc, h))
	}

	l.missing[desc] = struct{}{}
	l.logger.Warn("no type handler found", zap.Stringer("type", desc))

	return result
}

// Serialize is a convenience resolving the handler for the dynamic type of value.
// The second return value is false when no handler exists for that type.
func (l *Library) Serialize(value any, serializer persisted.Serializer) (persisted.Data, bool) {
	if value == nil {
		return serializer.Null(), true
	}

	h, ok := l.Resolve(typeinfo.TypeOf(value)).Get()
	if !ok {
		return nil, false
	}

	return h.Serialize(value, serializer), true
}

func (l *Library) lookup(desc typeinfo.Descriptor) (TypeHandler[any], bool, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if h, ok := l.cache[desc]; ok {
		return h, true, true
	}

	if _, ok := l.missing[desc]; ok {
		return nil, true, false
	}

	return nil, false, false
}

func (l *Library) cacheOr(desc typeinfo.Descriptor, h TypeHandler[any]) TypeHandler[any] {
	if cached, ok := l.cache[desc]; ok {
		return cached
	}

	return h
}

// resolution tracks one top-level Resolve call. Types that are requested
// again while their own handler is still being built get a future handler
// which delegates to the final one, so self-referencing types resolve.
type resolution struct {
	lib      *Library
	pending  map[typeinfo.Descriptor]*future
	resolved map[typeinfo.Descriptor]TypeHandler[any]
	order    []typeinfo.Descriptor
}

func (r *resolution) Logger() *zap.Logger {
	return r.lib.logger
}

func (r *resolution) Resolve(desc typeinfo.Descriptor) option.Generic[TypeHandler[any]] {
	if desc.IsZero() {
		return option.None[TypeHandler[any]]()
	}

	if h, known, ok := r.lib.lookup(desc); known {
		if !ok {
			return option.None[TypeHandler[any]]()
		}

		return option.Some(h)
	}

	if h, ok := r.resolved[desc]; ok {
		return option.Some(h)
	}

	if f, ok := r.pending[desc]; ok {
		return option.Some[TypeHandler[any]](f)
	}

	f := &future{delegate: nil}
	r.pending[desc] = f

	defer delete(r.pending, desc)

	mark := len(r.order)

	for i, factory := range r.lib.factories {
		h, ok := factory.Create(desc, r).Get()
		if !ok {
			continue
		}

		f.delegate = h
		r.resolved[desc] = h
		r.order = append(r.order, desc)

		r.lib.logger.Debug("type handler resolved",
			zap.Stringer("type", desc),
			zap.Int("factory", i),
		)

		return option.Some(h)
	}

	// Handlers built while trying desc may hold its unfinished future.
	for _, d := range r.order[mark:] {
		delete(r.resolved, d)
	}

	r.order = r.order[:mark]

	return option.None[TypeHandler[any]]()
}

type future struct {
	delegate TypeHandler[any]
}

func (f *future) Serialize(value any, serializer persisted.Serializer) persisted.Data {
	if f.delegate == nil {
		return serializer.Null()
	}

	return f.delegate.Serialize(value, serializer)
}

func (f *future) Deserialize(data persisted.Data) option.Generic[any] {
	if f.delegate == nil {
		return option.None[any]()
	}

	return f.delegate.Deserialize(data)
}
