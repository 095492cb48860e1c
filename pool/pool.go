// Package pool is an in-memory entity store: entities are identified by
// entity.Ref and hold at most one component per registered component type.
//
// Pool implements entity.Copier, so copying a component that owns entities
// through its metadata duplicates those entities in the pool as well.
package pool

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/tarantool/go-option"
	"go.uber.org/zap"

	"github.com/tarantool/go-persist/entity"
	"github.com/tarantool/go-persist/internal/options"
	"github.com/tarantool/go-persist/metadata"
)

var (
	// ErrNullRef is returned when the null reference is used as an entity.
	ErrNullRef = errors.New("null entity reference")
	// ErrExists is returned when creating an entity whose identifier is taken.
	ErrExists = errors.New("entity already exists")
	// ErrNoEntity is returned for references to entities not in the pool.
	ErrNoEntity = errors.New("no such entity")
	// ErrUnregistered is returned for components whose type has no metadata.
	ErrUnregistered = errors.New("component type is not registered")
)

type config struct {
	logger *zap.Logger
}

// Option configures a Pool.
type Option = options.OptionCallback[config]

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

type record struct {
	components map[reflect.Type]any
}

// Pool stores entities and their components. It is safe for concurrent use.
type Pool struct {
	components *metadata.Library
	logger     *zap.Logger

	mu       sync.RWMutex
	entities map[entity.Ref]*record
}

var _ entity.Copier = (*Pool)(nil)

// New returns an empty pool accepting the components registered in components.
func New(components *metadata.Library, opts ...Option) *Pool {
	cfg := options.ApplyOptions(func() config { return config{logger: zap.NewNop()} }, opts)
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	return &Pool{
		components: components,
		logger:     cfg.logger,
		mu:         sync.RWMutex{},
		entities:   map[entity.Ref]*record{},
	}
}

// Library returns the component library of the pool.
func (p *Pool) Library() *metadata.Library {
	return p.components
}

// Create adds an entity with a fresh identifier.
func (p *Pool) Create() entity.Ref {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.create()
}

func (p *Pool) create() entity.Ref {
	for {
		ref := entity.New()
		if _, ok := p.entities[ref]; !ok {
			p.entities[ref] = &record{components: map[reflect.Type]any{}}

			return ref
		}
	}
}

// CreateWithID adds an entity identified by ref.
func (p *Pool) CreateWithID(ref entity.Ref) error {
	if ref.IsNull() {
		return ErrNullRef
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entities[ref]; ok {
		return fmt.Errorf("%w: %s", ErrExists, ref)
	}

	p.entities[ref] = &record{components: map[reflect.Type]any{}}

	return nil
}

// Exists reports whether ref is in the pool.
func (p *Pool) Exists(ref entity.Ref) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.entities[ref]

	return ok
}

// Len returns the number of entities.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.entities)
}

// Entities returns every entity reference, ordered by identifier.
func (p *Pool) Entities() []entity.Ref {
	p.mu.RLock()
	out := make([]entity.Ref, 0, len(p.entities))

	for ref := range p.entities {
		out = append(out, ref)
	}
	p.mu.RUnlock()

	slices.SortFunc(out, func(a, b entity.Ref) int {
		return strings.Compare(a.String(), b.String())
	})

	return out
}

// AddComponent stores component on the entity, replacing the component of the
// same type if any.
func (p *Pool) AddComponent(ref entity.Ref, component any) error {
	if component == nil {
		return fmt.Errorf("%w: <nil>", ErrUnregistered)
	}

	md, ok := p.components.LookupOf(component).Get()
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnregistered, component)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.entities[ref]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoEntity, ref)
	}

	rec.components[md.Type()] = component

	return nil
}

// Component returns the component of type t held by the entity.
func (p *Pool) Component(ref entity.Ref, t reflect.Type) option.Generic[any] {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.entities[ref]
	if !ok {
		return option.None[any]()
	}

	component, ok := rec.components[t]
	if !ok {
		return option.None[any]()
	}

	return option.Some(component)
}

// Get returns the component of type T held by the entity.
func Get[T any](p *Pool, ref entity.Ref) option.Generic[T] {
	component, ok := p.Component(ref, reflect.TypeFor[T]()).Get()
	if !ok {
		return option.None[T]()
	}

	typed, ok := component.(T)
	if !ok {
		return option.None[T]()
	}

	return option.Some(typed)
}

// ComponentsOf returns the components of the entity ordered by component URI.
func (p *Pool) ComponentsOf(ref entity.Ref) []any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.entities[ref]
	if !ok {
		return nil
	}

	return p.sorted(rec)
}

func (p *Pool) sorted(rec *record) []any {
	type entry struct {
		uri       string
		component any
	}

	entries := make([]entry, 0, len(rec.components))

	for t, component := range rec.components {
		uri := t.String()
		if md, ok := p.components.Lookup(t).Get(); ok {
			uri = md.URI()
		}

		entries = append(entries, entry{uri: strings.ToLower(uri), component: component})
	}

	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.uri, b.uri) })

	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.component)
	}

	return out
}

// RemoveComponent drops the component of type t from the entity. It reports
// whether there was one.
func (p *Pool) RemoveComponent(ref entity.Ref, t reflect.Type) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.entities[ref]
	if !ok {
		return false
	}

	if _, ok := rec.components[t]; !ok {
		return false
	}

	delete(rec.components, t)

	return true
}

// Destroy removes the entity and, recursively, every entity owned by its
// components. It returns the number of entities removed.
func (p *Pool) Destroy(ref entity.Ref) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	queue := []entity.Ref{ref}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		rec, ok := p.entities[current]
		if !ok {
			continue
		}

		delete(p.entities, current)
		removed++

		for t, component := range rec.components {
			if md, ok := p.components.Lookup(t).Get(); ok && md.IsReferenceOwner() {
				queue = append(queue, md.OwnedEntitiesOf(component)...)
			}
		}
	}

	p.logger.Debug("entity destroyed", zap.Stringer("entity", ref), zap.Int("removed", removed))

	return removed
}

// CopyEntity duplicates the entity with all of its components. Entities owned
// by the components are duplicated too, each once, so ownership cycles are
// preserved in the copy. The null reference is returned for unknown entities.
func (p *Pool) CopyEntity(ref entity.Ref) entity.Ref {
	p.mu.Lock()
	defer p.mu.Unlock()

	session := &copySession{pool: p, copies: map[entity.Ref]entity.Ref{}}

	return session.CopyEntity(ref)
}

// copySession runs with the pool lock held.
type copySession struct {
	pool   *Pool
	copies map[entity.Ref]entity.Ref
}

func (s *copySession) CopyEntity(ref entity.Ref) entity.Ref {
	if copied, ok := s.copies[ref]; ok {
		return copied
	}

	rec, ok := s.pool.entities[ref]
	if !ok {
		s.pool.logger.Warn("cannot copy unknown entity", zap.Stringer("entity", ref))

		return entity.Null
	}

	copied := s.pool.create()
	s.copies[ref] = copied
	target := s.pool.entities[copied]

	for t, component := range rec.components {
		md, ok := s.pool.components.Lookup(t).Get()
		if !ok {
			continue
		}

		clone, ok := md.CopyComponent(component, s).Get()
		if !ok {
			s.pool.logger.Warn("cannot copy component",
				zap.Stringer("entity", ref),
				zap.String("component", md.URI()),
			)

			continue
		}

		target.components[t] = clone
	}

	s.pool.logger.Debug("entity copied", zap.Stringer("from", ref), zap.Stringer("to", copied))

	return copied
}
