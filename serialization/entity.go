package serialization

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tarantool/go-persist/entity"
	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/pool"
)

const (
	entityIDKey         = "id"
	entityComponentsKey = "components"
)

var (
	// ErrInvalidEntity is returned for entity data without a valid layout.
	ErrInvalidEntity = errors.New("invalid entity data")
	// ErrInvalidSnapshot is returned for snapshot data that is not an array.
	ErrInvalidSnapshot = errors.New("invalid snapshot data")
)

// SerializeEntity returns the entity as {"id": ..., "components": {uri: fields}}.
// Components that fail are left out and their errors are combined.
func (s *ComponentSerializer) SerializeEntity(p *pool.Pool, ref entity.Ref) (persisted.Data, error) {
	if !p.Exists(ref) {
		return nil, fmt.Errorf("%w: %s", pool.ErrNoEntity, ref)
	}

	var errs error

	components := map[string]persisted.Data{}

	for _, component := range p.ComponentsOf(ref) {
		md, ok := s.components.LookupOf(component).Get()
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: %T", ErrUnknownComponent, component))
			continue
		}

		data, err := s.Serialize(component)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		components[md.URI()] = data
	}

	return s.serializer.ValueMap(map[string]persisted.Data{
		entityIDKey:         s.serializer.String(ref.String()),
		entityComponentsKey: s.serializer.ValueMap(components),
	}), errs
}

// DeserializeEntity creates the entity described by data in the pool, keeping
// its identifier. Components that fail are left out and their errors are
// combined; the entity is created as long as its identifier is valid.
func (s *ComponentSerializer) DeserializeEntity(p *pool.Pool, data persisted.Data) (entity.Ref, error) {
	if data == nil || !data.IsValueMap() {
		return entity.Null, fmt.Errorf("%w: not a value map", ErrInvalidEntity)
	}

	vm, _ := data.AsValueMap()

	ref, err := entityID(vm)
	if err != nil {
		return entity.Null, err
	}

	err = p.CreateWithID(ref)
	if err != nil {
		return entity.Null, err
	}

	raw, ok := vm.Get(entityComponentsKey)
	if !ok || raw.IsNull() {
		return ref, nil
	}

	components, ok := raw.AsValueMap()
	if !ok {
		return ref, fmt.Errorf("%w: components of %s are not a value map", ErrInvalidEntity, ref)
	}

	var errs error

	for _, uri := range components.Keys() {
		fields, _ := components.Get(uri)

		component, err := s.Deserialize(uri, fields)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		errs = multierr.Append(errs, p.AddComponent(ref, component))
	}

	return ref, errs
}

func entityID(vm persisted.ValueMap) (entity.Ref, error) {
	raw, ok := vm.Get(entityIDKey)
	if !ok {
		return entity.Null, fmt.Errorf("%w: missing %q", ErrInvalidEntity, entityIDKey)
	}

	id, ok := raw.AsString()
	if !ok {
		return entity.Null, fmt.Errorf("%w: %q is a %s", ErrInvalidEntity, entityIDKey, raw.Kind())
	}

	ref, err := entity.Parse(id)
	if err != nil {
		return entity.Null, fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}

	if ref.IsNull() {
		return entity.Null, fmt.Errorf("%w: %w", ErrInvalidEntity, pool.ErrNullRef)
	}

	return ref, nil
}

// SaveSnapshot serializes every entity of the pool, ordered by identifier.
func (s *ComponentSerializer) SaveSnapshot(p *pool.Pool) (persisted.Data, error) {
	var errs error

	refs := p.Entities()
	items := make([]persisted.Data, 0, len(refs))

	for _, ref := range refs {
		data, err := s.SerializeEntity(p, ref)
		errs = multierr.Append(errs, err)

		if data != nil {
			items = append(items, data)
		}
	}

	s.logger.Debug("snapshot saved", zap.Int("entities", len(items)))

	return s.serializer.Array(items), errs
}

// LoadSnapshot creates the entities of a snapshot in the pool and returns
// their references in snapshot order.
func (s *ComponentSerializer) LoadSnapshot(p *pool.Pool, data persisted.Data) ([]entity.Ref, error) {
	if data == nil || !data.IsArray() {
		return nil, fmt.Errorf("%w: not an array", ErrInvalidSnapshot)
	}

	arr, _ := data.AsArray()

	var errs error

	refs := make([]entity.Ref, 0, arr.Len())

	for i := range arr.Len() {
		ref, err := s.DeserializeEntity(p, arr.At(i))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("entity %d: %w", i, err))
		}

		if !ref.IsNull() {
			refs = append(refs, ref)
		}
	}

	s.logger.Debug("snapshot loaded", zap.Int("entities", len(refs)))

	return refs, errs
}
