// Package serialization turns registered components into persisted value maps
// and back, using the component metadata for the field layout and a type
// handler library for the field values.
package serialization

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/tarantool/go-persist/codec"
	"github.com/tarantool/go-persist/entity"
	"github.com/tarantool/go-persist/enum"
	"github.com/tarantool/go-persist/hasher"
	"github.com/tarantool/go-persist/internal/options"
	"github.com/tarantool/go-persist/metadata"
	"github.com/tarantool/go-persist/persisted"
	"github.com/tarantool/go-persist/typehandler"
	"github.com/tarantool/go-persist/typehandler/coretypes/factories"
	"github.com/tarantool/go-persist/typeinfo"
)

var (
	// ErrUnknownComponent is returned for components or URIs without metadata.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrNilComponent is returned when serializing a nil pointer component.
	ErrNilComponent = errors.New("nil component")
	// ErrNotValueMap is returned when a component is read from non-map data.
	ErrNotValueMap = errors.New("persisted data is not a value map")
)

// DefaultHandlers returns a handler library knowing entity references, the
// enums of catalog and the built-in core types.
func DefaultHandlers(catalog *enum.Catalog, logger *zap.Logger) *typehandler.Library {
	return typehandler.NewBuilder().
		WithLogger(logger).
		WithFactory(entity.RefFactory()).
		WithFactory(factories.Default(catalog)...).
		Build()
}

type config struct {
	logger     *zap.Logger
	serializer persisted.Serializer
	hasher     hasher.Hasher
}

// Option configures a ComponentSerializer.
type Option = options.OptionCallback[config]

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithHasher sets the hasher computing Digest. SHA-256 is used by default.
func WithHasher(h hasher.Hasher) Option {
	return func(c *config) {
		c.hasher = h
	}
}

// WithSerializer sets the serializer building the persisted values.
func WithSerializer(serializer persisted.Serializer) Option {
	return func(c *config) {
		c.serializer = serializer
	}
}

// ComponentSerializer converts components registered in a metadata library.
// It is safe for concurrent use.
type ComponentSerializer struct {
	components  *metadata.Library
	handlers    *typehandler.Library
	serializer  persisted.Serializer
	logger      *zap.Logger
	canonical   codec.Codec
	fingerprint hasher.Hasher
	digest      hasher.Hasher
}

// NewComponentSerializer creates a serializer for the components of the
// library, converting field values with handlers.
func NewComponentSerializer(
	components *metadata.Library,
	handlers *typehandler.Library,
	opts ...Option,
) *ComponentSerializer {
	cfg := options.ApplyOptions(func() config {
		return config{
			logger:     zap.NewNop(),
			serializer: persisted.NewSerializer(),
			hasher:     hasher.NewSHA256Hasher(),
		}
	}, opts)

	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	if cfg.hasher == nil {
		cfg.hasher = hasher.NewSHA256Hasher()
	}

	return &ComponentSerializer{
		components:  components,
		handlers:    handlers,
		serializer:  cfg.serializer,
		logger:      cfg.logger,
		canonical:   codec.NewMsgpack(),
		fingerprint: hasher.NewXXHash64(),
		digest:      cfg.hasher,
	}
}

// Components returns the component library.
func (s *ComponentSerializer) Components() *metadata.Library {
	return s.components
}

func (s *ComponentSerializer) fieldHandler(
	md metadata.Metadata,
	field *metadata.FieldMetadata,
) (typehandler.TypeHandler[any], bool) {
	h, ok := s.handlers.Resolve(typeinfo.FromType(field.Type())).Get()
	if !ok {
		s.logger.Warn("no type handler for field, skipping",
			zap.String("component", md.URI()),
			zap.String("field", field.Name()),
			zap.Stringer("fieldType", field.Type()),
		)
	}

	return h, ok
}

// Serialize returns the value map of the persisted fields of component, keyed
// by their persisted names. Nil fields and fields without a handler are left
// out.
func (s *ComponentSerializer) Serialize(component any) (persisted.Data, error) {
	md, ok := s.components.LookupOf(component).Get()
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownComponent, component)
	}

	instance, ok := md.StructValue(component)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNilComponent, md.URI())
	}

	pairs := make(map[string]persisted.Data, len(md.Fields()))

	for _, field := range md.Fields() {
		value := field.Value(instance)
		if isNilValue(value) {
			continue
		}

		h, ok := s.fieldHandler(md, field)
		if !ok {
			continue
		}

		pairs[field.PersistedName()] = h.Serialize(value.Interface(), s.serializer)
	}

	return s.serializer.ValueMap(pairs), nil
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return !v.IsValid()
	}
}

// Deserialize builds the component registered under uri from data. Fields that
// are missing, cannot be read, or are read as a value not assignable to the
// field keep their zero value.
func (s *ComponentSerializer) Deserialize(uri string, data persisted.Data) (any, error) {
	md, ok := s.components.LookupURI(uri).Get()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, uri)
	}

	if data == nil || !data.IsValueMap() {
		return nil, fmt.Errorf("%w: %s", ErrNotValueMap, uri)
	}

	vm, _ := data.AsValueMap()

	instance, err := md.NewStruct()
	if err != nil {
		return nil, err
	}

	for _, field := range md.Fields() {
		raw, ok := vm.Get(field.PersistedName())
		if !ok {
			continue
		}

		h, ok := s.fieldHandler(md, field)
		if !ok {
			continue
		}

		value, ok := h.Deserialize(raw).Get()
		if !ok {
			s.logger.Warn("cannot deserialize field, skipping",
				zap.String("component", md.URI()),
				zap.String("field", field.Name()),
				zap.Stringer("kind", raw.Kind()),
			)

			continue
		}

		rv, ok := assignable(value, field.Type())
		if !ok {
			s.logger.Warn("cannot deserialize field, skipping",
				zap.String("component", md.URI()),
				zap.String("field", field.Name()),
				zap.String("valueType", fmt.Sprintf("%T", value)),
			)

			continue
		}

		field.SetValue(instance, rv)
	}

	return md.FromStruct(instance), nil
}

func assignable(value any, t reflect.Type) (reflect.Value, bool) {
	rv := reflect.ValueOf(value)

	switch {
	case !rv.IsValid():
		return reflect.Zero(t), true
	case rv.Type().AssignableTo(t):
		return rv, true
	default:
		return reflect.Value{}, false
	}
}

// Fingerprint hashes the canonical MessagePack encoding of component with
// xxHash. Equal components have equal fingerprints.
func (s *ComponentSerializer) Fingerprint(component any) (uint64, error) {
	sum, err := s.hash(component, s.fingerprint)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint64(sum), nil
}

// Digest hashes the canonical MessagePack encoding of component with the
// configured hasher.
func (s *ComponentSerializer) Digest(component any) ([]byte, error) {
	return s.hash(component, s.digest)
}

func (s *ComponentSerializer) hash(component any, h hasher.Hasher) ([]byte, error) {
	data, err := s.Serialize(component)
	if err != nil {
		return nil, err
	}

	encoded, err := s.canonical.Encode(data)
	if err != nil {
		return nil, err
	}

	sum, err := h.Hash(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", h.Name(), err)
	}

	return sum, nil
}
