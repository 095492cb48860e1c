package metadata

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/tarantool/go-option"
	"go.uber.org/zap"

	"github.com/tarantool/go-persist/copystrategy"
	"github.com/tarantool/go-persist/entity"
	"github.com/tarantool/go-persist/internal/options"
)

// Metadata is the type independent view of a ComponentMetadata.
type Metadata interface {
	URI() string
	ID() uint64
	// Type is the component type, a struct or a pointer to a struct.
	Type() reflect.Type
	Fields() []*FieldMetadata
	Field(name string) option.Generic[*FieldMetadata]
	Markers() []Marker
	Annotation(markerType reflect.Type) option.Generic[Marker]

	IsReferenceOwner() bool
	IsReplicated() bool
	IsReplicatedFromOwner() bool
	IsForceBlockActive() bool
	IsRetainUnalteredOnBlockChange() bool
	IsBlockLifecycleEventsRequired() bool

	// StructValue returns the struct holding the fields of component.
	StructValue(component any) (reflect.Value, bool)
	// NewStruct returns a new addressable struct and FromStruct turns such a
	// struct into a component.
	NewStruct() (reflect.Value, error)
	FromStruct(v reflect.Value) any
	// CopyComponent copies component, duplicating owned entities through
	// entities when it is not nil.
	CopyComponent(component any, entities entity.Copier) option.Generic[any]
	OwnedEntitiesOf(component any) []entity.Ref
}

type config struct {
	introspector Introspector
	strategies   *copystrategy.Library
	logger       *zap.Logger
	markers      []Marker
	fieldMarkers map[string][]Marker
}

func defaultConfig() config {
	return config{
		introspector: NewIntrospector(),
		strategies:   copystrategy.New(),
		logger:       zap.NewNop(),
		markers:      nil,
		fieldMarkers: map[string][]Marker{},
	}
}

// Option configures metadata construction.
type Option = options.OptionCallback[config]

// WithIntrospector sets the introspector enumerating fields and markers.
func WithIntrospector(introspector Introspector) Option {
	return func(c *config) {
		c.introspector = introspector
	}
}

// WithCopyStrategies sets the copy strategies of the fields.
func WithCopyStrategies(strategies *copystrategy.Library) Option {
	return func(c *config) {
		c.strategies = strategies
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMarkers adds type level markers.
func WithMarkers(markers ...Marker) Option {
	return func(c *config) {
		c.markers = append(c.markers, markers...)
	}
}

// WithFieldMarkers adds markers to the persisted field with the given Go name.
// New fails with ErrInvalidMarker if T has no such field.
func WithFieldMarkers(field string, markers ...Marker) Option {
	return func(c *config) {
		c.fieldMarkers[field] = append(c.fieldMarkers[field], markers...)
	}
}

// ComponentMetadata describes a component type T, which is a struct or a
// pointer to a struct. It is immutable and safe for concurrent use.
//
// Only the persistable fields are copied: unexported fields and fields tagged
// `persist:"-"` are zero in copies.
type ComponentMetadata[T any] struct {
	uri     string
	id      uint64
	typ     reflect.Type
	info    TypeInfo
	pointer bool
	fields  []*FieldMetadata
	byName  map[string]*FieldMetadata
	markers []Marker
	logger  *zap.Logger

	replicated                   bool
	replicatedFromOwner          bool
	referenceOwner               bool
	forceBlockActive             bool
	retainUnalteredOnBlockChange bool
	blockLifecycleEventsRequired bool
}

var _ Metadata = (*ComponentMetadata[struct{}])(nil)

// New builds the metadata of T identified by uri.
func New[T any](uri string, opts ...Option) (*ComponentMetadata[T], error) {
	typ := reflect.TypeFor[T]()

	cfg := options.ApplyOptions(defaultConfig, opts)
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	if cfg.strategies == nil {
		cfg.strategies = copystrategy.New()
	}

	if err := validateURI(uri); err != nil {
		return nil, errConstruction(typ, err)
	}

	info, err := cfg.introspector.Introspect(typ)
	if err != nil {
		return nil, errConstruction(typ, err)
	}

	if err := checkFieldMarkers(info, cfg.fieldMarkers); err != nil {
		return nil, errConstruction(typ, err)
	}

	md := &ComponentMetadata[T]{
		uri:     uri,
		id:      xxhash.Sum64String(strings.ToLower(uri)),
		typ:     typ,
		info:    info,
		pointer: typ.Kind() == reflect.Pointer,
		fields:  make([]*FieldMetadata, 0, len(info.Fields)),
		byName:  make(map[string]*FieldMetadata, len(info.Fields)),
		markers: append(append([]Marker(nil), info.Markers...), cfg.markers...),
		logger:  cfg.logger,
	}

	for _, fieldInfo := range info.Fields {
		field := md.buildField(fieldInfo, cfg)

		md.fields = append(md.fields, field)
		md.byName[strings.ToLower(field.name)] = field
	}

	if _, ok := findMarker[Replicate](md.markers); ok {
		md.replicated = true
	}

	if force, ok := findMarker[ForceBlockActive](md.markers); ok {
		md.forceBlockActive = true
		md.retainUnalteredOnBlockChange = force.RetainUnalteredOnBlockChange
	}

	_, md.blockLifecycleEventsRequired = findMarker[RequiresBlockLifecycleEvents](md.markers)

	for _, field := range md.fields {
		if replicate, ok := field.replication.Get(); ok {
			md.replicated = true

			if replicate.Type.IsReplicateFromOwner() {
				md.replicatedFromOwner = true
			}
		}

		if field.owned {
			md.referenceOwner = true
		}
	}

	return md, nil
}

func checkFieldMarkers(info TypeInfo, fieldMarkers map[string][]Marker) error {
	known := make(map[string]struct{}, len(info.Fields))
	for _, field := range info.Fields {
		known[field.Name] = struct{}{}
	}

	unknown := make([]string, 0)

	for name := range fieldMarkers {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) == 0 {
		return nil
	}

	slices.Sort(unknown)

	return fmt.Errorf("%w: no persisted field %s", ErrInvalidMarker, strings.Join(unknown, ", "))
}

func validateURI(uri string) error {
	module, name, ok := strings.Cut(uri, ":")
	if !ok || module == "" || name == "" || strings.Contains(name, ":") {
		return fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	return nil
}

func (m *ComponentMetadata[T]) buildField(info FieldInfo, cfg config) *FieldMetadata {
	markers := append(append([]Marker(nil), info.Markers...), cfg.fieldMarkers[info.Name]...)

	field := &FieldMetadata{
		name:          info.Name,
		persistedName: info.PersistedName,
		index:         info.Index,
		typ:           info.Type,
		markers:       markers,
		replication:   option.None[Replicate](),
		owned:         false,
		strategy:      cfg.strategies.Strategy(info.Type),
		strategies:    cfg.strategies,
	}

	if replicate, ok := findMarker[Replicate](markers); ok {
		field.replication = option.Some(replicate)
	}

	if _, ok := findMarker[OwnedReference](markers); ok {
		if entity.Contains(info.Type) {
			field.owned = true
		} else {
			m.logger.Warn("field marked as owned reference holds no entity references",
				zap.String("component", m.uri),
				zap.String("field", info.Name),
				zap.Stringer("type", info.Type),
			)
		}
	}

	return field
}

// URI returns the identifier of the component, "module:name".
func (m *ComponentMetadata[T]) URI() string { return m.uri }

// ID returns a 64-bit hash of the URI, ignoring case.
func (m *ComponentMetadata[T]) ID() uint64 { return m.id }

// Type returns the reflect.Type of T.
func (m *ComponentMetadata[T]) Type() reflect.Type { return m.typ }

// Fields returns the field metadata in declaration order.
func (m *ComponentMetadata[T]) Fields() []*FieldMetadata {
	return append([]*FieldMetadata(nil), m.fields...)
}

// Field looks a field up by Go name, ignoring case.
func (m *ComponentMetadata[T]) Field(name string) option.Generic[*FieldMetadata] {
	field, ok := m.byName[strings.ToLower(name)]
	if !ok {
		return option.None[*FieldMetadata]()
	}

	return option.Some(field)
}

// Markers returns the type level markers.
func (m *ComponentMetadata[T]) Markers() []Marker {
	return append([]Marker(nil), m.markers...)
}

// Annotation returns the type level marker of type markerType. None is
// returned when there is no such marker or more than one.
func (m *ComponentMetadata[T]) Annotation(markerType reflect.Type) option.Generic[Marker] {
	var (
		found Marker
		count int
	)

	for _, marker := range m.markers {
		if reflect.TypeOf(marker) == markerType {
			found = marker
			count++
		}
	}

	if count != 1 {
		return option.None[Marker]()
	}

	return option.Some(found)
}

// Annotation is the typed form of Metadata.Annotation.
func Annotation[M Marker](md Metadata) option.Generic[M] {
	marker, ok := md.Annotation(reflect.TypeFor[M]()).Get()
	if !ok {
		return option.None[M]()
	}

	typed, ok := marker.(M)
	if !ok {
		return option.None[M]()
	}

	return option.Some(typed)
}

// IsReferenceOwner reports whether the component owns any entity references.
func (m *ComponentMetadata[T]) IsReferenceOwner() bool { return m.referenceOwner }

// IsReplicated reports whether the component or any of its fields is replicated.
func (m *ComponentMetadata[T]) IsReplicated() bool { return m.replicated }

// IsReplicatedFromOwner reports whether any field replicates from the owner.
func (m *ComponentMetadata[T]) IsReplicatedFromOwner() bool { return m.replicatedFromOwner }

// IsForceBlockActive reports whether the component forces blocks to be active.
func (m *ComponentMetadata[T]) IsForceBlockActive() bool { return m.forceBlockActive }

// IsRetainUnalteredOnBlockChange reports whether the component survives block changes.
func (m *ComponentMetadata[T]) IsRetainUnalteredOnBlockChange() bool {
	return m.retainUnalteredOnBlockChange
}

// IsBlockLifecycleEventsRequired reports whether blocks carrying the component
// receive lifecycle events.
func (m *ComponentMetadata[T]) IsBlockLifecycleEventsRequired() bool {
	return m.blockLifecycleEventsRequired
}

// NewStruct implements Metadata.
func (m *ComponentMetadata[T]) NewStruct() (reflect.Value, error) {
	v, err := m.info.New()
	if err != nil {
		return reflect.Value{}, errConstruction(m.typ, err)
	}

	return v, nil
}

// FromStruct implements Metadata.
func (m *ComponentMetadata[T]) FromStruct(v reflect.Value) any {
	return m.fromStruct(v)
}

func (m *ComponentMetadata[T]) fromStruct(v reflect.Value) T {
	if m.pointer {
		return v.Addr().Interface().(T) //nolint:forcetypeassert
	}

	return v.Interface().(T) //nolint:forcetypeassert
}

// StructValue implements Metadata.
func (m *ComponentMetadata[T]) StructValue(component any) (reflect.Value, bool) {
	typed, ok := component.(T)
	if !ok {
		return reflect.Value{}, false
	}

	return m.structOf(typed)
}

func (m *ComponentMetadata[T]) structOf(instance T) (reflect.Value, bool) {
	rv := reflect.ValueOf(instance)
	if !rv.IsValid() {
		return reflect.Value{}, false
	}

	if m.pointer {
		if rv.IsNil() {
			return reflect.Value{}, false
		}

		rv = rv.Elem()
	}

	return rv, true
}

// NewInstance returns a fresh instance of T with zero fields.
func (m *ComponentMetadata[T]) NewInstance() option.Generic[T] {
	v, err := m.NewStruct()
	if err != nil {
		m.logger.Warn("cannot construct component", zap.String("component", m.uri), zap.Error(err))

		return option.None[T]()
	}

	return option.Some(m.fromStruct(v))
}

// Copy returns a copy of instance made field by field with the copy strategies.
// Owned entities are shared with instance.
func (m *ComponentMetadata[T]) Copy(instance T) option.Generic[T] {
	return m.copyWith(instance, func(field *FieldMetadata, src reflect.Value) reflect.Value {
		return field.CopyOfValue(src)
	})
}

// CopyWithOwnedEntities returns a copy of instance in which every owned
// entity reference refers to a duplicate of the entity made by entities.
// None is returned if a fresh instance cannot be constructed.
func (m *ComponentMetadata[T]) CopyWithOwnedEntities(instance T, entities entity.Copier) option.Generic[T] {
	return m.copyWith(instance, func(field *FieldMetadata, src reflect.Value) reflect.Value {
		return field.CopyOfValueWithOwnedEntities(src, entities)
	})
}

// CopyWithOwnedEntitiesRaw is CopyWithOwnedEntities for callers not knowing
// T. None is returned when object is not a T.
func (m *ComponentMetadata[T]) CopyWithOwnedEntitiesRaw(object any, entities entity.Copier) option.Generic[T] {
	typed, ok := object.(T)
	if !ok {
		return option.None[T]()
	}

	return m.CopyWithOwnedEntities(typed, entities)
}

// CopyComponent implements Metadata.
func (m *ComponentMetadata[T]) CopyComponent(component any, entities entity.Copier) option.Generic[any] {
	out, ok := m.CopyWithOwnedEntitiesRaw(component, entities).Get()
	if !ok {
		return option.None[any]()
	}

	return option.Some[any](out)
}

// OwnedEntities returns the entities owned by instance.
func (m *ComponentMetadata[T]) OwnedEntities(instance T) []entity.Ref {
	src, ok := m.structOf(instance)
	if !ok {
		return nil
	}

	var out []entity.Ref

	for _, field := range m.fields {
		out = append(out, field.OwnedEntities(src)...)
	}

	return out
}

// OwnedEntitiesOf implements Metadata.
func (m *ComponentMetadata[T]) OwnedEntitiesOf(component any) []entity.Ref {
	typed, ok := component.(T)
	if !ok {
		return nil
	}

	return m.OwnedEntities(typed)
}

func (m *ComponentMetadata[T]) copyWith(
	instance T,
	copyField func(field *FieldMetadata, src reflect.Value) reflect.Value,
) option.Generic[T] {
	src, ok := m.structOf(instance)
	if !ok {
		return option.None[T]()
	}

	dst, err := m.NewStruct()
	if err != nil {
		m.logger.Warn("cannot construct component copy", zap.String("component", m.uri), zap.Error(err))

		return option.None[T]()
	}

	for _, field := range m.fields {
		field.SetValue(dst, copyField(field, src))
	}

	return option.Some(m.fromStruct(dst))
}
