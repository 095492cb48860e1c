package metadata

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/tarantool/go-option"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tarantool/go-persist/copystrategy"
	"github.com/tarantool/go-persist/internal/options"
)

// Library holds the metadata of every registered component type, by type
// and by URI. It is safe for concurrent use.
type Library struct {
	introspector Introspector
	strategies   *copystrategy.Library
	logger       *zap.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	byType map[reflect.Type]Metadata
	byURI  map[string]Metadata
}

type libraryConfig struct {
	introspector Introspector
	strategies   *copystrategy.Library
	logger       *zap.Logger
}

// LibraryOption configures a Library.
type LibraryOption = options.OptionCallback[libraryConfig]

// WithLibraryIntrospector sets the introspector used for every registration.
func WithLibraryIntrospector(introspector Introspector) LibraryOption {
	return func(c *libraryConfig) {
		c.introspector = introspector
	}
}

// WithLibraryCopyStrategies sets the copy strategies shared by every registration.
func WithLibraryCopyStrategies(strategies *copystrategy.Library) LibraryOption {
	return func(c *libraryConfig) {
		c.strategies = strategies
	}
}

// WithLibraryLogger sets the logger.
func WithLibraryLogger(logger *zap.Logger) LibraryOption {
	return func(c *libraryConfig) {
		c.logger = logger
	}
}

// NewLibrary returns an empty Library.
func NewLibrary(opts ...LibraryOption) *Library {
	cfg := options.ApplyOptions(func() libraryConfig {
		return libraryConfig{
			introspector: NewIntrospector(),
			strategies:   copystrategy.New(),
			logger:       zap.NewNop(),
		}
	}, opts)

	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	return &Library{
		introspector: cfg.introspector,
		strategies:   cfg.strategies,
		logger:       cfg.logger,
		group:        singleflight.Group{},
		mu:           sync.RWMutex{},
		byType:       map[reflect.Type]Metadata{},
		byURI:        map[string]Metadata{},
	}
}

// CopyStrategies returns the copy strategies shared by the registrations.
func (l *Library) CopyStrategies() *copystrategy.Library {
	return l.strategies
}

// Register builds and stores the metadata of T under uri. Registering the
// same type under the same URI again returns the stored metadata; binding a
// registered type or URI differently fails with ErrAlreadyRegistered.
// Concurrent first registrations of a URI build the metadata once.
func Register[T any](lib *Library, uri string, opts ...Option) (*ComponentMetadata[T], error) {
	typ := reflect.TypeFor[T]()

	if md, ok, err := lib.existing(typ, uri); ok || err != nil {
		return cast[T](md, err)
	}

	result, err, _ := lib.group.Do(strings.ToLower(uri), func() (any, error) {
		if md, ok, err := lib.existing(typ, uri); ok || err != nil {
			return md, err
		}

		base := []Option{
			WithIntrospector(lib.introspector),
			WithCopyStrategies(lib.strategies),
			WithLogger(lib.logger),
		}

		md, err := New[T](uri, append(base, opts...)...)
		if err != nil {
			lib.logger.Warn("component registration failed", zap.String("component", uri), zap.Error(err))

			return nil, err
		}

		if err := lib.store(md); err != nil {
			return nil, err
		}

		lib.logger.Debug("component registered",
			zap.String("component", uri),
			zap.Stringer("type", typ),
			zap.Int("fields", len(md.fields)),
		)

		return Metadata(md), nil
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	md, _ := result.(Metadata)

	return cast[T](md, nil)
}

func cast[T any](md Metadata, err error) (*ComponentMetadata[T], error) {
	if err != nil {
		return nil, err
	}

	typed, ok := md.(*ComponentMetadata[T])
	if !ok {
		// The URI was taken by another type while waiting on the group.
		return nil, fmt.Errorf("%w: %s is bound to %v", ErrAlreadyRegistered, md.URI(), md.Type())
	}

	return typed, nil
}

// existing returns the metadata already registered for typ under uri.
func (l *Library) existing(typ reflect.Type, uri string) (Metadata, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	byType, typeOK := l.byType[typ]
	byURI, uriOK := l.byURI[strings.ToLower(uri)]

	switch {
	case typeOK && uriOK && byType == byURI:
		return byType, true, nil
	case typeOK:
		return nil, false, fmt.Errorf("%w: %v is registered as %s", ErrAlreadyRegistered, typ, byType.URI())
	case uriOK:
		return nil, false, fmt.Errorf("%w: %s is bound to %v", ErrAlreadyRegistered, uri, byURI.Type())
	default:
		return nil, false, nil
	}
}

func (l *Library) store(md Metadata) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := strings.ToLower(md.URI())

	if other, ok := l.byType[md.Type()]; ok {
		return fmt.Errorf("%w: %v is registered as %s", ErrAlreadyRegistered, md.Type(), other.URI())
	}

	if other, ok := l.byURI[key]; ok {
		return fmt.Errorf("%w: %s is bound to %v", ErrAlreadyRegistered, md.URI(), other.Type())
	}

	l.byType[md.Type()] = md
	l.byURI[key] = md

	return nil
}

// Registration registers one component type, see Entry.
type Registration func(lib *Library) error

// Entry returns the Registration of T under uri.
func Entry[T any](uri string, opts ...Option) Registration {
	return func(lib *Library) error {
		_, err := Register[T](lib, uri, opts...)
		return err
	}
}

// RegisterAll runs every registration. A failing registration does not stop
// the others; all errors are returned combined.
func (l *Library) RegisterAll(registrations ...Registration) error {
	var errs error

	for _, register := range registrations {
		errs = multierr.Append(errs, register(l))
	}

	return errs
}

// Lookup returns the metadata registered for t.
func (l *Library) Lookup(t reflect.Type) option.Generic[Metadata] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	md, ok := l.byType[t]
	if !ok {
		return option.None[Metadata]()
	}

	return option.Some(md)
}

// LookupURI returns the metadata registered under uri, ignoring case.
func (l *Library) LookupURI(uri string) option.Generic[Metadata] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	md, ok := l.byURI[strings.ToLower(uri)]
	if !ok {
		return option.None[Metadata]()
	}

	return option.Some(md)
}

// LookupOf returns the metadata registered for the dynamic type of component.
func (l *Library) LookupOf(component any) option.Generic[Metadata] {
	if component == nil {
		return option.None[Metadata]()
	}

	return l.Lookup(reflect.TypeOf(component))
}

// Get returns the typed metadata registered for T.
func Get[T any](lib *Library) option.Generic[*ComponentMetadata[T]] {
	md, ok := lib.Lookup(reflect.TypeFor[T]()).Get()
	if !ok {
		return option.None[*ComponentMetadata[T]]()
	}

	typed, ok := md.(*ComponentMetadata[T])
	if !ok {
		return option.None[*ComponentMetadata[T]]()
	}

	return option.Some(typed)
}

// All returns every registered metadata ordered by URI.
func (l *Library) All() []Metadata {
	l.mu.RLock()
	out := make([]Metadata, 0, len(l.byURI))

	for _, md := range l.byURI {
		out = append(out, md)
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b Metadata) int {
		return strings.Compare(strings.ToLower(a.URI()), strings.ToLower(b.URI()))
	})

	return out
}
