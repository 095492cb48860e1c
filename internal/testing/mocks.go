package testing

import (
	"reflect"

	"github.com/stretchr/testify/mock"
	"github.com/tarantool/go-option"
	"go.uber.org/zap"

	"github.com/tarantool/go-persist/entity"
	"github.com/tarantool/go-persist/metadata"
	"github.com/tarantool/go-persist/typehandler"
	"github.com/tarantool/go-persist/typeinfo"
)

// MockCopier is a mock of entity.Copier.
type MockCopier struct{ mock.Mock }

var _ entity.Copier = (*MockCopier)(nil)

// CopyEntity implements entity.Copier.
func (m *MockCopier) CopyEntity(ref entity.Ref) entity.Ref {
	args := m.Called(ref)
	return args.Get(0).(entity.Ref) //nolint:forcetypeassert
}

// MockFactory is a mock of typehandler.Factory.
type MockFactory struct{ mock.Mock }

var _ typehandler.Factory = (*MockFactory)(nil)

// Create implements typehandler.Factory.
func (m *MockFactory) Create(
	desc typeinfo.Descriptor,
	ctx typehandler.Context,
) option.Generic[typehandler.TypeHandler[any]] {
	args := m.Called(desc, ctx)
	return args.Get(0).(option.Generic[typehandler.TypeHandler[any]]) //nolint:forcetypeassert
}

// MockContext is a mock of typehandler.Context.
type MockContext struct{ mock.Mock }

var _ typehandler.Context = (*MockContext)(nil)

// Resolve implements typehandler.Context.
func (m *MockContext) Resolve(desc typeinfo.Descriptor) option.Generic[typehandler.TypeHandler[any]] {
	args := m.Called(desc)
	return args.Get(0).(option.Generic[typehandler.TypeHandler[any]]) //nolint:forcetypeassert
}

// Logger implements typehandler.Context.
func (m *MockContext) Logger() *zap.Logger {
	args := m.Called()
	return args.Get(0).(*zap.Logger) //nolint:forcetypeassert
}

// MockIntrospector is a mock of metadata.Introspector.
type MockIntrospector struct{ mock.Mock }

var _ metadata.Introspector = (*MockIntrospector)(nil)

// Introspect implements metadata.Introspector.
func (m *MockIntrospector) Introspect(t reflect.Type) (metadata.TypeInfo, error) {
	args := m.Called(t)
	return args.Get(0).(metadata.TypeInfo), args.Error(1) //nolint:forcetypeassert
}

// Handled returns a factory result holding h.
func Handled(h typehandler.TypeHandler[any]) option.Generic[typehandler.TypeHandler[any]] {
	return option.Some(h)
}

// Declined returns an empty factory result.
func Declined() option.Generic[typehandler.TypeHandler[any]] {
	return option.None[typehandler.TypeHandler[any]]()
}
