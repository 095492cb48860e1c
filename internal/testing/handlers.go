package testing

import (
	"github.com/tarantool/go-option"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tarantool/go-persist/persisted"
)

// PanickingHandler fails the test process if any of its methods is invoked.
// It is wrapped into typehandler.NullSafe to check that nil input never
// reaches type specific logic.
type PanickingHandler[T any] struct{}

// SerializeNonNull panics.
func (PanickingHandler[T]) SerializeNonNull(T, persisted.Serializer) persisted.Data {
	panic("SerializeNonNull must not be called")
}

// Deserialize panics.
func (PanickingHandler[T]) Deserialize(persisted.Data) option.Generic[T] {
	panic("Deserialize must not be called")
}

// FailingHandler serializes everything to Null and never deserializes.
type FailingHandler[T any] struct{}

// Serialize returns Null.
func (FailingHandler[T]) Serialize(_ T, serializer persisted.Serializer) persisted.Data {
	return serializer.Null()
}

// Deserialize returns None.
func (FailingHandler[T]) Deserialize(persisted.Data) option.Generic[T] {
	return option.None[T]()
}

// ObservedLogger returns a logger recording every entry at debug level and above.
func ObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)

	return zap.New(core), logs
}
