// Package options implements the functional options shared by the
// configurable types of the module.
package options

// OptionConstructor returns the default configuration.
type OptionConstructor[T any] func() T

// OptionCallback modifies a configuration in place.
type OptionCallback[T any] func(*T)

// ApplyOptions builds the default configuration and applies cbs to it in
// order. A nil constructor starts from the zero value and nil callbacks are
// ignored.
func ApplyOptions[T any](constructor OptionConstructor[T], cbs []OptionCallback[T]) T {
	var opts T

	if constructor != nil {
		opts = constructor()
	}

	for _, cb := range cbs {
		if cb != nil {
			cb(&opts)
		}
	}

	return opts
}
