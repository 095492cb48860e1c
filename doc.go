// Package persist provides format independent persistence for entity
// components.
//
// Components are plain Go structs registered in a
// [github.com/tarantool/go-persist/metadata.Library]. Field values are turned
// into [github.com/tarantool/go-persist/persisted.Data] trees by type handlers
// from [github.com/tarantool/go-persist/typehandler], and the trees are encoded
// by the [github.com/tarantool/go-persist/codec] package. See the
// [github.com/tarantool/go-persist/serialization] package for component,
// entity and snapshot serialization on top of a
// [github.com/tarantool/go-persist/pool.Pool].
package persist
