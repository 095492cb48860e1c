// Package codec encodes persisted data trees into YAML, MessagePack and JSON
// documents and back.
package codec

import (
	"github.com/tarantool/go-persist/persisted"
)

// Codec converts persisted data to and from one document format.
type Codec interface {
	// Name identifies the format, e.g. "yaml".
	Name() string
	Encode(data persisted.Data) ([]byte, error)
	Decode(document []byte) (persisted.Data, error)
}

// All returns every codec of the package.
func All() []Codec {
	return []Codec{NewYAML(), NewMsgpack(), NewJSON()}
}
