package codec

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/tarantool/go-persist/persisted"
)

const (
	tagNull   = "!!null"
	tagBool   = "!!bool"
	tagInt    = "!!int"
	tagFloat  = "!!float"
	tagString = "!!str"
	tagBinary = "!!binary"
)

type yamlCodec struct {
	serializer persisted.Serializer
}

// NewYAML returns the YAML codec. Bytes are written as !!binary scalars.
func NewYAML() Codec {
	return yamlCodec{serializer: persisted.NewSerializer()}
}

// Name implements Codec.
func (yamlCodec) Name() string { return "yaml" }

// Encode implements Codec.
func (c yamlCodec) Encode(data persisted.Data) ([]byte, error) {
	node, err := yamlNode(data)
	if err != nil {
		return nil, errMarshal(err)
	}

	out, err := yaml.Marshal(node)
	if err != nil {
		return nil, errMarshal(err)
	}

	return out, nil
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlNode(data persisted.Data) (*yaml.Node, error) {
	if data == nil {
		return scalar(tagNull, "null"), nil
	}

	switch data.Kind() {
	case persisted.KindNull:
		return scalar(tagNull, "null"), nil
	case persisted.KindBool:
		v, _ := data.AsBool()
		return scalar(tagBool, strconv.FormatBool(v)), nil
	case persisted.KindInt:
		v, _ := data.AsInt()
		return scalar(tagInt, strconv.FormatInt(v, 10)), nil
	case persisted.KindUint:
		v, _ := data.AsUint()
		return scalar(tagInt, strconv.FormatUint(v, 10)), nil
	case persisted.KindFloat:
		v, _ := data.AsFloat()
		return scalar(tagFloat, formatYAMLFloat(v)), nil
	case persisted.KindString:
		v, _ := data.AsString()
		return scalar(tagString, v), nil
	case persisted.KindBytes:
		v, _ := data.AsBytes()
		return scalar(tagBinary, base64.StdEncoding.EncodeToString(v)), nil
	case persisted.KindArray:
		arr, _ := data.AsArray()
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}

		for i := range arr.Len() {
			item, err := yamlNode(arr.At(i))
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}

			node.Content = append(node.Content, item)
		}

		return node, nil
	case persisted.KindValueMap:
		vm, _ := data.AsValueMap()
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

		for _, key := range vm.Keys() {
			raw, _ := vm.Get(key)

			item, err := yamlNode(raw)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}

			node.Content = append(node.Content, scalar(tagString, key), item)
		}

		return node, nil
	default:
		return nil, fmt.Errorf("%w: kind %s", ErrUnsupportedNode, data.Kind())
	}
}

func formatYAMLFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ".nan"
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	}

	out := strconv.FormatFloat(v, 'g', -1, 64)

	// Keep integral floats distinguishable from ints.
	if _, err := strconv.ParseInt(out, 10, 64); err == nil {
		out += ".0"
	}

	return out
}

// Decode implements Codec. An empty document decodes to Null.
func (c yamlCodec) Decode(document []byte) (persisted.Data, error) {
	var root yaml.Node

	err := yaml.Unmarshal(document, &root)
	if err != nil {
		return nil, errUnmarshal(fmt.Errorf("%w: %w", ErrInvalidDocument, err))
	}

	if root.Kind == 0 || len(root.Content) == 0 {
		return c.serializer.Null(), nil
	}

	data, err := c.fromNode(root.Content[0])
	if err != nil {
		return nil, errUnmarshal(err)
	}

	return data, nil
}

func (c yamlCodec) fromNode(node *yaml.Node) (persisted.Data, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return c.serializer.Null(), nil
		}

		return c.fromNode(node.Content[0])
	case yaml.AliasNode:
		return c.fromNode(node.Alias)
	case yaml.ScalarNode:
		return c.fromScalar(node)
	case yaml.SequenceNode:
		items := make([]persisted.Data, 0, len(node.Content))

		for i, child := range node.Content {
			item, err := c.fromNode(child)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}

			items = append(items, item)
		}

		return c.serializer.Array(items), nil
	case yaml.MappingNode:
		pairs := make(map[string]persisted.Data, len(node.Content)/2)

		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: non-scalar key at line %d", ErrUnsupportedNode, key.Line)
			}

			item, err := c.fromNode(node.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key.Value, err)
			}

			pairs[key.Value] = item
		}

		return c.serializer.ValueMap(pairs), nil
	default:
		return nil, fmt.Errorf("%w: kind %d at line %d", ErrUnsupportedNode, node.Kind, node.Line)
	}
}

func (c yamlCodec) fromScalar(node *yaml.Node) (persisted.Data, error) {
	switch node.ShortTag() {
	case tagNull:
		return c.serializer.Null(), nil
	case tagBool:
		var v bool
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}

		return c.serializer.Bool(v), nil
	case tagInt:
		var signed int64
		if err := node.Decode(&signed); err == nil {
			return c.serializer.Int(signed), nil
		}

		var unsigned uint64
		if err := node.Decode(&unsigned); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}

		return c.serializer.Uint(unsigned), nil
	case tagFloat:
		var v float64
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}

		return c.serializer.Float(v), nil
	case tagBinary:
		v, err := base64.StdEncoding.DecodeString(node.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}

		return c.serializer.Bytes(v), nil
	default:
		return c.serializer.String(node.Value), nil
	}
}
