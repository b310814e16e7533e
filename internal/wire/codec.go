package wire

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

var encMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: building canonical cbor mode: %v", err))
	}
	encMode = mode
}

// Encode serializes m to its canonical wire form. Field order follows
// CBOR's canonical map-key ordering (spec.md 3, "deterministic encoding"),
// so two messages with identical field sets always produce identical
// bytes regardless of build order.
func Encode(m *Message) ([]byte, error) {
	raw := toWire(m)
	b, err := encMode.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("wire: encoding message: %w", err)
	}
	return b, nil
}

// Decode parses a message from its canonical wire form. Field indices the
// decoder doesn't recognize are preserved as opaque CBOR values so a
// re-encode round-trips byte-for-byte (spec.md 3 & 9, forward
// compatibility).
func Decode(data []byte) (*Message, error) {
	var raw map[int]interface{}
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("wire: decoding message: %w", err)
	}
	return fromWire(raw), nil
}

func toWire(m *Message) map[int]interface{} {
	out := make(map[int]interface{}, len(m.fields))
	for field, v := range m.fields {
		out[int(field)] = toWireValue(v)
	}
	return out
}

func toWireValue(v interface{}) interface{} {
	switch val := v.(type) {
	case *Message:
		return toWire(val)
	case []*Message:
		list := make([]interface{}, len(val))
		for i, sub := range val {
			list[i] = toWire(sub)
		}
		return list
	default:
		return v
	}
}

func fromWire(raw map[int]interface{}) *Message {
	m := &Message{fields: make(map[FieldIndex]interface{}, len(raw))}
	for k, v := range raw {
		m.fields[FieldIndex(k)] = fromWireValue(v)
	}
	return m
}

func fromWireValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[int]interface{}:
		return fromWire(val)
	case map[interface{}]interface{}:
		converted := make(map[int]interface{}, len(val))
		for k, vv := range val {
			key, ok := toInt64(k)
			if !ok {
				continue
			}
			converted[int(key)] = vv
		}
		return fromWire(converted)
	case []interface{}:
		subs := make([]*Message, 0, len(val))
		allMessages := true
		for _, elem := range val {
			if sub, ok := asMessage(elem); ok {
				subs = append(subs, sub)
			} else {
				allMessages = false
				break
			}
		}
		if allMessages && len(subs) == len(val) {
			return subs
		}
		return val
	default:
		// fxamacker/cbor's default mode decodes non-negative CBOR
		// integers into uint64, not int64; normalize back to int64 so
		// accessors written against Set's int64 values (Type, GetInt,
		// ...) keep working after a decode round-trip.
		if i, ok := toInt64(val); ok {
			return i
		}
		return v
	}
}

func asMessage(v interface{}) (*Message, bool) {
	switch val := v.(type) {
	case map[int]interface{}:
		return fromWire(val), true
	case map[interface{}]interface{}:
		converted := make(map[int]interface{}, len(val))
		for k, vv := range val {
			key, ok := toInt64(k)
			if !ok {
				return nil, false
			}
			converted[int(key)] = vv
		}
		return fromWire(converted), true
	default:
		return nil, false
	}
}

// toInt64 normalizes the integer types fxamacker/cbor's default decode
// mode can produce (uint64 for non-negative values, int64 for negative
// ones) into a single int64 representation.
func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

// Digest returns the blake3 digest of m with its debug sub-record
// excluded, so attaching or refreshing debug info never changes a
// message's identity (spec.md 3: "digest(m) == digest(clone(m,
// debug_info=fresh))").
func Digest(m *Message) ([]byte, error) {
	clone := m.Clone(map[FieldIndex]interface{}{FieldDebug: nil})
	b, err := Encode(clone)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(b)
	return sum[:], nil
}

// HexDigest is Digest hex-encoded, convenient for logging and dedupe keys.
func HexDigest(m *Message) (string, error) {
	d, err := Digest(m)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(d), nil
}

// SignableBytes returns the canonical bytes an ARK signature is computed
// over: m with both its signature and debug fields cleared (spec.md 4.3,
// "an ARK's signature covers encode(clone(signature=None, debug=None))").
func SignableBytes(m *Message) ([]byte, error) {
	clone := m.Clone(map[FieldIndex]interface{}{
		FieldSignature: nil,
		FieldDebug:     nil,
	})
	return Encode(clone)
}
