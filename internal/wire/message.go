package wire

// TypeEnum discriminates the tagged union of prism wire messages
// (spec.md 3, "Prism wire message").
type TypeEnum int

const (
	TypeUnknown TypeEnum = iota
	TypeClearText
	TypeEncryptUserMessage
	TypeWriteObliviousDropbox
	TypeEncryptDropboxMessage
	TypeStoreFragment
	TypeStoreFragmentAck
	TypeReadDropbox
	TypeReadObliviousDropbox
	TypeReadObliviousDropboxResponse
	TypeEncryptedReadObliviousDropboxResponse
	TypeFindOp
	TypeFindReply
	TypeRetrieveOp
	TypeRetrieveReply
	TypeDeleteOp
	TypeEncryptEMIXMessage
	TypeSendToNext
	TypeLinkRequest
	TypeARK
	TypeARKBatch
	TypeNARK
	TypeHello
	TypeHelloResponse
	TypeLSP
	TypeLSPForward
	TypeFlood
	TypeEpochCommand
)

// Message is a canonical prism wire message: a discriminated union keyed
// by msg_type, where every other field is optional by construction.
// Unknown field indices encountered while decoding are preserved verbatim
// on re-encode (spec.md 3 & 9, forward compatibility).
type Message struct {
	fields map[FieldIndex]interface{}
}

// New starts a builder for a message of the given type (spec.md 9,
// "Prefer a builder API over constructor-arg bloat").
func New(msgType TypeEnum) *Message {
	m := &Message{fields: make(map[FieldIndex]interface{})}
	m.fields[FieldVersion] = int64(1)
	m.fields[FieldMsgType] = int64(msgType)
	return m
}

// Type returns this message's discriminant.
func (m *Message) Type() TypeEnum {
	if v, ok := m.fields[FieldMsgType]; ok {
		return TypeEnum(v.(int64))
	}
	return TypeUnknown
}

// Set assigns a field value, returning the same message for chaining.
// Setting a value to nil removes the field (spec.md 3: "fields set to
// null/absent are omitted from the map").
func (m *Message) Set(field FieldIndex, value interface{}) *Message {
	if value == nil {
		delete(m.fields, field)
		return m
	}
	m.fields[field] = value
	return m
}

// Get returns a field's raw value and whether it was present.
func (m *Message) Get(field FieldIndex) (interface{}, bool) {
	v, ok := m.fields[field]
	return v, ok
}

// GetBytes is a typed accessor for byte-string fields.
func (m *Message) GetBytes(field FieldIndex) []byte {
	if v, ok := m.fields[field]; ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}

// GetString is a typed accessor for string fields.
func (m *Message) GetString(field FieldIndex) string {
	if v, ok := m.fields[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetInt is a typed accessor for integer fields.
func (m *Message) GetInt(field FieldIndex) int64 {
	if v, ok := m.fields[field]; ok {
		if i, ok := v.(int64); ok {
			return i
		}
	}
	return 0
}

// GetBool is a typed accessor for boolean fields.
func (m *Message) GetBool(field FieldIndex) bool {
	if v, ok := m.fields[field]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// GetMessage is a typed accessor for a nested submessage field.
func (m *Message) GetMessage(field FieldIndex) *Message {
	if v, ok := m.fields[field]; ok {
		if sub, ok := v.(*Message); ok {
			return sub
		}
	}
	return nil
}

// GetMessages is a typed accessor for a list-of-submessages field
// (spec.md 3: "list of nested messages encodes each element
// independently").
func (m *Message) GetMessages(field FieldIndex) []*Message {
	if v, ok := m.fields[field]; ok {
		if list, ok := v.([]*Message); ok {
			return list
		}
	}
	return nil
}

// Clone returns a modified copy of m, sharing unmodified subfields by
// value semantics (spec.md 3: "clone(field=value)"). Overrides with a nil
// value remove that field from the clone.
func (m *Message) Clone(overrides map[FieldIndex]interface{}) *Message {
	out := &Message{fields: make(map[FieldIndex]interface{}, len(m.fields))}
	for k, v := range m.fields {
		out.fields[k] = v
	}
	for k, v := range overrides {
		if v == nil {
			delete(out.fields, k)
		} else {
			out.fields[k] = v
		}
	}
	return out
}
