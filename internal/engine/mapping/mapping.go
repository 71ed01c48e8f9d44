package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Mode selects how a webhook endpoint translates inbound payloads.
type Mode string

const (
	ModeAddContact Mode = "add_contact"
	ModeSendEmail  Mode = "send_email"
)

func (m Mode) Valid() bool {
	return m == ModeAddContact || m == ModeSendEmail
}

// Reserved recipient keys every send_email mapping must carry.
const (
	KeyEmail = "email"
	KeyCC    = "cc"
	KeyBCC   = "bcc"
)

// Descriptor ties a target-system field to the inbound payload field it is
// read from. Older endpoints stored a bare string (just the payload field
// name); both shapes decode to the same descriptor, with is_custom
// defaulting to false. Unknown descriptor properties survive a
// decode/encode round trip.
type Descriptor struct {
	PayloadField string
	IsCustom     bool

	extra map[string]json.RawMessage
}

func (d *Descriptor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var field string
		if err := json.Unmarshal(data, &field); err != nil {
			return err
		}
		*d = Descriptor{PayloadField: field}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("field descriptor must be a string or object: %w", err)
	}

	*d = Descriptor{}
	for key, value := range raw {
		switch key {
		case "payload_field":
			if err := json.Unmarshal(value, &d.PayloadField); err != nil {
				return err
			}
		case "is_custom":
			if err := json.Unmarshal(value, &d.IsCustom); err != nil {
				return err
			}
		default:
			if d.extra == nil {
				d.extra = make(map[string]json.RawMessage)
			}
			d.extra[key] = value
		}
	}
	return nil
}

func (d Descriptor) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	field, err := json.Marshal(d.PayloadField)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"payload_field":`)
	buf.Write(field)
	buf.WriteString(`,"is_custom":`)
	if d.IsCustom {
		buf.WriteString("true")
	} else {
		buf.WriteString("false")
	}

	// Extra keys are emitted sorted so encoding is stable.
	extraKeys := make([]string, 0, len(d.extra))
	for key := range d.extra {
		extraKeys = append(extraKeys, key)
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(d.extra[key])
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FieldMapping is an ordered map from target field keys (SendGrid field
// ids such as "first_name" or "e3_T") to descriptors. JSON objects do not
// guarantee key order, so the codec tracks insertion order explicitly.
type FieldMapping struct {
	keys   []string
	fields map[string]Descriptor
}

func New() FieldMapping {
	return FieldMapping{fields: make(map[string]Descriptor)}
}

// Parse decodes a stored mapping, canonicalizing legacy string entries
// into descriptors. Empty or null input yields an empty mapping.
func Parse(data []byte) (FieldMapping, error) {
	m := New()
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return FieldMapping{}, err
	}
	return m, nil
}

func (m *FieldMapping) UnmarshalJSON(data []byte) error {
	*m = New()

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("field mapping must be a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)

		var d Descriptor
		if err := dec.Decode(&d); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		m.Set(key, d)
	}

	_, err = dec.Token() // closing brace
	return err
}

func (m FieldMapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.fields[key])
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m FieldMapping) Len() int {
	return len(m.keys)
}

// Keys returns target field keys in insertion order.
func (m FieldMapping) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

func (m FieldMapping) Get(key string) (Descriptor, bool) {
	d, ok := m.fields[key]
	return d, ok
}

// Set inserts or replaces a descriptor. New keys are appended to the
// insertion order.
func (m *FieldMapping) Set(key string, d Descriptor) {
	if m.fields == nil {
		m.fields = make(map[string]Descriptor)
	}
	if _, exists := m.fields[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = d
}

func (m FieldMapping) Clone() FieldMapping {
	out := New()
	for _, key := range m.keys {
		out.Set(key, m.fields[key])
	}
	return out
}

// EnsureRecipients guarantees the reserved email, cc and bcc keys exist,
// which mappings created before send_email recipients were configurable
// may lack. Missing keys get identity descriptors appended after the
// existing ones.
func EnsureRecipients(m FieldMapping) FieldMapping {
	out := m.Clone()
	for _, key := range []string{KeyEmail, KeyCC, KeyBCC} {
		if _, ok := out.Get(key); !ok {
			out.Set(key, Descriptor{PayloadField: key})
		}
	}
	return out
}
