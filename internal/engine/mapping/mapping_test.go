package mapping

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"
)

func TestParse_LegacyStringForm(t *testing.T) {
	raw := []byte(`{"first_name":"firstname","last_name":"lastname"}`)

	m, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	d, ok := m.Get("first_name")
	if !ok {
		t.Fatal("Expected first_name key")
	}
	if d.PayloadField != "firstname" {
		t.Errorf("Expected payload field firstname, got %s", d.PayloadField)
	}
	if d.IsCustom {
		t.Error("Legacy entries must default to is_custom=false")
	}
}

func TestParse_DescriptorForm(t *testing.T) {
	raw := []byte(`{"e3_T":{"payload_field":"notes","is_custom":true}}`)

	m, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	d, _ := m.Get("e3_T")
	if d.PayloadField != "notes" || !d.IsCustom {
		t.Errorf("Unexpected descriptor: %+v", d)
	}
}

func TestParse_MixedForms(t *testing.T) {
	raw := []byte(`{"email":"email","e1_N":{"payload_field":"score","is_custom":true},"city":"town"}`)

	m, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	expected := []string{"email", "e1_N", "city"}
	if !reflect.DeepEqual(m.Keys(), expected) {
		t.Errorf("Expected key order %v, got %v", expected, m.Keys())
	}
}

func TestParse_Idempotent(t *testing.T) {
	inputs := [][]byte{
		[]byte(`{"first_name":"firstname"}`),
		[]byte(`{"email":{"payload_field":"mailto","is_custom":false}}`),
		[]byte(`{"a":"x","b":{"payload_field":"y","is_custom":true},"c":"z"}`),
		[]byte(`{}`),
		nil,
	}

	for _, input := range inputs {
		first, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%s) failed: %v", input, err)
		}

		encoded, err := json.Marshal(first)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}

		second, err := Parse(encoded)
		if err != nil {
			t.Fatalf("Re-parse failed: %v", err)
		}

		reencoded, err := json.Marshal(second)
		if err != nil {
			t.Fatalf("Re-marshal failed: %v", err)
		}

		if !bytes.Equal(encoded, reencoded) {
			t.Errorf("Normalization not idempotent: %s != %s", encoded, reencoded)
		}
	}
}

func TestParse_PreservesUnknownDescriptorProperties(t *testing.T) {
	raw := []byte(`{"email":{"payload_field":"email","is_custom":false,"field_type":"Text","hint":"primary"}}`)

	m, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	encoded, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]map[string]interface{}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded["email"]["field_type"] != "Text" {
		t.Errorf("Expected field_type property to survive, got %v", decoded["email"])
	}
	if decoded["email"]["hint"] != "primary" {
		t.Errorf("Expected hint property to survive, got %v", decoded["email"])
	}
}

func TestParse_RejectsInvalidShapes(t *testing.T) {
	invalid := [][]byte{
		[]byte(`[1,2,3]`),
		[]byte(`{"email":42}`),
		[]byte(`"just a string"`),
	}

	for _, input := range invalid {
		if _, err := Parse(input); err == nil {
			t.Errorf("Expected error for %s", input)
		}
	}
}

func TestEnsureRecipients(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Empty mapping gets all three",
			input:    `{}`,
			expected: []string{"email", "cc", "bcc"},
		},
		{
			name:     "Existing keys stay first",
			input:    `{"first_name":"firstname","email":"mailto"}`,
			expected: []string{"first_name", "email", "cc", "bcc"},
		},
		{
			name:     "Complete mapping unchanged",
			input:    `{"email":"email","cc":"cc","bcc":"bcc"}`,
			expected: []string{"email", "cc", "bcc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			result := EnsureRecipients(m)
			if !reflect.DeepEqual(result.Keys(), tt.expected) {
				t.Errorf("Expected keys %v, got %v", tt.expected, result.Keys())
			}
		})
	}
}

func TestEnsureRecipients_DoesNotMutateInput(t *testing.T) {
	m, _ := Parse([]byte(`{"email":"mailto"}`))
	EnsureRecipients(m)

	if m.Len() != 1 {
		t.Errorf("Input mapping mutated, now has %d keys", m.Len())
	}
}

func TestEnsureRecipients_IdentityDefaults(t *testing.T) {
	m, _ := Parse([]byte(`{}`))
	result := EnsureRecipients(m)

	for _, key := range []string{"email", "cc", "bcc"} {
		d, ok := result.Get(key)
		if !ok {
			t.Fatalf("Expected %s key", key)
		}
		if d.PayloadField != key || d.IsCustom {
			t.Errorf("Expected identity descriptor for %s, got %+v", key, d)
		}
	}
}
