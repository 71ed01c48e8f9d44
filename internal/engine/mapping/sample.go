package mapping

import (
	"regexp"
	"strings"
)

// Placeholder values mirror what the dashboard's test page pre-fills, so
// generated payloads stay stable across runs.
const (
	sampleEmail = "test@example.com"
	sampleCC    = "cc@example.com"
	sampleBCC   = "bcc@example.com"
)

// SendGrid numeric custom fields follow the e<digits>_N id convention.
var numericFieldID = regexp.MustCompile(`e\d+_N`)

// Synthesize builds a test payload for an endpoint's mapping. It never
// fails: an empty mapping falls back to a minimal email skeleton, and
// send_email mode always includes cc and bcc keys.
func Synthesize(m FieldMapping, mode Mode) map[string]interface{} {
	sample := make(map[string]interface{})

	for _, key := range m.Keys() {
		d, _ := m.Get(key)
		if d.PayloadField == "" {
			continue
		}
		sample[d.PayloadField] = sampleValue(key, d.PayloadField)
	}

	if len(sample) == 0 {
		sample[KeyEmail] = sampleEmail
	}

	if mode == ModeSendEmail {
		if field := recipientField(m, KeyCC); sample[field] == nil {
			sample[field] = sampleCC
		}
		if field := recipientField(m, KeyBCC); sample[field] == nil {
			sample[field] = sampleBCC
		}
	}

	return sample
}

func recipientField(m FieldMapping, key string) string {
	if d, ok := m.Get(key); ok && d.PayloadField != "" {
		return d.PayloadField
	}
	return key
}

func sampleValue(targetKey, payloadField string) interface{} {
	switch targetKey {
	case KeyCC:
		return sampleCC
	case KeyBCC:
		return sampleBCC
	}

	field := strings.ToLower(payloadField)
	switch {
	case strings.Contains(field, "email"):
		return sampleEmail
	case strings.Contains(field, "first"), strings.Contains(field, "fname"):
		return "John"
	case strings.Contains(field, "last"), strings.Contains(field, "lname"):
		return "Doe"
	case strings.Contains(field, "phone"):
		return "+1234567890"
	case strings.Contains(field, "company"):
		return "Acme Corp"
	case strings.Contains(field, "city"):
		return "New York"
	case strings.Contains(field, "state"):
		return "NY"
	case strings.Contains(field, "country"):
		return "USA"
	case strings.Contains(field, "zip"), strings.Contains(field, "postal"):
		return "10001"
	case strings.Contains(field, "address"):
		return "123 Main Street"
	case numericFieldID.MatchString(targetKey):
		return 12345
	default:
		return "Sample " + payloadField
	}
}
