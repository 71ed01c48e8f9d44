package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wilson1442/Webhook-Hub/internal/engine/mapping"
	"github.com/wilson1442/Webhook-Hub/internal/platform/integrations"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// resolvePlaceholders substitutes {{field}} references with payload
// values. A missing field becomes an empty string, not an error.
func resolvePlaceholders(template string, payload map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		field := placeholderPattern.FindStringSubmatch(match)[1]
		return stringValue(payload[field])
	})
}

func stringValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; drop the trailing .0 on ints.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// splitRecipients turns a single address or comma-separated list into
// address entries, trimming whitespace and discarding empty tokens.
func splitRecipients(value interface{}) []integrations.EmailAddress {
	raw := stringValue(value)
	if raw == "" {
		return nil
	}

	var out []integrations.EmailAddress
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		out = append(out, integrations.EmailAddress{Email: token})
	}
	return out
}

func payloadField(m mapping.FieldMapping, key, fallback string) string {
	if d, ok := m.Get(key); ok && d.PayloadField != "" {
		return d.PayloadField
	}
	return fallback
}

// buildContact translates an inbound payload into a contact upsert.
// The email field is mandatory; everything else is copied only when
// present, custom fields separated from standard ones.
func buildContact(endpoint *models.Endpoint, payload map[string]interface{}) (*integrations.ContactRequest, error) {
	m := endpoint.FieldMapping

	emailField := payloadField(m, mapping.KeyEmail, mapping.KeyEmail)
	email := stringValue(payload[emailField])
	if email == "" {
		return nil, translationError("Email field not found in payload")
	}

	req := &integrations.ContactRequest{
		ListID: endpoint.SendGridListID,
		Fields: map[string]interface{}{mapping.KeyEmail: email},
	}

	for _, key := range m.Keys() {
		if key == mapping.KeyEmail {
			continue
		}
		d, _ := m.Get(key)
		value, ok := payload[d.PayloadField]
		if !ok || stringValue(value) == "" {
			continue
		}

		if d.IsCustom {
			if req.CustomFields == nil {
				req.CustomFields = make(map[string]interface{})
			}
			req.CustomFields[key] = value
		} else {
			req.Fields[key] = value
		}
	}

	return req, nil
}

// buildMail translates an inbound payload into a templated send. The
// whole payload rides along as dynamic template data; the from address
// supports {{field}} placeholders and falls back to the integration's
// configured sender.
func buildMail(endpoint *models.Endpoint, payload map[string]interface{}, defaultFrom integrations.EmailAddress) (*integrations.MailRequest, error) {
	m := mapping.EnsureRecipients(endpoint.FieldMapping)

	to := splitRecipients(payload[payloadField(m, mapping.KeyEmail, mapping.KeyEmail)])
	if len(to) == 0 {
		return nil, translationError("No recipient address found in payload")
	}

	p := integrations.Personalization{
		To:                  to,
		CC:                  splitRecipients(payload[payloadField(m, mapping.KeyCC, mapping.KeyCC)]),
		BCC:                 splitRecipients(payload[payloadField(m, mapping.KeyBCC, mapping.KeyBCC)]),
		DynamicTemplateData: payload,
	}

	from := defaultFrom
	if endpoint.EmailFrom != "" {
		from.Email = resolvePlaceholders(endpoint.EmailFrom, payload)
	}
	if endpoint.EmailFromName != "" {
		from.Name = resolvePlaceholders(endpoint.EmailFromName, payload)
	}
	if from.Email == "" {
		return nil, configError("No sender address configured")
	}

	return &integrations.MailRequest{
		Personalizations: []integrations.Personalization{p},
		From:             from,
		TemplateID:       endpoint.SendGridTemplateID,
	}, nil
}
