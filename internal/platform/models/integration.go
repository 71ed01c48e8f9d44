package models

// Integration service names the dispatch engine understands.
const (
	ServiceSendGrid = "sendgrid"
	ServiceSMTP2GO  = "smtp2go"
)

// Credentials are key/value secrets for one service (api_key,
// sender_email, ...). Sealed at rest; the repository only hands out
// decrypted values.
type Credentials map[string]string

// Integration holds one external service's credential set and its
// active flag.
type Integration struct {
	ID          string      `json:"id"`
	ServiceName string      `json:"service_name"`
	Credentials Credentials `json:"credentials,omitempty"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   int64       `json:"created_at"`
	UpdatedAt   int64       `json:"updated_at"`
}

// Masked returns a copy safe for listing: credential values are reduced
// to a short prefix.
func (i Integration) Masked() Integration {
	out := i
	out.Credentials = make(Credentials, len(i.Credentials))
	for key, value := range i.Credentials {
		if len(value) > 4 {
			value = value[:4] + "..."
		}
		out.Credentials[key] = value
	}
	return out
}
