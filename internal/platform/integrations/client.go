package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wilson1442/Webhook-Hub/internal/platform/config"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
)

// ErrUnsupported marks an operation the configured service cannot
// perform, e.g. contact management on a plain email relay.
var ErrUnsupported = errors.New("operation not supported by this integration")

// Client is the downstream surface the dispatch engine needs. Both
// methods return a short human-readable confirmation on success.
type Client interface {
	AddContact(ctx context.Context, req *ContactRequest) (string, error)
	SendEmail(ctx context.Context, req *MailRequest) (string, error)
}

type ContactRequest struct {
	ListID       string
	Fields       map[string]interface{}
	CustomFields map[string]interface{}
}

type EmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type Personalization struct {
	To                  []EmailAddress         `json:"to"`
	CC                  []EmailAddress         `json:"cc,omitempty"`
	BCC                 []EmailAddress         `json:"bcc,omitempty"`
	DynamicTemplateData map[string]interface{} `json:"dynamic_template_data,omitempty"`
}

type MailRequest struct {
	Personalizations []Personalization `json:"personalizations"`
	From             EmailAddress      `json:"from"`
	TemplateID       string            `json:"template_id"`
}

// StatusError carries a non-2xx downstream response. The body is kept for
// the dispatch log; callers must not echo it to unauthenticated parties.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// NewClient builds the client for a stored credential set.
func NewClient(integration *models.Integration, cfg config.IntegrationsConfig, timeout time.Duration) (Client, error) {
	apiKey := integration.Credentials["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("%s credentials missing api_key", integration.ServiceName)
	}

	httpClient := &http.Client{Timeout: timeout}

	switch integration.ServiceName {
	case models.ServiceSendGrid:
		return &SendGridClient{
			baseURL:    orDefault(cfg.SendGridURL, "https://api.sendgrid.com"),
			apiKey:     apiKey,
			httpClient: httpClient,
		}, nil
	case models.ServiceSMTP2GO:
		return &SMTP2GOClient{
			baseURL:    orDefault(cfg.SMTP2GOURL, "https://api.smtp2go.com"),
			apiKey:     apiKey,
			httpClient: httpClient,
		}, nil
	default:
		return nil, fmt.Errorf("unknown integration %q", integration.ServiceName)
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
