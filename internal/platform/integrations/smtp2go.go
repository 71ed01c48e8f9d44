package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SMTP2GOClient covers send_email mode only; SMTP2GO has no contact
// list API.
type SMTP2GOClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func (c *SMTP2GOClient) AddContact(ctx context.Context, req *ContactRequest) (string, error) {
	return "", fmt.Errorf("smtp2go: %w", ErrUnsupported)
}

func (c *SMTP2GOClient) SendEmail(ctx context.Context, req *MailRequest) (string, error) {
	if len(req.Personalizations) == 0 {
		return "", fmt.Errorf("smtp2go: no recipients")
	}
	p := req.Personalizations[0]

	body := map[string]interface{}{
		"to":            flatten(p.To),
		"sender":        formatSender(req.From),
		"template_id":   req.TemplateID,
		"template_data": p.DynamicTemplateData,
	}
	if len(p.CC) > 0 {
		body["cc"] = flatten(p.CC)
	}
	if len(p.BCC) > 0 {
		body["bcc"] = flatten(p.BCC)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/email/send", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Smtp2go-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return "Email sent successfully", nil
}

func flatten(addresses []EmailAddress) []string {
	out := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		out = append(out, addr.Email)
	}
	return out
}

func formatSender(from EmailAddress) string {
	if from.Name != "" {
		return fmt.Sprintf("%s <%s>", from.Name, from.Email)
	}
	return from.Email
}
