package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type SendGridClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// AddContact upserts a contact via the marketing contacts API. Standard
// fields sit at the top level of the contact object, custom fields under
// the custom_fields sub-object.
func (c *SendGridClient) AddContact(ctx context.Context, req *ContactRequest) (string, error) {
	contact := make(map[string]interface{}, len(req.Fields)+1)
	for key, value := range req.Fields {
		contact[key] = value
	}
	if len(req.CustomFields) > 0 {
		contact["custom_fields"] = req.CustomFields
	}

	body := map[string]interface{}{
		"contacts": []interface{}{contact},
	}
	if req.ListID != "" {
		body["list_ids"] = []string{req.ListID}
	}

	status, respBody, err := c.do(ctx, http.MethodPut, "/v3/marketing/contacts", body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusAccepted {
		return "", &StatusError{StatusCode: status, Body: respBody}
	}

	jobID := "N/A"
	var accepted struct {
		JobID string `json:"job_id"`
	}
	if json.Unmarshal([]byte(respBody), &accepted) == nil && accepted.JobID != "" {
		jobID = accepted.JobID
	}

	if req.ListID != "" {
		return fmt.Sprintf("Contact added successfully to list %s (Job ID: %s)", req.ListID, jobID), nil
	}
	return fmt.Sprintf("Contact added successfully (Job ID: %s)", jobID), nil
}

func (c *SendGridClient) SendEmail(ctx context.Context, req *MailRequest) (string, error) {
	status, respBody, err := c.do(ctx, http.MethodPost, "/v3/mail/send", req)
	if err != nil {
		return "", err
	}
	if status != http.StatusAccepted && status != http.StatusOK {
		return "", &StatusError{StatusCode: status, Body: respBody}
	}
	return "Email sent successfully", nil
}

func (c *SendGridClient) do(ctx context.Context, method, path string, body interface{}) (int, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(respBody), nil
}
