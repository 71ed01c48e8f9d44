package models

import (
	"github.com/wilson1442/Webhook-Hub/internal/engine/mapping"
)

// Endpoint is an inbound webhook definition. The path plus secret token
// pair authenticates dispatch requests.
type Endpoint struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Path         string               `json:"path"`
	SecretToken  string               `json:"secret_token"`
	Mode         mapping.Mode         `json:"mode"`
	Integration  string               `json:"integration"` // sendgrid, smtp2go
	FieldMapping mapping.FieldMapping `json:"field_mapping"`

	// add_contact mode
	SendGridListID string `json:"sendgrid_list_id,omitempty"`

	// send_email mode. From values may carry {{field}} placeholders
	// resolved against the inbound payload at send time.
	SendGridTemplateID string `json:"sendgrid_template_id,omitempty"`
	EmailFrom          string `json:"email_from,omitempty"`
	EmailFromName      string `json:"email_from_name,omitempty"`

	Enabled   bool   `json:"enabled"`
	CreatedBy string `json:"created_by"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}
