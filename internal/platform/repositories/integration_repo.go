package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
	"github.com/wilson1442/Webhook-Hub/internal/platform/secrets"
)

// IntegrationRepository stores external service credential sets. Values
// are sealed before they hit disk and opened on read.
type IntegrationRepository struct {
	db     *sql.DB
	sealer *secrets.Sealer
}

func NewIntegrationRepository(db *sql.DB, sealer *secrets.Sealer) *IntegrationRepository {
	return &IntegrationRepository{db: db, sealer: sealer}
}

// Upsert creates or replaces the credential set for a service.
func (r *IntegrationRepository) Upsert(integration *models.Integration) error {
	sealed := make(map[string]string, len(integration.Credentials))
	for key, value := range integration.Credentials {
		enc, err := r.sealer.Seal(value)
		if err != nil {
			return err
		}
		sealed[key] = enc
	}

	credsJSON, err := json.Marshal(sealed)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	integration.UpdatedAt = now

	var existingID string
	err = r.db.QueryRow(`SELECT id FROM integrations WHERE service_name = ?`,
		integration.ServiceName).Scan(&existingID)

	switch {
	case err == sql.ErrNoRows:
		integration.ID = "int_" + uuid.New().String()
		integration.CreatedAt = now
		_, err = r.db.Exec(`
			INSERT INTO integrations (id, service_name, credentials, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, integration.ID, integration.ServiceName, string(credsJSON),
			integration.IsActive, integration.CreatedAt, integration.UpdatedAt)
		return err
	case err != nil:
		return err
	default:
		integration.ID = existingID
		_, err = r.db.Exec(`
			UPDATE integrations SET credentials = ?, is_active = ?, updated_at = ?
			WHERE id = ?
		`, string(credsJSON), integration.IsActive, integration.UpdatedAt, existingID)
		return err
	}
}

func (r *IntegrationRepository) scan(row interface{ Scan(...interface{}) error }) (*models.Integration, error) {
	var i models.Integration
	var credsStr string

	err := row.Scan(&i.ID, &i.ServiceName, &credsStr, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}

	var sealed map[string]string
	if err := json.Unmarshal([]byte(credsStr), &sealed); err != nil {
		return nil, err
	}

	i.Credentials = make(models.Credentials, len(sealed))
	for key, enc := range sealed {
		value, err := r.sealer.Open(enc)
		if err != nil {
			return nil, err
		}
		i.Credentials[key] = value
	}
	return &i, nil
}

func (r *IntegrationRepository) GetByService(serviceName string) (*models.Integration, error) {
	row := r.db.QueryRow(`
		SELECT id, service_name, credentials, is_active, created_at, updated_at
		FROM integrations WHERE service_name = ?
	`, serviceName)

	integration, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return integration, err
}

func (r *IntegrationRepository) List() ([]*models.Integration, error) {
	rows, err := r.db.Query(`
		SELECT id, service_name, credentials, is_active, created_at, updated_at
		FROM integrations ORDER BY service_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var integrations []*models.Integration
	for rows.Next() {
		integration, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, integration)
	}
	return integrations, rows.Err()
}

func (r *IntegrationRepository) Delete(serviceName string) error {
	result, err := r.db.Exec(`DELETE FROM integrations WHERE service_name = ?`, serviceName)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
