package repositories

import (
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/wilson1442/Webhook-Hub/internal/engine/mapping"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
)

type EndpointRepository struct {
	db *sql.DB
}

func NewEndpointRepository(db *sql.DB) *EndpointRepository {
	return &EndpointRepository{db: db}
}

// NewSecretToken returns a fresh high-entropy webhook token.
func NewSecretToken() string {
	buf := make([]byte, 32)
	rand.Read(buf)
	return "whk_" + hex.EncodeToString(buf)
}

func (r *EndpointRepository) Create(endpoint *models.Endpoint) error {
	var existing int
	err := r.db.QueryRow(`SELECT COUNT(1) FROM webhook_endpoints WHERE path = ?`, endpoint.Path).Scan(&existing)
	if err != nil {
		return err
	}
	if existing > 0 {
		return ErrPathExists
	}

	endpoint.ID = "ep_" + uuid.New().String()
	endpoint.SecretToken = NewSecretToken()
	endpoint.CreatedAt = time.Now().Unix()
	endpoint.UpdatedAt = endpoint.CreatedAt

	mappingJSON, err := json.Marshal(endpoint.FieldMapping)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO webhook_endpoints
			(id, name, path, secret_token, mode, integration, field_mapping,
			 sendgrid_list_id, sendgrid_template_id, email_from, email_from_name,
			 enabled, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		endpoint.ID, endpoint.Name, endpoint.Path, endpoint.SecretToken,
		string(endpoint.Mode), endpoint.Integration, string(mappingJSON),
		endpoint.SendGridListID, endpoint.SendGridTemplateID,
		endpoint.EmailFrom, endpoint.EmailFromName,
		endpoint.Enabled, endpoint.CreatedBy, endpoint.CreatedAt, endpoint.UpdatedAt)
	if isUniqueViolation(err) {
		// A concurrent create can slip past the pre-check; the UNIQUE
		// constraint on path is the real arbiter.
		return ErrPathExists
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

const endpointColumns = `id, name, path, secret_token, mode, integration, field_mapping,
	sendgrid_list_id, sendgrid_template_id, email_from, email_from_name,
	enabled, created_by, created_at, updated_at`

func scanEndpoint(row interface{ Scan(...interface{}) error }) (*models.Endpoint, error) {
	var e models.Endpoint
	var mode, mappingStr string
	var listID, templateID, emailFrom, emailFromName sql.NullString

	err := row.Scan(&e.ID, &e.Name, &e.Path, &e.SecretToken, &mode, &e.Integration,
		&mappingStr, &listID, &templateID, &emailFrom, &emailFromName,
		&e.Enabled, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.Mode = mapping.Mode(mode)
	e.SendGridListID = listID.String
	e.SendGridTemplateID = templateID.String
	e.EmailFrom = emailFrom.String
	e.EmailFromName = emailFromName.String

	// Legacy string-form mappings are canonicalized here, at the storage
	// boundary, so nothing downstream sees the dual shape.
	e.FieldMapping, err = mapping.Parse([]byte(mappingStr))
	if err != nil {
		return nil, err
	}

	return &e, nil
}

func (r *EndpointRepository) GetByID(id string) (*models.Endpoint, error) {
	row := r.db.QueryRow(`SELECT `+endpointColumns+` FROM webhook_endpoints WHERE id = ?`, id)
	endpoint, err := scanEndpoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return endpoint, err
}

func (r *EndpointRepository) GetByPath(path string) (*models.Endpoint, error) {
	row := r.db.QueryRow(`SELECT `+endpointColumns+` FROM webhook_endpoints WHERE path = ?`, path)
	endpoint, err := scanEndpoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return endpoint, err
}

// FindByPathAndToken is the dispatch authentication lookup. The token
// comparison is constant-time, and a disabled endpoint is treated the
// same as an unknown one.
func (r *EndpointRepository) FindByPathAndToken(path, token string) (*models.Endpoint, error) {
	endpoint, err := r.GetByPath(path)
	if err != nil {
		return nil, err
	}
	if !endpoint.Enabled {
		return nil, ErrNotFound
	}
	if subtle.ConstantTimeCompare([]byte(endpoint.SecretToken), []byte(token)) != 1 {
		return nil, ErrNotFound
	}
	return endpoint, nil
}

func (r *EndpointRepository) List() ([]*models.Endpoint, error) {
	rows, err := r.db.Query(`SELECT ` + endpointColumns + ` FROM webhook_endpoints ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []*models.Endpoint
	for rows.Next() {
		endpoint, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints, rows.Err()
}

func (r *EndpointRepository) Update(endpoint *models.Endpoint) error {
	var holder string
	err := r.db.QueryRow(
		`SELECT id FROM webhook_endpoints WHERE path = ? AND id != ?`,
		endpoint.Path, endpoint.ID).Scan(&holder)
	if err == nil {
		return ErrPathExists
	}
	if err != sql.ErrNoRows {
		return err
	}

	endpoint.UpdatedAt = time.Now().Unix()

	mappingJSON, err := json.Marshal(endpoint.FieldMapping)
	if err != nil {
		return err
	}

	query := `
		UPDATE webhook_endpoints
		SET name = ?, path = ?, mode = ?, integration = ?, field_mapping = ?,
			sendgrid_list_id = ?, sendgrid_template_id = ?, email_from = ?,
			email_from_name = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		endpoint.Name, endpoint.Path, string(endpoint.Mode), endpoint.Integration,
		string(mappingJSON), endpoint.SendGridListID, endpoint.SendGridTemplateID,
		endpoint.EmailFrom, endpoint.EmailFromName, endpoint.Enabled,
		endpoint.UpdatedAt, endpoint.ID)
	if isUniqueViolation(err) {
		return ErrPathExists
	}
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

// RegenerateToken swaps the endpoint's token in a single UPDATE, so the
// old token stops matching the moment the statement commits.
func (r *EndpointRepository) RegenerateToken(id string) (string, error) {
	token := NewSecretToken()

	result, err := r.db.Exec(
		`UPDATE webhook_endpoints SET secret_token = ?, updated_at = ? WHERE id = ?`,
		token, time.Now().Unix(), id)
	if err != nil {
		return "", err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected == 0 {
		return "", ErrNotFound
	}
	return token, nil
}

func (r *EndpointRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM webhook_endpoints WHERE id = ?`, id)
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

func (r *EndpointRepository) Count() (int64, error) {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(1) FROM webhook_endpoints`).Scan(&count)
	return count, err
}
