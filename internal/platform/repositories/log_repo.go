package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
)

type LogRepository struct {
	db *sql.DB
}

func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

func (r *LogRepository) Create(entry *models.LogEntry) error {
	entry.ID = "log_" + uuid.New().String()
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().Unix()
	}

	query := `
		INSERT INTO webhook_logs
			(id, endpoint_id, endpoint_name, timestamp, status, source_ip,
			 payload, payload_summary, response_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		entry.ID, entry.EndpointID, entry.EndpointName, entry.Timestamp,
		entry.Status, entry.SourceIP, string(entry.Payload),
		entry.PayloadSummary, entry.ResponseMessage)
	return err
}

const logColumns = `id, endpoint_id, endpoint_name, timestamp, status, source_ip,
	payload, payload_summary, response_message`

func scanLogEntry(row interface{ Scan(...interface{}) error }) (*models.LogEntry, error) {
	var e models.LogEntry
	var payload sql.NullString

	err := row.Scan(&e.ID, &e.EndpointID, &e.EndpointName, &e.Timestamp,
		&e.Status, &e.SourceIP, &payload, &e.PayloadSummary, &e.ResponseMessage)
	if err != nil {
		return nil, err
	}

	if payload.Valid && payload.String != "" {
		e.Payload = []byte(payload.String)
	}
	return &e, nil
}

// List returns entries newest first, optionally filtered by endpoint.
// The limit is bounded; zero means the default page size. Timestamps
// have second granularity, so insertion order (rowid) breaks ties —
// without it, entries written within the same second would come back
// in random uuid order.
func (r *LogRepository) List(endpointID string, limit int) ([]*models.LogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	query := `SELECT ` + logColumns + ` FROM webhook_logs`
	args := []interface{}{}
	if endpointID != "" {
		query += ` WHERE endpoint_id = ?`
		args = append(args, endpointID)
	}
	query += ` ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LogEntry
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *LogRepository) GetByID(id string) (*models.LogEntry, error) {
	row := r.db.QueryRow(`SELECT `+logColumns+` FROM webhook_logs WHERE id = ?`, id)
	entry, err := scanLogEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return entry, err
}

func (r *LogRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM webhook_logs WHERE id = ?`, id)
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

func (r *LogRepository) DeleteAll() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM webhook_logs`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *LogRepository) DeleteFailed() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM webhook_logs WHERE status = ?`, models.StatusFailed)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type LogStats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

func (r *LogRepository) Stats() (*LogStats, error) {
	var stats LogStats
	err := r.db.QueryRow(`
		SELECT COUNT(1),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM webhook_logs
	`).Scan(&stats.Total, &stats.Success, &stats.Failed)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
