package repositories

import (
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
)

func TestLogRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewLogRepository(db)

	payload := json.RawMessage(`{"email":"a@b.com","firstname":"Jo"}`)
	entry := &models.LogEntry{
		EndpointID:      "ep_1",
		EndpointName:    "Lead Intake",
		Status:          models.StatusSuccess,
		SourceIP:        "10.0.0.1",
		Payload:         payload,
		PayloadSummary:  `{"email":"a@b.com","firstname":"Jo"}`,
		ResponseMessage: "Contact added successfully",
	}
	if err := repo.Create(entry); err != nil {
		t.Fatalf("Failed to create entry: %v", err)
	}

	fetched, err := repo.GetByID(entry.ID)
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}

	if string(fetched.Payload) != string(payload) {
		t.Errorf("Payload must round trip byte-for-byte, got %s", fetched.Payload)
	}
	if fetched.EndpointName != "Lead Intake" {
		t.Errorf("Expected denormalized endpoint name, got %s", fetched.EndpointName)
	}
}

func TestLogRepository_ListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewLogRepository(db)

	for i, ts := range []int64{100, 300, 200} {
		entry := &models.LogEntry{
			EndpointID:   "ep_1",
			EndpointName: "Hook",
			Timestamp:    ts,
			Status:       models.StatusSuccess,
		}
		if err := repo.Create(entry); err != nil {
			t.Fatalf("Failed to create entry %d: %v", i, err)
		}
	}

	entries, err := repo.List("", 10)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Timestamp != 300 || entries[1].Timestamp != 200 || entries[2].Timestamp != 100 {
		t.Errorf("Expected newest-first order, got %d, %d, %d",
			entries[0].Timestamp, entries[1].Timestamp, entries[2].Timestamp)
	}
}

func TestLogRepository_ListSameSecondKeepsInsertionOrder(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewLogRepository(db)

	// Timestamps have second granularity, so a burst of entries shares
	// one timestamp value. Newest-first must still hold via insertion
	// order, not uuid luck.
	var ids []string
	for i := 0; i < 20; i++ {
		entry := &models.LogEntry{
			EndpointID:   "ep_1",
			EndpointName: "Hook",
			Timestamp:    500,
			Status:       models.StatusSuccess,
		}
		if err := repo.Create(entry); err != nil {
			t.Fatalf("Failed to create entry %d: %v", i, err)
		}
		ids = append(ids, entry.ID)
	}

	entries, err := repo.List("", 50)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(entries) != len(ids) {
		t.Fatalf("Expected %d entries, got %d", len(ids), len(entries))
	}

	for i, entry := range entries {
		want := ids[len(ids)-1-i]
		if entry.ID != want {
			t.Fatalf("Position %d: expected %s, got %s", i, want, entry.ID)
		}
	}
}

func TestLogRepository_ListFilterAndLimit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewLogRepository(db)

	for _, endpointID := range []string{"ep_1", "ep_1", "ep_2"} {
		repo.Create(&models.LogEntry{EndpointID: endpointID, EndpointName: "Hook", Status: models.StatusFailed})
	}

	entries, err := repo.List("ep_1", 10)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries for ep_1, got %d", len(entries))
	}

	entries, _ = repo.List("", 1)
	if len(entries) != 1 {
		t.Errorf("Expected limit to apply, got %d entries", len(entries))
	}
}

func TestLogRepository_DeleteAllAndFailed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewLogRepository(db)

	for _, status := range []string{models.StatusSuccess, models.StatusFailed, models.StatusFailed} {
		repo.Create(&models.LogEntry{EndpointID: "ep_1", EndpointName: "Hook", Status: status})
	}

	deleted, err := repo.DeleteFailed()
	if err != nil {
		t.Fatalf("Failed to delete failed entries: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted, got %d", deleted)
	}

	deleted, err = repo.DeleteAll()
	if err != nil {
		t.Fatalf("Failed to clear logs: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", deleted)
	}

	stats, _ := repo.Stats()
	if stats.Total != 0 {
		t.Errorf("Expected empty store, got %d entries", stats.Total)
	}
}

func TestLogRepository_Stats(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewLogRepository(db)

	for _, status := range []string{models.StatusSuccess, models.StatusSuccess, models.StatusFailed} {
		repo.Create(&models.LogEntry{EndpointID: "ep_1", EndpointName: "Hook", Status: status})
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.Total != 3 || stats.Success != 2 || stats.Failed != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestLogRepository_ListQueryShape(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewLogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "endpoint_id", "endpoint_name", "timestamp",
		"status", "source_ip", "payload", "payload_summary", "response_message"}).
		AddRow("log_1", "ep_1", "Hook", 100, "failed", "1.2.3.4", `{"a":1}`, `{"a":1}`, "boom")

	mock.ExpectQuery("SELECT (.+) FROM webhook_logs WHERE endpoint_id = \\? ORDER BY timestamp DESC, rowid DESC LIMIT \\?").
		WithArgs("ep_1", 50).
		WillReturnRows(rows)

	entries, err := repo.List("ep_1", 50)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "log_1" {
		t.Errorf("Unexpected entries: %+v", entries)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
