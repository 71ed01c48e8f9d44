package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/wilson1442/Webhook-Hub/internal/api/handlers"
	"github.com/wilson1442/Webhook-Hub/internal/api/middleware"
	"github.com/wilson1442/Webhook-Hub/internal/engine/dispatch"
	"github.com/wilson1442/Webhook-Hub/internal/platform/auth"
	"github.com/wilson1442/Webhook-Hub/internal/platform/config"
	"github.com/wilson1442/Webhook-Hub/internal/platform/integrations"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
	"github.com/wilson1442/Webhook-Hub/internal/platform/repositories"
	"github.com/wilson1442/Webhook-Hub/internal/platform/secrets"
)

type stubClient struct {
	err error
}

func (s *stubClient) AddContact(ctx context.Context, req *integrations.ContactRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "Contact added successfully", nil
}

func (s *stubClient) SendEmail(ctx context.Context, req *integrations.MailRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "Email sent successfully", nil
}

type apiEnv struct {
	router    http.Handler
	tokens    *auth.TokenService
	endpoints *repositories.EndpointRepository
	logs      *repositories.LogRepository
	client    *stubClient
}

func setupAPI(t *testing.T) *apiEnv {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE webhook_endpoints (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		path TEXT UNIQUE NOT NULL,
		secret_token TEXT NOT NULL,
		mode TEXT NOT NULL,
		integration TEXT NOT NULL DEFAULT 'sendgrid',
		field_mapping TEXT NOT NULL DEFAULT '{}',
		sendgrid_list_id TEXT,
		sendgrid_template_id TEXT,
		email_from TEXT,
		email_from_name TEXT,
		enabled INTEGER NOT NULL DEFAULT 1,
		created_by TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE webhook_logs (
		id TEXT PRIMARY KEY,
		endpoint_id TEXT NOT NULL,
		endpoint_name TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		status TEXT NOT NULL,
		source_ip TEXT NOT NULL DEFAULT '',
		payload TEXT,
		payload_summary TEXT NOT NULL DEFAULT '',
		response_message TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE integrations (
		id TEXT PRIMARY KEY,
		service_name TEXT UNIQUE NOT NULL,
		credentials TEXT NOT NULL DEFAULT '{}',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	sealer, err := secrets.NewSealer("b8a9c9f2e1d4a7b6c5d8e9f0a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0")
	if err != nil {
		t.Fatalf("Failed to create sealer: %v", err)
	}

	endpointRepo := repositories.NewEndpointRepository(db)
	logRepo := repositories.NewLogRepository(db)
	integrationRepo := repositories.NewIntegrationRepository(db, sealer)

	if err := integrationRepo.Upsert(&models.Integration{
		ServiceName: models.ServiceSendGrid,
		Credentials: models.Credentials{"api_key": "SG.key", "sender_email": "noreply@acme.test"},
		IsActive:    true,
	}); err != nil {
		t.Fatalf("Failed to seed integration: %v", err)
	}

	client := &stubClient{}
	engine := dispatch.NewEngine(endpointRepo, logRepo, integrationRepo,
		func(*models.Integration) (integrations.Client, error) { return client, nil },
		config.DispatchConfig{Timeout: time.Second, SummaryMaxLen: 500, ResponseMaxLen: 2000})

	tokenSvc := auth.NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})

	router := NewRouter(&Dependencies{
		HookHandler:        handlers.NewHookHandler(engine),
		EndpointHandler:    handlers.NewEndpointHandler(endpointRepo),
		LogHandler:         handlers.NewLogHandler(logRepo, engine),
		IntegrationHandler: handlers.NewIntegrationHandler(integrationRepo),
		DashboardHandler:   handlers.NewDashboardHandler(endpointRepo, logRepo),
		HealthHandler:      handlers.NewHealthHandler(db),
		AuthMiddleware:     middleware.NewAuthMiddleware(tokenSvc),
		RateLimiter:        middleware.NewRateLimiter(config.RateLimitConfig{}),
	})

	return &apiEnv{
		router:    router,
		tokens:    tokenSvc,
		endpoints: endpointRepo,
		logs:      logRepo,
		client:    client,
	}
}

func (env *apiEnv) request(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	return w
}

func (env *apiEnv) adminToken(t *testing.T) string {
	token, err := env.tokens.GenerateAccessToken("usr_1", "admin", "admin")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

func (env *apiEnv) viewerToken(t *testing.T) string {
	token, err := env.tokens.GenerateAccessToken("usr_2", "viewer", "viewer")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

func TestRouter_AdminSurfaceRequiresAuth(t *testing.T) {
	env := setupAPI(t)

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/webhooks/endpoints"},
		{"GET", "/api/v1/webhooks/logs"},
		{"GET", "/api/v1/integrations"},
		{"GET", "/api/v1/dashboard/stats"},
	}

	for _, tt := range tests {
		w := env.request(t, tt.method, tt.path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tt.method, tt.path, w.Code)
		}
	}
}

func TestRouter_EndpointLifecycle(t *testing.T) {
	env := setupAPI(t)
	token := env.adminToken(t)

	body := `{
		"name": "CRM Signup",
		"path": "crm-signup",
		"mode": "add_contact",
		"field_mapping": {"email": "email", "first_name": "firstname"},
		"sendgrid_list_id": "list_9"
	}`

	w := env.request(t, "POST", "/api/v1/webhooks/endpoints", token, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.Endpoint
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if created.SecretToken == "" {
		t.Error("Expected generated secret token in create response")
	}

	// Duplicate path rejected.
	w = env.request(t, "POST", "/api/v1/webhooks/endpoints", token, body)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 on duplicate path, got %d", w.Code)
	}

	// Invalid mode rejected before hitting the store.
	w = env.request(t, "POST", "/api/v1/webhooks/endpoints", token,
		`{"name":"x","path":"other","mode":"broadcast"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 on invalid mode, got %d", w.Code)
	}

	w = env.request(t, "GET", "/api/v1/webhooks/endpoints/"+created.ID, token, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	w = env.request(t, "DELETE", "/api/v1/webhooks/endpoints/"+created.ID, token, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
}

func TestRouter_SamplePayload(t *testing.T) {
	env := setupAPI(t)
	token := env.adminToken(t)

	w := env.request(t, "POST", "/api/v1/webhooks/endpoints", token, `{
		"name": "Signup",
		"path": "signup",
		"mode": "add_contact",
		"field_mapping": {"email": "email", "first_name": "firstname"}
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	var created models.Endpoint
	json.Unmarshal(w.Body.Bytes(), &created)

	w = env.request(t, "GET", "/api/v1/webhooks/endpoints/"+created.ID+"/sample", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var sample map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &sample); err != nil {
		t.Fatalf("Failed to decode sample: %v", err)
	}
	if sample["email"] != "test@example.com" {
		t.Errorf("Expected email placeholder, got %v", sample["email"])
	}
	if sample["firstname"] != "John" {
		t.Errorf("Expected first name placeholder, got %v", sample["firstname"])
	}
}

func TestRouter_HookDispatch(t *testing.T) {
	env := setupAPI(t)
	token := env.adminToken(t)

	w := env.request(t, "POST", "/api/v1/webhooks/endpoints", token, `{
		"name": "Signup",
		"path": "signup",
		"mode": "add_contact",
		"field_mapping": {"email": "email"}
	}`)
	var created models.Endpoint
	json.Unmarshal(w.Body.Bytes(), &created)

	hook := func(secret, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("POST", "/api/hooks/signup", strings.NewReader(body))
		if secret != "" {
			r.Header.Set(handlers.TokenHeader, secret)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, r)
		return w
	}

	// Wrong token is a generic 401.
	if w := hook("wrong", `{"email":"a@b.com"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}

	// Malformed JSON is rejected before dispatch.
	if w := hook(created.SecretToken, `{"email":`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}

	// Missing mandatory field is a translation failure.
	if w := hook(created.SecretToken, `{"name":"Jo"}`); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", w.Code)
	}

	// Happy path.
	w2 := hook(created.SecretToken, `{"email":"a@b.com"}`)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	var result dispatch.Result
	if err := json.Unmarshal(w2.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.Status != models.StatusSuccess || result.LogID == "" {
		t.Errorf("Unexpected result: %+v", result)
	}

	// Downstream failure surfaces as 502.
	env.client.err = &integrations.StatusError{StatusCode: 500, Body: "boom"}
	if w := hook(created.SecretToken, `{"email":"a@b.com"}`); w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", w.Code)
	}
}

func TestRouter_RetryConflictOnSuccessEntry(t *testing.T) {
	env := setupAPI(t)
	token := env.adminToken(t)

	w := env.request(t, "POST", "/api/v1/webhooks/endpoints", token, `{
		"name": "Signup",
		"path": "signup",
		"mode": "add_contact",
		"field_mapping": {"email": "email"}
	}`)
	var created models.Endpoint
	json.Unmarshal(w.Body.Bytes(), &created)

	r := httptest.NewRequest("POST", "/api/hooks/signup", strings.NewReader(`{"email":"a@b.com"}`))
	r.Header.Set(handlers.TokenHeader, created.SecretToken)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, r)

	var result dispatch.Result
	json.Unmarshal(rec.Body.Bytes(), &result)

	w = env.request(t, "POST", "/api/v1/webhooks/logs/"+result.LogID+"/retry", token, "")
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 retrying a success entry, got %d", w.Code)
	}

	w = env.request(t, "POST", "/api/v1/webhooks/logs/log_missing/retry", token, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown entry, got %d", w.Code)
	}
}

func TestRouter_PurgeRequiresAdminRole(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "DELETE", "/api/v1/webhooks/logs", env.viewerToken(t), "")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin purge, got %d", w.Code)
	}

	w = env.request(t, "DELETE", "/api/v1/webhooks/logs", env.adminToken(t), "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for admin purge, got %d", w.Code)
	}
}

func TestRouter_IntegrationsMasked(t *testing.T) {
	env := setupAPI(t)
	token := env.adminToken(t)

	w := env.request(t, "GET", "/api/v1/integrations", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	if strings.Contains(w.Body.String(), "SG.key") {
		t.Error("Credential values must be masked in list responses")
	}
	if !strings.Contains(w.Body.String(), "SG.k...") {
		t.Errorf("Expected masked prefix in response: %s", w.Body.String())
	}
}

func TestRouter_Health(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"healthy"`) {
		t.Errorf("Unexpected health body: %s", w.Body.String())
	}
}
