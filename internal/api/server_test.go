package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/ember-ui/internal/assets"
	"github.com/nerrad567/ember-ui/internal/control"
	"github.com/nerrad567/ember-ui/internal/infrastructure/config"
	"github.com/nerrad567/ember-ui/internal/infrastructure/logging"
)

const (
	testPanelPassword = "ember-panel"
	testJWTSecret     = "test-secret-key"
)

// newTestServer builds a server backed by an in-memory database and the
// embedded asset bundle, with the router assembled but no listener.
func newTestServer(t *testing.T, auth bool) (*Server, http.Handler) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE controls (
			id INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			label TEXT NOT NULL,
			value REAL NOT NULL DEFAULT 0,
			min REAL NOT NULL DEFAULT 0,
			max REAL NOT NULL DEFAULT 100,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	registry := control.NewRegistry(control.NewSQLiteRepository(db))

	bundle, err := assets.Load()
	if err != nil {
		t.Fatalf("failed to load asset bundle: %v", err)
	}

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")

	srv, err := New(Deps{
		Server: config.ServerConfig{},
		Assets: config.AssetsConfig{MaxAge: 3600},
		WS: config.WebSocketConfig{
			MaxMessageSize: 4096,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{
			Auth:          auth,
			PanelPassword: testPanelPassword,
			JWT:           config.JWTConfig{Secret: testJWTSecret, AccessTokenTTL: 15},
		},
		Logger:   logger,
		Registry: registry,
		Bundle:   bundle,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.hub = NewHub(srv.wsCfg, logger)
	go srv.hub.Run(ctx)

	return srv, srv.buildRouter()
}

// seedControl inserts a control directly through the registry.
func seedControl(t *testing.T, srv *Server, c *control.Control) {
	t.Helper()
	if err := srv.registry.Create(context.Background(), c); err != nil {
		t.Fatalf("failed to seed control: %v", err)
	}
}

// doJSON performs a request with an optional JSON body and decodes the
// JSON response into out (when out is non-nil).
func doJSON(t *testing.T, router http.Handler, method, path string, body any, token string, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{Type: control.TypeSlider, Label: "Dimmer"})

	var body map[string]any
	rec := doJSON(t, router, http.MethodGet, "/api/v1/health", nil, "", &body)

	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version = %v, want test", body["version"])
	}
	if body["controls"] != float64(1) {
		t.Errorf("controls = %v, want 1", body["controls"])
	}
}

func TestListControls(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{Type: control.TypeSlider, Label: "Dimmer", Value: 25})
	seedControl(t, srv, &control.Control{Type: control.TypeSwitch, Label: "Lamp"})

	var body listControlsResponse
	rec := doJSON(t, router, http.MethodGet, "/api/v1/controls", nil, "", &body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body.Count != 2 || len(body.Controls) != 2 {
		t.Errorf("count = %d, controls = %d, want 2 each", body.Count, len(body.Controls))
	}
}

func TestListControls_Empty(t *testing.T) {
	_, router := newTestServer(t, false)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/controls", nil, "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"controls":[]`) {
		t.Errorf("empty list should serialise as [], got %s", rec.Body.String())
	}
}

func TestGetControl(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{ID: 4, Type: control.TypeSlider, Label: "Dimmer", Value: 75})

	var got control.Control
	rec := doJSON(t, router, http.MethodGet, "/api/v1/controls/4", nil, "", &got)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.ID != 4 || got.Value != 75 {
		t.Errorf("control = %+v, want ID=4 Value=75", got)
	}
}

func TestGetControl_NotFound(t *testing.T) {
	_, router := newTestServer(t, false)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/controls/99", nil, "", nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetControl_BadID(t *testing.T) {
	_, router := newTestServer(t, false)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/controls/lamp", nil, "", nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateControl(t *testing.T) {
	_, router := newTestServer(t, false)

	var got control.Control
	rec := doJSON(t, router, http.MethodPost, "/api/v1/controls",
		map[string]any{"type": "slider", "label": "Kitchen Dimmer", "value": 40}, "", &got)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if got.ID == 0 {
		t.Error("created control should be assigned an ID")
	}
	if got.Min != 0 || got.Max != 100 {
		t.Errorf("slider range = [%v, %v], want defaults [0, 100]", got.Min, got.Max)
	}
}

func TestCreateControl_DuplicateID(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{ID: 3, Type: control.TypeSwitch, Label: "Lamp"})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/controls",
		map[string]any{"id": 3, "type": "switch", "label": "Other Lamp"}, "", nil)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCreateControl_InvalidType(t *testing.T) {
	_, router := newTestServer(t, false)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/controls",
		map[string]any{"type": "dial", "label": "Volume"}, "", nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestUpdateControl_PartialPatch(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{ID: 2, Type: control.TypeSlider, Label: "Dimmer", Value: 60})

	var got control.Control
	rec := doJSON(t, router, http.MethodPatch, "/api/v1/controls/2",
		map[string]any{"label": "Hall Dimmer"}, "", &got)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got.Label != "Hall Dimmer" {
		t.Errorf("label = %q, want Hall Dimmer", got.Label)
	}
	if got.Value != 60 {
		t.Errorf("value = %v, want 60 (absent fields keep current values)", got.Value)
	}
}

func TestDeleteControl(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{ID: 5, Type: control.TypeButton, Label: "Doorbell"})

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/controls/5", nil, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/controls/5", nil, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestSetControlValue_ClampsToRange(t *testing.T) {
	srv, router := newTestServer(t, false)
	seedControl(t, srv, &control.Control{ID: 1, Type: control.TypeSlider, Label: "Dimmer", Min: 0, Max: 100})

	var got control.Control
	rec := doJSON(t, router, http.MethodPut, "/api/v1/controls/1/value",
		setValueRequest{Value: 150}, "", &got)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got.Value != 100 {
		t.Errorf("value = %v, want clamped to 100", got.Value)
	}
}

func TestSetControlValue_NotFound(t *testing.T) {
	_, router := newTestServer(t, false)

	rec := doJSON(t, router, http.MethodPut, "/api/v1/controls/42/value",
		setValueRequest{Value: 1}, "", nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	_, router := newTestServer(t, true)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		loginRequest{Password: "wrong"}, "", nil)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLogin_IssuesToken(t *testing.T) {
	_, router := newTestServer(t, true)

	var body loginResponse
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		loginRequest{Password: testPanelPassword}, "", &body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if body.AccessToken == "" || body.TokenType != "Bearer" {
		t.Errorf("response = %+v, want bearer token", body)
	}
	if body.ExpiresIn != 15*60 {
		t.Errorf("expires_in = %d, want %d", body.ExpiresIn, 15*60)
	}
}

func TestAuth_MutatingRoutesRequireToken(t *testing.T) {
	_, router := newTestServer(t, true)

	// No token: rejected.
	rec := doJSON(t, router, http.MethodPost, "/api/v1/controls",
		map[string]any{"type": "switch", "label": "Lamp"}, "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create status = %d, want 401", rec.Code)
	}

	// With token from login: accepted.
	var login loginResponse
	doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		loginRequest{Password: testPanelPassword}, "", &login)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/controls",
		map[string]any{"type": "switch", "label": "Lamp"}, login.AccessToken, nil)
	if rec.Code != http.StatusCreated {
		t.Errorf("authenticated create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

func TestAuth_GarbageTokenRejected(t *testing.T) {
	_, router := newTestServer(t, true)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/controls",
		map[string]any{"type": "switch", "label": "Lamp"}, "not-a-jwt", nil)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_DisabledPassesThrough(t *testing.T) {
	_, router := newTestServer(t, false)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/controls",
		map[string]any{"type": "switch", "label": "Lamp"}, "", nil)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201 with auth disabled", rec.Code)
	}
}

func TestWSTicket_Minted(t *testing.T) {
	srv, router := newTestServer(t, false)

	var body map[string]any
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/ws-ticket", nil, "", &body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	ticket, _ := body["ticket"].(string)
	if ticket == "" {
		t.Fatal("ticket missing from response")
	}
	if !srv.tickets.consume(ticket) {
		t.Error("minted ticket should be consumable")
	}
	if srv.tickets.consume(ticket) {
		t.Error("tickets must be single-use")
	}
}

func TestServesPanelAtRoot(t *testing.T) {
	_, router := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
}

func TestServesSliderScript(t *testing.T) {
	_, router := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/slider.min.js", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if enc := rec.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", enc)
	}
}

func TestParseCommandPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    float64
		wantErr bool
	}{
		{"bare integer", "75", 75, false},
		{"bare float", "12.5", 12.5, false},
		{"bare with whitespace", "  42\n", 42, false},
		{"json object", `{"value": 30}`, 30, false},
		{"json extra fields", `{"value": 1, "source": "scene"}`, 1, false},
		{"garbage", "on", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommandPayload([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCommandPayload(%q) error = %v, wantErr %v", tt.payload, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseCommandPayload(%q) = %v, want %v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestRequestIDPropagated(t *testing.T) {
	_, router := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("X-Request-ID = %q, want abc123", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, router := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/controls", nil)
	req.Header.Set("Origin", "http://panel.local")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Access-Control-Allow-Origin = %q, want origin echoed", got)
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
	bundle, err := assets.Load()
	if err != nil {
		t.Fatalf("failed to load asset bundle: %v", err)
	}

	tests := []struct {
		name string
		deps Deps
	}{
		{"missing logger", Deps{Registry: &control.Registry{}, Bundle: bundle}},
		{"missing registry", Deps{Logger: logger, Bundle: bundle}},
		{"missing bundle", Deps{Logger: logger, Registry: &control.Registry{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() should reject missing dependencies")
			}
		})
	}
}
