package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/telephasma/telephasma/internal/config"
	"github.com/telephasma/telephasma/internal/database"
	"github.com/telephasma/telephasma/internal/platform/memory"
	"github.com/telephasma/telephasma/internal/session"
)

// serverFixture builds the graph used across handler tests.
func serverFixture() *memory.Fixture {
	return &memory.Fixture{
		Authorized:        false,
		TwoFactorPassword: "hunter2",
		Users: []memory.FixtureUser{
			{ID: 1, Username: "alice", FirstName: "Alice", Bio: "backup @alice_backup", Gifts: []memory.FixtureGift{
				{ID: 10, SenderID: 3, Stars: 50},
			}},
			{ID: 2, Username: "bob", FirstName: "Bob"},
			{ID: 3, Username: "carol", FirstName: "Carol", Bio: "ads via @carol_side"},
			{ID: 4, Username: "helperbot", FirstName: "Helper", Bot: true},
			{ID: 5, FirstName: "Ghost", Deleted: true},
		},
		Chats: []memory.FixtureChat{
			{ID: 500, Username: "lair", Title: "Lair", Kind: "megagroup", Members: []int64{1, 2, 4, 5}},
			{ID: 600, DialogID: -1001234, Username: "newsfeed", Title: "News", Kind: "channel"},
		},
		Dialogs: []int64{500, 600},
	}
}

type testServer struct {
	srv    *Server
	client *memory.Client
	store  *session.Store
	db     *database.ScanDB
}

// newTestServer wires a Server over the fixture client with history and
// session storage in temp directories.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Delay = 0

	client := memory.New(serverFixture())

	store, err := session.Open(t.TempDir(), "test-api-hash")
	if err != nil {
		t.Fatalf("failed to open session store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open scan db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(cfg, client,
		WithSessionStore(store),
		WithScanDB(db),
		WithLogger(logger),
	)

	return &testServer{srv: srv, client: client, store: store, db: db}
}

// doJSON performs a request with an optional JSON body and decodes the
// JSON response.
func doJSON(t *testing.T, handler http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	code, body := doJSON(t, ts.srv.Handler(), http.MethodGet, "/health", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
	if body["connected"] != false {
		t.Errorf("expected connected=false before login, got %v", body["connected"])
	}
}

func TestLoginAndVerifyFlow(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	h := ts.srv.Handler()

	code, body := doJSON(t, h, http.MethodPost, "/api/login", map[string]string{"phone": "+15550100"})
	if code != http.StatusOK || body["status"] != "code_sent" {
		t.Fatalf("expected code_sent, got %d %v", code, body)
	}

	// Without the two-factor password the platform demands it.
	code, body = doJSON(t, h, http.MethodPost, "/api/verify", map[string]string{
		"phone": "+15550100", "code": "12345",
	})
	if code != http.StatusOK || body["status"] != "2fa_required" {
		t.Fatalf("expected 2fa_required, got %d %v", code, body)
	}

	// A wrong password is rejected.
	code, _ = doJSON(t, h, http.MethodPost, "/api/verify", map[string]string{
		"phone": "+15550100", "code": "12345", "password": "wrong",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", code)
	}

	code, body = doJSON(t, h, http.MethodPost, "/api/verify", map[string]string{
		"phone": "+15550100", "code": "12345", "password": "hunter2",
	})
	if code != http.StatusOK || body["status"] != "authorized" {
		t.Fatalf("expected authorized, got %d %v", code, body)
	}

	// The session must be persisted for the next start.
	key, err := ts.store.AuthKey(t.Context(), "+15550100")
	if err != nil {
		t.Fatalf("failed to read stored session: %v", err)
	}
	if len(key) == 0 {
		t.Error("expected a persisted auth key after verify")
	}
}

func TestLoginMissingPhone(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	code, _ := doJSON(t, ts.srv.Handler(), http.MethodPost, "/api/login", map[string]string{})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a phone number, got %d", code)
	}
}

func TestDialogsWithCacheFallback(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	h := ts.srv.Handler()

	code, body := doJSON(t, h, http.MethodGet, "/api/dialogs", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["cached"] != false {
		t.Errorf("expected a live answer, got %v", body)
	}
	dialogs, ok := body["dialogs"].([]any)
	if !ok || len(dialogs) != 2 {
		t.Fatalf("expected 2 dialogs, got %v", body["dialogs"])
	}

	// With the platform down, the cache from the previous call answers.
	ts.client.FailNext("recent_dialogs", errSentinel("platform down"))
	code, body = doJSON(t, h, http.MethodGet, "/api/dialogs", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200 from cache, got %d", code)
	}
	if body["cached"] != true {
		t.Errorf("expected a cached answer, got %v", body)
	}
	dialogs, ok = body["dialogs"].([]any)
	if !ok || len(dialogs) != 2 {
		t.Fatalf("expected 2 cached dialogs, got %v", body["dialogs"])
	}
}

func TestChatMembersEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	code, body := doJSON(t, ts.srv.Handler(), http.MethodGet, "/api/chat/lair/members", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	members, ok := body["members"].([]any)
	if !ok {
		t.Fatalf("expected members array, got %v", body)
	}
	// Deleted accounts are dropped; bots are listed but flagged.
	if len(members) != 3 {
		t.Errorf("expected 3 members, got %d: %v", len(members), members)
	}

	code, _ = doJSON(t, ts.srv.Handler(), http.MethodGet, "/api/chat/no_such_chat/members", nil)
	if code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown chat, got %d", code)
	}
}

func TestCommonGroupsEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	code, body := doJSON(t, ts.srv.Handler(), http.MethodGet, "/api/user/@alice/common-groups", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	chats, ok := body["chats"].([]any)
	if !ok || len(chats) != 1 {
		t.Fatalf("expected 1 common chat, got %v", body["chats"])
	}
}

func TestStopScanEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	h := ts.srv.Handler()

	code, _ := doJSON(t, h, http.MethodPost, "/api/stop-scan", map[string]string{"run_id": "nope"})
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown run, got %d", code)
	}

	code, body := doJSON(t, h, http.MethodPost, "/api/stop-scan", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["stopped"] != float64(0) {
		t.Errorf("expected zero stopped runs, got %v", body["stopped"])
	}
}

func TestRunsAndReportEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	h := ts.srv.Handler()

	if err := ts.db.CreateRun(t.Context(), &database.Run{ID: "run-1", Seed: "@lair", MaxDepth: 1}); err != nil {
		t.Fatalf("failed to seed run: %v", err)
	}

	code, body := doJSON(t, h, http.MethodGet, "/api/runs", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	runs, ok := body["runs"].([]any)
	if !ok || len(runs) != 1 {
		t.Fatalf("expected 1 run, got %v", body["runs"])
	}

	req := httptest.NewRequest(http.MethodGet, "/api/report/run-1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "# Telephasma Scan Report") {
		t.Errorf("expected a markdown report, got %q", rec.Body.String()[:min(80, rec.Body.Len())])
	}

	code, _ = doJSON(t, h, http.MethodGet, "/api/report/unknown", nil)
	if code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown run, got %d", code)
	}
}

func TestCORSHeaders(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/dialogs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected wildcard origin, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

// errSentinel is a trivial error type for failure injection.
type errSentinel string

func (e errSentinel) Error() string { return string(e) }
