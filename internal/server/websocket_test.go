package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/telephasma/telephasma/internal/database"
)

// wsFrame mirrors the envelope sent by the scan socket.
type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// dialScan opens a scan socket against a test server.
func dialScan(t *testing.T, httpURL, path string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(httpURL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", wsURL, err)
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// readFrames reads frames until a status frame or the deadline.
func readFrames(t *testing.T, conn *websocket.Conn) []wsFrame {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var frames []wsFrame
	for {
		var f wsFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read failed before status frame: %v (got %d frames)", err, len(frames))
		}
		frames = append(frames, f)
		if f.Type == "status" {
			return frames
		}
	}
}

func frameTypes(frames []wsFrame) []string {
	types := make([]string, len(frames))
	for i, f := range frames {
		types[i] = f.Type
	}
	return types
}

func TestScanWebSocketStreamsRun(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	httpSrv := httptest.NewServer(ts.srv.Handler())
	defer httpSrv.Close()

	conn := dialScan(t, httpSrv.URL, "/ws/scan/lair?depth=1&delay_ms=0")
	frames := readFrames(t, conn)

	types := frameTypes(frames)
	if types[0] != "run_started" {
		t.Fatalf("expected run_started first, got %v", types)
	}

	var started struct {
		RunID string `json:"run_id"`
		Seed  string `json:"seed"`
	}
	if err := json.Unmarshal(frames[0].Data, &started); err != nil {
		t.Fatalf("failed to decode run_started: %v", err)
	}
	if started.RunID == "" || started.Seed != "lair" {
		t.Errorf("unexpected run_started payload: %+v", started)
	}

	// Alice has links and gifts; carol arrives through alice's gift edge.
	var found, details, gifts int
	for _, ty := range types {
		switch ty {
		case "user_found":
			found++
		case "user_detail":
			details++
		case "user_gifts":
			gifts++
		}
	}
	if found != 2 {
		t.Errorf("expected 2 user_found frames, got %d: %v", found, types)
	}
	if gifts != 1 {
		t.Errorf("expected 1 user_gifts frame, got %d: %v", gifts, types)
	}
	if details < 2 {
		t.Errorf("expected at least 2 user_detail frames, got %d: %v", details, types)
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(frames[len(frames)-1].Data, &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.Status != database.RunStatusCompleted {
		t.Errorf("expected completed, got %q", status.Status)
	}

	// The run is in the history with its findings and edges.
	run, err := ts.db.GetRun(t.Context(), started.RunID)
	if err != nil || run == nil {
		t.Fatalf("expected stored run, got %v, %v", run, err)
	}
	if run.Status != database.RunStatusCompleted {
		t.Errorf("expected stored status completed, got %q", run.Status)
	}
	findings, err := ts.db.RunFindings(t.Context(), started.RunID)
	if err != nil {
		t.Fatalf("failed to read findings: %v", err)
	}
	if len(findings) != 2 {
		t.Errorf("expected 2 stored findings, got %d", len(findings))
	}
	edges, err := ts.db.RunEdges(t.Context(), started.RunID)
	if err != nil {
		t.Fatalf("failed to read edges: %v", err)
	}
	if len(edges) != 1 {
		t.Errorf("expected 1 stored edge, got %d", len(edges))
	}
}

func TestScanWebSocketExplicitTargets(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	httpSrv := httptest.NewServer(ts.srv.Handler())
	defer httpSrv.Close()

	conn := dialScan(t, httpSrv.URL, "/ws/scan/ignored?targets=@carol&depth=0&delay_ms=0")
	frames := readFrames(t, conn)

	types := frameTypes(frames)
	var found int
	for _, ty := range types {
		if ty == "user_found" {
			found++
		}
	}
	if found != 1 {
		t.Errorf("expected only carol, got %v", types)
	}
}

func TestScanWebSocketNonRecursive(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	httpSrv := httptest.NewServer(ts.srv.Handler())
	defer httpSrv.Close()

	// recursive=false wins over the depth parameter, so carol is never
	// reached through alice's gift edge.
	conn := dialScan(t, httpSrv.URL, "/ws/scan/lair?depth=2&recursive=false&delay_ms=0")
	frames := readFrames(t, conn)

	types := frameTypes(frames)
	var found int
	for _, ty := range types {
		if ty == "user_found" {
			found++
		}
	}
	if found != 1 {
		t.Errorf("expected only the seed member with links, got %v", types)
	}
}

func TestScanWebSocketSeedFailure(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	httpSrv := httptest.NewServer(ts.srv.Handler())
	defer httpSrv.Close()

	conn := dialScan(t, httpSrv.URL, "/ws/scan/no_such_chat?delay_ms=0")
	frames := readFrames(t, conn)

	types := frameTypes(frames)
	if len(types) != 3 || types[1] != "error" {
		t.Fatalf("expected run_started, error, status; got %v", types)
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(frames[len(frames)-1].Data, &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.Status != database.RunStatusFailed {
		t.Errorf("expected failed, got %q", status.Status)
	}
}

func TestScanWebSocketStopEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	httpSrv := httptest.NewServer(ts.srv.Handler())
	defer httpSrv.Close()

	// A generous delay keeps the run alive long enough to stop it.
	conn := dialScan(t, httpSrv.URL, "/ws/scan/lair?depth=2&delay_ms=200")

	var first wsFrame
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("failed to read run_started: %v", err)
	}
	var started struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(first.Data, &started); err != nil {
		t.Fatalf("failed to decode run_started: %v", err)
	}

	code, body := doJSON(t, ts.srv.Handler(), http.MethodPost, "/api/stop-scan", map[string]string{"run_id": started.RunID})
	if code != http.StatusOK {
		t.Fatalf("stop request failed: %d %v", code, body)
	}

	frames := readFrames(t, conn)
	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(frames[len(frames)-1].Data, &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.Status != database.RunStatusStopped {
		t.Errorf("expected stopped, got %q", status.Status)
	}
}
