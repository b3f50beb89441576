package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/moltworks/rapport/internal/config"
	"github.com/moltworks/rapport/internal/engine"
	"github.com/moltworks/rapport/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	eng := engine.New(db, nil, config.Default())
	t.Cleanup(func() {
		eng.Stop()
		db.Close()
	})
	return New(db, eng, "test-version")
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	var decoded map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s: decode body: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, decoded
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	w, body := doJSON(t, srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
}

func TestRecordInteraction(t *testing.T) {
	srv := testServer(t)

	payload := `{"from":"alice","to":"MaxAnvil","kind":"reply","content":"hello","post_ref":"p1","observed_at":1735689600000}`
	w, body := doJSON(t, srv, "POST", "/api/interactions", payload)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", w.Code, http.StatusCreated, w.Body.String())
	}
	if body["inserted"] != true {
		t.Errorf("inserted = %v, want true", body["inserted"])
	}
	if body["account"] != "alice" {
		t.Errorf("account = %v, want alice", body["account"])
	}

	// Duplicate delivery: accepted, not created.
	w, body = doJSON(t, srv, "POST", "/api/interactions", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d, want %d", w.Code, http.StatusOK)
	}
	if body["inserted"] != false {
		t.Errorf("duplicate inserted = %v, want false", body["inserted"])
	}
}

func TestRecordInteractionRejectsBadKind(t *testing.T) {
	srv := testServer(t)

	// The rejection message quotes the kind; the body must still be
	// valid JSON with the api content type.
	w, body := doJSON(t, srv, "POST", "/api/interactions",
		`{"from":"alice","to":"MaxAnvil","kind":"poke"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "poke") {
		t.Errorf("error = %q, want it to name the rejected kind", msg)
	}

	w, _ = doJSON(t, srv, "POST", "/api/interactions", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed json status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetContext(t *testing.T) {
	srv := testServer(t)

	w, body := doJSON(t, srv, "GET", "/api/context/nobody", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	ctx, _ := body["context"].(string)
	if !strings.Contains(ctx, "Unknown account @nobody") {
		t.Errorf("unexpected context for unknown account: %q", ctx)
	}
}

func TestProfileLifecycle(t *testing.T) {
	srv := testServer(t)

	// Unknown profile is a 404.
	w, _ := doJSON(t, srv, "GET", "/api/profiles/alice", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	for i := 0; i < 3; i++ {
		payload := fmt.Sprintf(`{"from":"alice","to":"MaxAnvil","kind":"reply","content":"msg","post_ref":"p%d","observed_at":%d}`,
			i, 1735689600000+int64(i)*60000)
		if w, _ := doJSON(t, srv, "POST", "/api/interactions", payload); w.Code != http.StatusCreated {
			t.Fatalf("record %d: status = %d", i, w.Code)
		}
	}

	w, body := doJSON(t, srv, "GET", "/api/profiles/alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body["tier"] != float64(1) {
		t.Errorf("tier = %v, want 1", body["tier"])
	}
	if body["total_interactions"] != float64(3) {
		t.Errorf("total_interactions = %v, want 3", body["total_interactions"])
	}
}

func TestSetClassification(t *testing.T) {
	srv := testServer(t)

	w, body := doJSON(t, srv, "POST", "/api/profiles/spambot/classification",
		`{"classification":"spammer"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if body["classification"] != "spammer" {
		t.Errorf("classification = %v, want spammer", body["classification"])
	}

	w, body = doJSON(t, srv, "POST", "/api/profiles/spambot/classification",
		`{"classification":"vip"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown label status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "vip") {
		t.Errorf("error = %q, want it to name the rejected label", msg)
	}
}

func TestPinEndpoint(t *testing.T) {
	srv := testServer(t)

	w, body := doJSON(t, srv, "POST", "/api/profiles/mentor/pin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if body["tier"] != float64(4) {
		t.Errorf("tier = %v, want 4", body["tier"])
	}

	w, body = doJSON(t, srv, "GET", "/api/profiles/mentor", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["classification"] != "inner_circle" {
		t.Errorf("classification = %v, want inner_circle", body["classification"])
	}
}

func TestExportEndpoint(t *testing.T) {
	srv := testServer(t)

	w, body := doJSON(t, srv, "GET", "/api/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["total_profiles"] != float64(0) {
		t.Errorf("total_profiles = %v, want 0", body["total_profiles"])
	}
	if _, ok := body["generated_at"]; !ok {
		t.Error("expected generated_at in export")
	}
}

func TestSweepEndpoint(t *testing.T) {
	srv := testServer(t)

	w, body := doJSON(t, srv, "POST", "/api/sweep", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if _, ok := body["flagged"]; !ok {
		t.Error("expected flagged list in sweep response")
	}
}

func TestEventsEndpoint(t *testing.T) {
	srv := testServer(t)

	w, body := doJSON(t, srv, "GET", "/api/events", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if _, ok := body["events"]; !ok {
		t.Error("expected events key")
	}
}
