package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"course-portal/internal/infra/memory"

	"github.com/gorilla/websocket"
)

func TestWatchStreamsProfileUpdates(t *testing.T) {
	store := memory.NewProfileStore()
	srv := newTestServer(t, store, nil)

	status, _, _ := do(t, http.MethodPost, srv.URL+"/api/users", `{"email":"a@x.com","fullName":"Ann"}`)
	if status != http.StatusOK {
		t.Fatalf("seed upsert: status %d", status)
	}

	u := "ws" + srv.URL[len("http"):] + "/api/users/a@x.com/watch"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the current record first.
	payload := readNext(conn, t, "profile")
	if payload["fullName"] != "Ann" {
		t.Fatalf("expected current record, got %v", payload)
	}

	status, _, _ = do(t, http.MethodPost, srv.URL+"/api/users", `{"email":"a@x.com","fullName":"Ann B"}`)
	if status != http.StatusOK {
		t.Fatalf("update upsert: status %d", status)
	}
	payload = readNext(conn, t, "profile")
	if payload["fullName"] != "Ann B" {
		t.Fatalf("expected updated record, got %v", payload)
	}
}

func TestWatchIgnoresOtherEmails(t *testing.T) {
	srv := newTestServer(t, memory.NewProfileStore(), nil)

	u := "ws" + srv.URL[len("http"):] + "/api/users/a@x.com/watch"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	do(t, http.MethodPost, srv.URL+"/api/users", `{"email":"b@x.com"}`)
	do(t, http.MethodPost, srv.URL+"/api/users", `{"email":"a@x.com","fullName":"mine"}`)

	payload := readNext(conn, t, "profile")
	if payload["email"] != "a@x.com" {
		t.Fatalf("received another learner's record: %v", payload)
	}
}

func TestWatchRequiresUpgrade(t *testing.T) {
	srv := newTestServer(t, memory.NewProfileStore(), nil)

	status, _, _ := do(t, http.MethodGet, srv.URL+"/api/users/a@x.com/watch", "")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for plain GET, got %d", status)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) map[string]any {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	var payload map[string]any
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload
}
