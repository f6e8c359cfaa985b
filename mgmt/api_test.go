package mgmt

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/redveil/redveil/config"
	"github.com/redveil/redveil/dbopen"
	"github.com/redveil/redveil/store"
)

func testEnv(t *testing.T) (*store.Store, http.Handler) {
	t.Helper()
	st := store.OpenDB(dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema)))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return st, NewRouter(st, config.Default(), logger)
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBlockedLifecycle(t *testing.T) {
	_, router := testEnv(t)

	rec := doJSON(t, router, http.MethodPost, "/api/blocked", `{"name":"r/Golang"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: got %d, body %s", rec.Code, rec.Body)
	}
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created["channel"] != "golang" {
		t.Errorf("stored channel: got %q, want %q", created["channel"], "golang")
	}

	// Same channel in different notation is a duplicate.
	rec = doJSON(t, router, http.MethodPost, "/api/blocked", `{"name":"GOLANG"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate add: got %d, want 409", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/blocked", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got %d", rec.Code)
	}
	var list struct {
		Channels []string `json:"channels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Channels) != 1 || list.Channels[0] != "golang" {
		t.Errorf("channels: got %v", list.Channels)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/blocked/golang", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("remove: got %d, want 204", rec.Code)
	}
	rec = doJSON(t, router, http.MethodDelete, "/api/blocked/golang", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("remove again: got %d, want 404", rec.Code)
	}
}

func TestAddBlockedValidation(t *testing.T) {
	_, router := testEnv(t)

	bad := []string{
		`{"name":""}`,
		`{"name":"   "}`,
		`{"name":"` + strings.Repeat("a", 22) + `"}`,
		`{"name":"has space"}`,
		`{"name":"semi;colon"}`,
		`not json`,
	}
	for _, body := range bad {
		rec := doJSON(t, router, http.MethodPost, "/api/blocked", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: got %d, want 400", body, rec.Code)
		}
	}

	// Exactly at the length limit is fine.
	rec := doJSON(t, router, http.MethodPost, "/api/blocked",
		`{"name":"`+strings.Repeat("a", 21)+`"}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("21-char name: got %d, want 201", rec.Code)
	}
}

func TestStats(t *testing.T) {
	st, router := testEnv(t)
	ctx := context.Background()

	for _, id := range []string{"t3_a", "t3_b"} {
		if err := st.PutHidden(ctx, store.PostRecord{ID: id, HiddenAt: time.Now().UnixMilli()}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := st.AddBlocked(ctx, "spam"); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: got %d", rec.Code)
	}
	var stats struct {
		HiddenCount  int64 `json:"hidden_count"`
		ApproxBytes  int64 `json:"approx_bytes"`
		BlockedCount int   `json:"blocked_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.HiddenCount != 2 || stats.BlockedCount != 1 {
		t.Errorf("stats: got %+v", stats)
	}
	if stats.ApproxBytes <= 0 {
		t.Errorf("approx_bytes: got %d, want > 0", stats.ApproxBytes)
	}
}

func TestClearHidden(t *testing.T) {
	st, router := testEnv(t)
	ctx := context.Background()

	now := time.Now()
	old := store.PostRecord{ID: "t3_old", HiddenAt: now.Add(-96 * time.Hour).UnixMilli()}
	fresh := store.PostRecord{ID: "t3_new", HiddenAt: now.UnixMilli()}
	for _, rec := range []store.PostRecord{old, fresh} {
		if err := st.PutHidden(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/api/hidden/clear-old", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear-old: got %d", rec.Code)
	}
	var res map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res["removed"] != 1 {
		t.Errorf("clear-old removed: got %d, want 1", res["removed"])
	}

	rec = doJSON(t, router, http.MethodPost, "/api/hidden/clear", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res["removed"] != 1 {
		t.Errorf("clear removed: got %d, want 1", res["removed"])
	}
}
