package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient("test-token",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
	)
	return client, srv
}

func TestGetUpdatesParsesBatch(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"ok": true,
			"result": [
				{"update_id": 5, "message": {"message_id": 1, "from": {"id": 7}, "chat": {"id": 42, "type": "private"}, "text": "hello"}},
				{"update_id": 6, "message": {"message_id": 2, "from": {"id": 7}, "chat": {"id": 42, "type": "private"}, "text": "/goals"}}
			]
		}`))
	})
	defer srv.Close()

	updates, err := client.GetUpdates(context.Background(), 5, 30*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/bottest-token/getUpdates" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotPayload["offset"] != float64(5) || gotPayload["timeout"] != float64(30) {
		t.Fatalf("unexpected payload: %v", gotPayload)
	}
	if len(updates) != 2 {
		t.Fatalf("expected two updates, got %d", len(updates))
	}
	first := updates[0]
	if first.ID != 5 || first.Message == nil {
		t.Fatalf("unexpected update: %+v", first)
	}
	if first.Message.Chat.ID != 42 || first.Message.Sender.ID != 7 || first.Message.Text != "hello" {
		t.Fatalf("unexpected message: %+v", first.Message)
	}
}

func TestGetUpdatesRemoteError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "description": "Unauthorized"}`))
	})
	defer srv.Close()

	_, err := client.GetUpdates(context.Background(), 0, 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Description != "Unauthorized" {
		t.Fatalf("unexpected description %q", apiErr.Description)
	}
}

func TestGetUpdatesMalformedBody(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok": tru`))
	})
	defer srv.Close()

	_, err := client.GetUpdates(context.Background(), 0, 0)
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *ProtocolError, got %v", err)
	}
	if protoErr.Method != "getUpdates" {
		t.Fatalf("unexpected method %q", protoErr.Method)
	}
}

func TestGetUpdatesHTTPFailure(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := client.GetUpdates(context.Background(), 0, 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_, _ = w.Write([]byte(`{"ok": true}`))
	})
	defer srv.Close()

	if err := client.SendMessage(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/bottest-token/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotPayload["chat_id"] != float64(42) || gotPayload["text"] != "hello" {
		t.Fatalf("unexpected payload: %v", gotPayload)
	}
}

func TestSendMessageFailureSurfaced(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "description": "chat not found"}`))
	})
	defer srv.Close()

	err := client.SendMessage(context.Background(), 42, "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
}
