package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fmaia/digesto/app/recipient"
)

func testRecipient() *recipient.Preference {
	return &recipient.Preference{
		ID:    "r1",
		Name:  "Dona Maria",
		Phone: "+5511999990000",
	}
}

func TestWebhookSender_Deliver(t *testing.T) {
	var got webhookPayload
	var contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewWebhookSender(server.URL)
	err := sender.Deliver(context.Background(), testRecipient(), "Bom dia! Suas noticias.")
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if got.Phone != "+5511999990000" {
		t.Errorf("payload phone = %q", got.Phone)
	}
	if got.Message != "Bom dia! Suas noticias." {
		t.Errorf("payload message = %q", got.Message)
	}
}

func TestWebhookSender_DeliverServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewWebhookSender(server.URL)
	err := sender.Deliver(context.Background(), testRecipient(), "msg")
	if err == nil {
		t.Fatal("Deliver() should fail on 502 response")
	}
}

func TestWebhookSender_DeliverCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := NewWebhookSender(server.URL)
	if err := sender.Deliver(ctx, testRecipient(), "msg"); err == nil {
		t.Fatal("Deliver() should fail when context is cancelled")
	}
}

func TestConsoleSender_Deliver(t *testing.T) {
	sender := NewConsoleSender()
	if err := sender.Deliver(context.Background(), testRecipient(), "msg"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if sender.Name() != "console" {
		t.Errorf("Name() = %q", sender.Name())
	}
}
