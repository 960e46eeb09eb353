package notifications_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldline/internal/config"
	"fieldline/internal/notifications"
	"fieldline/internal/services"
)

func channelFor(endpoint string) notifications.Channel {
	cfg := config.Default()
	cfg.Channel.Endpoint = endpoint
	cfg.Channel.RequestTimeoutSeconds = 5
	return notifications.NewChannel(&cfg)
}

func TestSendSuccess(t *testing.T) {
	var gotRecipient, gotLanguage, gotPriority string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRecipient = r.Header.Get("X-Recipient")
		gotLanguage = r.Header.Get("X-Language")
		gotPriority = r.Header.Get("Priority")
		w.Header().Set("X-Message-Id", "msg-123")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := channelFor(server.URL)
	result, err := ch.Send(context.Background(), notifications.Message{
		Recipient:    "+15550102",
		Body:         "A technician is on the way.",
		LanguageUsed: "en",
		Alert:        true,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.MessageID != "msg-123" {
		t.Errorf("message id = %q, want msg-123", result.MessageID)
	}
	if result.SentAt.IsZero() {
		t.Error("SentAt should be set")
	}
	if gotRecipient != "+15550102" {
		t.Errorf("recipient header = %q", gotRecipient)
	}
	if gotLanguage != "en" {
		t.Errorf("language header = %q", gotLanguage)
	}
	if gotPriority != "high" {
		t.Errorf("priority header = %q, want high", gotPriority)
	}
}

func TestSendGeneratesMessageID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	ch := channelFor(server.URL)
	result, err := ch.Send(context.Background(), notifications.Message{Recipient: "+15550102", Body: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.MessageID == "" {
		t.Error("expected generated message id when provider returns none")
	}
}

func TestSendProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	ch := channelFor(server.URL)
	_, err := ch.Send(context.Background(), notifications.Message{Recipient: "+15550102", Body: "hi"})
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
}

func TestSendTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ch := channelFor(server.URL)
	_, err := ch.Send(ctx, notifications.Message{Recipient: "+15550102", Body: "hi"})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if errors.Is(err, services.ErrProvider) {
		t.Fatal("a deadline must not be classified as a provider failure")
	}
}

func TestSendEmptyRecipient(t *testing.T) {
	ch := channelFor("")
	_, err := ch.Send(context.Background(), notifications.Message{Body: "hi"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestNoopChannelWhenUnconfigured(t *testing.T) {
	ch := channelFor("")
	result, err := ch.Send(context.Background(), notifications.Message{Recipient: "+15550102", Body: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.MessageID == "" {
		t.Error("noop channel should still mint a message id")
	}
	if err := ch.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := channelFor(server.URL)
	if err := ch.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
