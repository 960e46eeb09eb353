package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldline/internal/config"
	"fieldline/internal/services"
)

const userAgent = "Fieldline-Go/0.1.0"

// Message is one outbound notification handed to the delivery provider.
type Message struct {
	Recipient    string
	Body         string
	LanguageUsed string
	TemplateKey  string
	JobID        string
	Alert        bool
}

// SendResult reports the provider acceptance of one message.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Channel delivers messages to recipients. Implementations must be safe
// for concurrent use.
type Channel interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
	Ping(ctx context.Context) error
}

// NewChannel builds a delivery channel from configuration. When no
// provider endpoint is configured, a noop channel is returned.
func NewChannel(cfg *config.Config) Channel {
	endpoint := strings.TrimSpace(cfg.Channel.Endpoint)
	if endpoint == "" {
		return noopChannel{}
	}

	timeout := time.Duration(cfg.Channel.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &httpChannel{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type httpChannel struct {
	endpoint string
	client   *http.Client
}

func (c *httpChannel) Send(ctx context.Context, msg Message) (SendResult, error) {
	recipient := strings.TrimSpace(msg.Recipient)
	if recipient == "" {
		return SendResult{}, services.Wrap(services.ErrValidation, "notifications", "send", "recipient is empty", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return SendResult{}, fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("X-Recipient", recipient)
	if msg.LanguageUsed != "" {
		req.Header.Set("X-Language", msg.LanguageUsed)
	}
	if msg.TemplateKey != "" {
		req.Header.Set("X-Template", msg.TemplateKey)
	}
	if msg.Alert {
		req.Header.Set("Priority", "high")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return SendResult{}, services.WrapNetwork("notifications", "send", "provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return SendResult{}, services.Wrap(services.ErrProvider, "notifications", "send",
			fmt.Sprintf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	messageID := strings.TrimSpace(resp.Header.Get("X-Message-Id"))
	if messageID == "" {
		messageID = uuid.NewString()
	}
	return SendResult{MessageID: messageID, SentAt: time.Now().UTC()}, nil
}

func (c *httpChannel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrProvider, "notifications", "ping", "provider unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return services.Wrap(services.ErrProvider, "notifications", "ping", fmt.Sprintf("provider returned %d", resp.StatusCode), nil)
	}
	return nil
}

type noopChannel struct{}

func (noopChannel) Send(_ context.Context, msg Message) (SendResult, error) {
	if strings.TrimSpace(msg.Recipient) == "" {
		return SendResult{}, services.Wrap(services.ErrValidation, "notifications", "send", "recipient is empty", nil)
	}
	return SendResult{MessageID: uuid.NewString(), SentAt: time.Now().UTC()}, nil
}

func (noopChannel) Ping(context.Context) error { return nil }
