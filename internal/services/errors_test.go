package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"fieldline/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrProvider, "dispatcher", "send", "customer notification", base)
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	for _, fragment := range []string{"dispatcher", "send", "customer notification", "boom"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %q", fragment, err.Error())
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "store", "open", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestWrapNetworkClassifiesTimeouts(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "deadline exceeded",
			err:  fmt.Errorf("do request: %w", context.DeadlineExceeded),
			want: services.ErrTimeout,
		},
		{
			name: "net timeout",
			err:  timeoutError{},
			want: services.ErrTimeout,
		},
		{
			name: "connection refused",
			err:  errors.New("connection refused"),
			want: services.ErrProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := services.WrapNetwork("notifications", "send", "provider request failed", tt.err)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want marker %v", err, tt.want)
			}
		})
	}
}

func TestWrapWithoutDetailUsesFallback(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}
