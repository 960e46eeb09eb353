package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrValidation marks malformed templates, catalogs, or job definitions.
	ErrValidation = errors.New("validation error")
	// ErrProvider marks notification channel or webhook delivery failures.
	ErrProvider = errors.New("provider error")
	// ErrNotFound marks missing templates, jobs, organizations, or catalog entries.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks a network-bound step exceeding its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrRetryExhausted marks a job resubmitted past its retry budget.
	ErrRetryExhausted = errors.New("retry exhausted")
	// ErrTransient marks failures with no more specific classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// WrapNetwork classifies a transport failure before wrapping it: an
// exceeded deadline tags ErrTimeout, everything else ErrProvider.
func WrapNetwork(component, operation, message string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Wrap(ErrTimeout, component, operation, message, err)
	}
	return Wrap(ErrProvider, component, operation, message, err)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
