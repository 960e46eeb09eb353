package services_test

import (
	"context"
	"testing"

	"fieldline/internal/services"
)

func TestContextCarriers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithConversationID(ctx, "conv-42")
	ctx = services.WithJobID(ctx, "job-7")
	ctx = services.WithStep(ctx, "send_notification")
	ctx = services.WithComponent(ctx, "dispatcher")

	if id, ok := services.ConversationIDFromContext(ctx); !ok || id != "conv-42" {
		t.Fatalf("conversation id not carried: %q %v", id, ok)
	}
	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-7" {
		t.Fatalf("job id not carried: %q %v", id, ok)
	}
	if step, ok := services.StepFromContext(ctx); !ok || step != "send_notification" {
		t.Fatalf("step not carried: %q %v", step, ok)
	}
	if comp, ok := services.ComponentFromContext(ctx); !ok || comp != "dispatcher" {
		t.Fatalf("component not carried: %q %v", comp, ok)
	}
}

func TestEmptyValuesAreNotStored(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "")
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("empty job id should not be stored")
	}
	if _, ok := services.ConversationIDFromContext(context.Background()); ok {
		t.Fatal("missing conversation id should report false")
	}
}
