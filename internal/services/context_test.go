package services_test

import (
	"context"
	"testing"

	"scribe/internal/services"
)

func TestJobIDRoundTrip(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 11)
	id, ok := services.JobIDFromContext(ctx)
	if !ok || id != 11 {
		t.Fatalf("expected job id 11, got %d (ok=%v)", id, ok)
	}

	if _, ok := services.JobIDFromContext(context.Background()); ok {
		t.Fatal("expected no job id on empty context")
	}
}

func TestComponentRoundTrip(t *testing.T) {
	ctx := services.WithComponent(context.Background(), "dispatch")
	component, ok := services.ComponentFromContext(ctx)
	if !ok || component != "dispatch" {
		t.Fatalf("unexpected component: %q (ok=%v)", component, ok)
	}

	same := services.WithComponent(context.Background(), "")
	if _, ok := services.ComponentFromContext(same); ok {
		t.Fatal("empty component should not be stored")
	}
}
