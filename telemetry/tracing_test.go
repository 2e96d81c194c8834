package telemetry

import (
	"context"
	"errors"
	"testing"
)

func TestInitTracingDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing("", "chatbot", "test")
	if err != nil {
		t.Fatalf("InitTracing() error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("InitTracing() returned nil shutdown")
	}
	shutdown()
	if IsTracingEnabled() {
		t.Error("tracing enabled without endpoint")
	}
}

func TestStartSpanNoopProvider(t *testing.T) {
	ctx := WithCorrelation(context.Background(), "corr-1")
	ctx, span := StartSpan(ctx, "chat.dispatch", EventAttrs("message", "#demo", "alice")...)
	if ctx == nil || span == nil {
		t.Fatal("StartSpan returned nil")
	}
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	SetSpanSuccess(span)
	span.End()
}
