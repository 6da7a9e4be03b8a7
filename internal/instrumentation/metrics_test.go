package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, ctx context.Context) *Provider {
	t.Helper()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	return provider
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/mcp", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/mcp", 500, 50*time.Millisecond)
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordGoogleAPIOperation(ctx, "list", StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, "create", StatusError, 500*time.Millisecond)
}

func TestMetrics_RecordAppleScriptOperation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordAppleScriptOperation(ctx, "listCalendars", StatusSuccess, 2*time.Second)
	metrics.RecordAppleScriptOperation(ctx, "events", StatusError, 30*time.Second)
}

func TestMetrics_RecordSyncPass(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordSyncPass(ctx, StatusSuccess, false, 5*time.Second)
	metrics.RecordSyncPass(ctx, StatusSuccess, true, 1*time.Second)
	metrics.RecordSyncPass(ctx, StatusError, false, 10*time.Second)
}

func TestMetrics_RecordSyncEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordSyncEvent(ctx, OutcomeCreated, "Work")
	metrics.RecordSyncEvent(ctx, OutcomeSkipped, "Work")
	metrics.RecordSyncEvent(ctx, OutcomeFailed, "Personal")
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := newTestProvider(t, ctx).Metrics()

	// Should not panic
	metrics.RecordToolInvocation(ctx, "sync_run", StatusSuccess, 3*time.Second)
	metrics.RecordToolInvocation(ctx, "icloud_get_events", StatusError, 100*time.Millisecond)
}

func TestMetrics_NoOpWhenDisabled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{Enabled: false})
	if err != nil {
		t.Fatalf("failed to create disabled provider: %v", err)
	}

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected no-op metrics to be non-nil")
	}

	// Recording on the no-op recorder must not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
	metrics.RecordSyncPass(ctx, StatusSuccess, false, time.Second)
	metrics.RecordSyncEvent(ctx, OutcomeCreated, "Work")
	metrics.RecordToolInvocation(ctx, "sync_status", StatusSuccess, time.Millisecond)

	if provider.Enabled() {
		t.Error("expected provider to report disabled")
	}
}
