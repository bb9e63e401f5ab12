package telemetry

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default", mutate: func(c *Config) {}},
		{name: "development", mutate: func(c *Config) { *c = *DevelopmentConfig() }},
		{name: "missing service name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "bad exporter", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}, wantErr: true},
		{name: "otlp without endpoint", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "otlp"
		}, wantErr: true},
		{name: "sampling out of range", mutate: func(c *Config) { c.Tracing.SamplingRate = 1.5 }, wantErr: true},
		{name: "textfile without metrics", mutate: func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.TextfilePath = "/tmp/x.prom"
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LoggingConfig{Level: "debug", Format: "json"})

	logger.NewComponentLogger("stores").WithWorkType("Welder").Debug("upserted")

	out := buf.String()
	for _, want := range []string{`"component":"stores"`, `"work_type":"Welder"`, `"message":"upserted"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in log line %q", want, out)
		}
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LoggingConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}

	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warning to be logged, got %q", buf.String())
	}
}

func TestLoggerFieldsAndLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LoggingConfig{Level: "verbose", Format: "json"})

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected an unknown level to fall back to info, got %q", buf.String())
	}

	logger.WithFields(map[string]any{"rows": 2, "replace": true}).
		WithError(errors.New("disk full")).
		Error("import failed")

	out := buf.String()
	for _, want := range []string{`"rows":2`, `"replace":true`, `"error":"disk full"`, `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in log line %q", want, out)
		}
	}
}

func TestFromContextWithoutLogger(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a fallback logger")
	}
}

func TestMetricsRecording(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	m.RecordStoreOperation("Insert", "ok", time.Millisecond)
	m.RecordStoreOperation("Insert", "ok", time.Millisecond)
	m.RecordStoreOperation("InsertBatch", "error", time.Millisecond)
	m.RecordRollback("InsertBatch")
	m.SetCatalogSize(7)

	if got := testutil.ToFloat64(m.storeOperations.WithLabelValues("Insert", "ok")); got != 2 {
		t.Errorf("expected 2 inserts, got %v", got)
	}
	if got := testutil.ToFloat64(m.rollbacks.WithLabelValues("InsertBatch")); got != 1 {
		t.Errorf("expected 1 rollback, got %v", got)
	}
	if got := testutil.ToFloat64(m.catalogSize); got != 7 {
		t.Errorf("expected catalog size 7, got %v", got)
	}
}

func TestDisabledMetricsAreNoops(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	m.RecordStoreOperation("Insert", "ok", time.Millisecond)
	m.RecordBatch(3)
	m.SetCatalogSize(1)

	if m.Gatherer() != nil {
		t.Error("expected no gatherer when metrics are disabled")
	}

	var nilMetrics *Metrics
	nilMetrics.RecordRollback("InsertBatch")
	if err := nilMetrics.WriteTextfile("ignored.prom"); err != nil {
		t.Errorf("expected nil metrics to ignore textfile, got %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	m.RecordBatch(4)

	path := filepath.Join(t.TempDir(), "workcatalog.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("failed to write textfile: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	if !strings.Contains(string(content), "workcatalog_batch_rows_count 1") {
		t.Errorf("expected batch histogram in textfile, got:\n%s", content)
	}
}

func TestEventPublisherDefaults(t *testing.T) {
	ep := NewEventPublisher(EventsConfig{Enabled: true})

	var got []Event
	ep.Subscribe(func(e Event) { got = append(got, e) }, nil)

	if err := ep.Publish(Event{Type: EventTypeBatchRolledBack}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].ID == "" {
		t.Error("expected event ID to be assigned")
	}
	if got[0].Timestamp.IsZero() {
		t.Error("expected event timestamp to be assigned")
	}
	if got[0].Level != EventLevelWarning {
		t.Errorf("expected level %s, got %s", EventLevelWarning, got[0].Level)
	}
}

func TestEventPublisherGlobalFilter(t *testing.T) {
	ep := NewEventPublisher(EventsConfig{Enabled: true})
	ep.AddFilter(FilterByType(EventTypeCatalogCleared))

	count := 0
	ep.Subscribe(func(Event) { count++ }, nil)

	_ = ep.Publish(Event{Type: EventTypeWorkTypeUpserted})
	_ = ep.Publish(Event{Type: EventTypeCatalogCleared})

	if count != 1 {
		t.Errorf("expected 1 delivered event, got %d", count)
	}
}

func TestDisabledEventPublisher(t *testing.T) {
	ep := NewEventPublisher(EventsConfig{Enabled: false})
	ep.Subscribe(func(Event) { t.Error("disabled publisher delivered an event") }, nil)
	_ = ep.Publish(Event{Type: EventTypeStoreOpened})

	var nilPublisher *EventPublisher
	if err := nilPublisher.Publish(Event{Type: EventTypeStoreOpened}); err != nil {
		t.Errorf("expected nil publisher to drop events, got %v", err)
	}
}

func TestLogSubscriber(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LoggingConfig{Level: "debug", Format: "json"})

	LogSubscriber(logger)(Event{ID: "e-1", Type: EventTypeWorkTypeUpserted, WorkType: "Welder"})

	if !strings.Contains(buf.String(), `"event_type":"work_type.upserted"`) {
		t.Errorf("expected event type in log, got %q", buf.String())
	}
}

func TestNopTracerSpans(t *testing.T) {
	tracer := NewNopTracer()
	ctx, span := tracer.StartStoreSpan(context.Background(), "ReadAll")
	RecordError(span, errors.New("boom"))
	span.End()

	if TraceID(ctx) != "" {
		t.Error("expected nop tracer to produce no trace ID")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("nop tracer shutdown failed: %v", err)
	}
}

func TestTracerWithoutExporterRecordsSpans(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: true, Exporter: "none", SamplingRate: 1}, "workcatalog", "test", "test")
	if err != nil {
		t.Fatalf("failed to create tracer: %v", err)
	}
	defer tracer.Shutdown(context.Background())

	ctx, span := tracer.StartStoreSpan(context.Background(), "Insert")
	defer span.End()

	if TraceID(ctx) == "" {
		t.Error("expected a sampled span with a trace ID")
	}
}
