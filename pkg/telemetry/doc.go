// Package telemetry provides observability instrumentation for workcatalog.
//
// It integrates structured logging (zerolog), tracing (OpenTelemetry),
// metrics (Prometheus) and in-process catalog events into one bundle.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	store, err := stores.NewWorkTypeStore(stores.Config{Path: "catalog.db"},
//	    stores.WithLogger(tel.Logger),
//	    stores.WithMetrics(tel.Metrics),
//	    stores.WithTracer(tel.Tracer),
//	    stores.WithEvents(tel.Events),
//	)
//
// # Metrics
//
// Metrics live in a private registry. Short-lived processes write them with
// WriteTextfile so a node_exporter textfile collector can pick them up:
//
//	workcatalog_store_operations_total{operation,status}
//	workcatalog_store_operation_duration_seconds{operation}
//	workcatalog_batch_rows
//	workcatalog_rollbacks_total{operation}
//	workcatalog_work_types
//
// # Events
//
// Events are delivered synchronously to subscribers on the publishing
// goroutine; there is no buffering and no background worker.
package telemetry
