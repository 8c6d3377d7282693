// Package otel provides OpenTelemetry metric exporter bindings for sessionkit
// counters.
//
// [NewOTelExporter] registers an Int64ObservableCounter per sessionkit metric.
// A single callback reads [sessionkit.Manager.MetricsSnapshot] on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate manager state.
package otel
