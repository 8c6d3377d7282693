// Package prometheus renders sessionkit metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] reads [sessionkit.Manager.MetricsSnapshot] on every
// render; nothing is cached and nothing mutates manager state.
package prometheus
