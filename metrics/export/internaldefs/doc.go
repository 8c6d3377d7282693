// Package internaldefs holds the shared metric name table used by the
// exporter packages. It exists so the Prometheus and OpenTelemetry exporters
// agree on names without either importing the other.
package internaldefs
