// Package telemetry exports engine statistics to Prometheus.
package telemetry
