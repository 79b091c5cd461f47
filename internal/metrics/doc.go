// Package metrics provides build metrics for mdbook-iced runs.
//
// Components receive a Recorder and default to NoopRecorder, so metrics cost
// nothing unless a run asks for them. When a metrics file is configured the
// PrometheusRecorder collects into its own registry and the registry is
// written in the Prometheus text exposition format once the run ends, ready
// for a node_exporter textfile collector.
package metrics
