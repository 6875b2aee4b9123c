// Package metrics records synchronization activity.
//
// Components take a Recorder and default to NoopRecorder, so nothing needs a
// nil check. The daemon swaps in a PrometheusRecorder when metrics are
// enabled and serves it on /metrics through HTTPHandler.
package metrics
