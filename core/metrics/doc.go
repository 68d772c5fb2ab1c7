// Package metrics defines the sinks that observe an optimisation run. Sinks
// like PromSink and InfluxSink record outer iterations and per-period
// dispatch; several sinks are combined with NewMultiSink. The factory helpers
// return a MultiSink automatically when multiple sinks are configured.
package metrics
