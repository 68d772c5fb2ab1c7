// Package infra contains technical adapters: metrics sinks, the MQTT
// schedule publisher, the run store and the zerolog logger. These packages
// depend on the core types and never the reverse.
package infra
