// Package tracing wires OpenTelemetry into engine calls. Callers use the
// StartSpan/EndSpan helpers and never import the SDK directly.
package tracing
