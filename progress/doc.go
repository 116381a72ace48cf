// Package progress keeps aggregated step and callback counters for a single
// workflow execution. The tracker travels in the execution context so that
// any step can update it without a global registry.
package progress
