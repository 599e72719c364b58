// Package progress provides the event primitives, non-blocking hub, and emitter
// interfaces the search pipeline uses to report lifecycle milestones. It batches
// events on a background goroutine and fans them out to pluggable sinks such as
// Prometheus metrics or structured logs, so the poll loop is never blocked on
// surfacing partial progress.
package progress
