// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/searches to run a provider search and stage candidates.
//   - POST /v1/searches/{attempt_id}/confirm to persist a staged batch.
//   - GET /v1/leads for the persisted lead list.
package api
