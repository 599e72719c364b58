// Package main hosts the lead-generation service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and search endpoints. Requests are validated,
//     normalized into search.Request values, and handed to the search service; results are staged until the
//     caller confirms which candidates to keep.
//   - Providers: Google Maps text search runs synchronously against the Places API; TikTok and Instagram
//     searches submit Apify actor runs and poll until a terminal status or the wait budget runs out. Each
//     provider maps its failures to the shared sentinel errors so the API layer can pick status codes.
//   - Normalization & enrichment: internal/normalize flattens raw provider records into the lead shape,
//     extracting Instagram handles from bios and profile URLs; internal/enrich optionally scrapes lead
//     websites with Colly to recover handles the provider never returned. Enrichment failures are logged
//     and never fail a search.
//   - Deduplication & staging: candidates are collapsed on their per-source natural key, checked against the
//     lead store, and parked in a TTL-bounded in-memory staging area keyed by attempt ID. Confirmation
//     consumes the staged batch exactly once, persists survivors, and triggers the spreadsheet export.
//   - Persistence & export: leads and search attempts live in Postgres via pgx (in-memory stores back local
//     development); duplicate inserts resolve through the unique natural-key constraint. Confirmed leads
//     with a social handle are appended to a Google Sheets tab named after the query and source.
//   - Configuration & plumbing: Viper populates config from env/files (CAFELEADS_ prefix); zap provides
//     structured logging; Prometheus metrics are exported via the metrics middleware and /metrics handler;
//     search lifecycle events flow through the progress Hub to the log and Prometheus sinks.
//
// Operational notes:
//   - Concurrency model: searches run on the request goroutine; Apify polling honors the request context,
//     so a canceled request abandons the remote run without killing it. Staged batches are guarded by a
//     mutex and expire lazily on access.
//   - Timeouts: the request timeout middleware bounds the whole search, which must cover the Apify wait
//     budget; provider HTTP calls carry their own shorter timeouts.
//   - Observability: zap logs carry attempt IDs and providers at key transitions; Prometheus counters and
//     histograms track API, provider, and export activity; the progress Hub batches lifecycle events for
//     downstream sinks.
//
// Quick checklist:
//   - Configure env vars: CAFELEADS_SERVER_PORT, CAFELEADS_GOOGLE_MAPS_API_KEY, CAFELEADS_APIFY_TOKEN plus
//     actor IDs, CAFELEADS_DB_DSN when Postgres persistence is required, and CAFELEADS_EXPORT_* for the
//     Sheets export. CAFELEADS_AUTH_ENABLED=true gates /v1 behind an X-API-Key header.
//   - Run locally: go run ./cmd/cafeleads -config config.yaml (or rely solely on env overrides). Without a
//     DSN the service keeps leads and attempts in memory.
package main
