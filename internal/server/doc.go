// Package server provides the MCP server context plus the metrics and
// health listener for the calbridge application.
//
// # Key Components
//
// ServerContext wires the configuration store, sync state store, Google
// credential store, Calendar app reader and sync engine together. The
// Google Calendar client is created lazily and cached, so the server
// starts and answers tools before the integration is configured.
//
// MetricsServer serves Prometheus metrics on a dedicated port, separate
// from the MCP transport. HealthChecker contributes /healthz, /readyz
// and /healthz/detailed endpoints on the same listener; the detailed
// endpoint includes a snapshot of scheduler and sync state.
package server
