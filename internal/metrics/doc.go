// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Realtime connection state, connect attempts and close codes
//   - Reconnect scheduling and backoff delays
//   - Inbound frame rates and decode failures by kind
//   - Callback dispatch outcomes and recovered panics
//   - Outbound sends, including payloads dropped while disconnected
package metrics
