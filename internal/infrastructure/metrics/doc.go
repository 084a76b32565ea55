// Package metrics exposes the Prometheus collectors used by the flow
// controller, the session manager and the repositories. Collectors live in a
// package Registry that the server serves on /metrics.
package metrics
