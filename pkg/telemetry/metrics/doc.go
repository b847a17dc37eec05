// Package metrics builds the Prometheus registry shared by tollgate's
// components and serves it over HTTP. Components register their own
// collectors on the registry with promauto.With.
package metrics
