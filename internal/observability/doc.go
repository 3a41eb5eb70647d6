// Package observability provides structured logging and Prometheus metrics
// for the contract registry.
//
// This package implements:
//   - zap logger construction from level and format settings
//   - Request-scoped loggers carrying the chi request ID
//   - Counters for authorization decisions and HTTP traffic
package observability
