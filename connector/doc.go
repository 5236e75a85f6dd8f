// Package connector implements type-specific extraction strategies that
// turn classified drops into normalized artifacts.
//
// Each connector implements the Connector interface and reports failures
// as *ExtractionError with a FailureKind discriminant: network_error,
// parse_error, unsupported, or rate_limited. All connectors are safe to
// retry; a failed extraction leaves no partial side effects.
//
// The social connector is the exception to hard failure: when its fetch
// tool fails it returns a degraded artifact (URL-only content tagged
// "to_read") rather than an error, preserving the capture.
package connector
