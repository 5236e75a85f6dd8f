// Package ingestion orchestrates drop processing: classification, routing
// through connectors, artifact persistence, and asynchronous embedding.
//
// The Dispatcher owns the drop state machine
//
//	pending → processing → {completed, failed}
//
// with an atomic claim between pending and processing so a pool of workers
// can consume one inbox without double-processing. Connector calls are
// bounded by a timeout; persistence failures are retried with backoff;
// every drop ends in a terminal, inspectable state.
//
// Classification is a pure function over the drop (Classify); dispatch is
// a static lookup table from ClassifiedType to Connector.
package ingestion
