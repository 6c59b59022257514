// Package cluster defines the wire contract shared by the replikv
// controller and its storage workers, plus the JSON/HTTP helpers both
// sides use to speak it.
//
// # Overview
//
// The deployment is one controller and N workers, all speaking HTTP/JSON.
// Workers announce themselves with periodic heartbeats; the controller
// answers mapping queries with ordered replica sets; workers replicate to
// and pull from each other directly. This package holds the request and
// response envelopes for every one of those exchanges so that the two
// node kinds cannot drift apart, and the error taxonomy that every error
// is translated into before it crosses a node boundary.
//
//	              ┌──────────────┐
//	              │  Controller  │
//	              │              │
//	              │ - Registry   │
//	              │ - Mapping    │
//	              │ - Detector   │
//	              └──────┬───────┘
//	          heartbeats │ map queries
//	      ┌──────────────┼──────────────┐
//	      │              │              │
//	┌─────▼─────┐  ┌─────▼─────┐  ┌─────▼─────┐
//	│ Worker w1 │←→│ Worker w2 │←→│ Worker w3 │
//	│  (store)  │  │  (store)  │  │  (store)  │
//	└───────────┘  └───────────┘  └───────────┘
//	       replicate / pull between workers
//
// # Error taxonomy
//
// Failures are surfaced as one of the sentinel errors in this package
// (ErrNoWorkers, ErrMappingUnavailable, ErrQuorumNotMet, ErrNotFound,
// ErrStorageFailure, ErrPeerUnreachable). Handlers encode them as an
// {error, detail} JSON envelope with the matching HTTP status; GetJSON
// and PostJSON decode the envelope back into the same sentinel on the
// calling side, so errors.Is works across a node boundary.
//
// # Concurrency
//
// Everything in this package is either immutable data or a stateless
// helper over a shared http.Client; all of it is safe for concurrent use.
package cluster
