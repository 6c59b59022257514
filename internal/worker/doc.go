// Package worker implements a replikv storage worker: the durable
// key-value store, the PUT write coordinator, the replication receiver
// and pull responder, the heartbeat emitter, and the HTTP surface tying
// them together.
//
// # Write path
//
// A PUT received from a client makes the worker the coordinator for that
// write. It asks the controller for the key's replica set, writes locally
// (one durable artifact per key), fans replicate requests out to the
// other replicas concurrently, and answers the client the moment the
// write quorum of acknowledgements is reached. Replicates still in
// flight at that point keep running detached; their failures are logged,
// never surfaced to the client.
//
// A worker that is not in the replica set of the key it received acts as
// a pure proxy and forwards the PUT to the primary.
//
// # Read path
//
// GETs are served from the in-memory map only. The map is loaded from
// the data directory on start, so a key present on disk is visible to
// the first GET after a restart with no additional traffic.
//
// # Recovery hooks
//
// The controller's recovery dispatcher drives two endpoints here: the
// key listing, which feeds deficit computation, and the pull responder,
// which fetches a batch of keys from a donor peer and writes them
// locally. Both replicate-receive and pull writes are idempotent, so
// redelivery and concurrent pulls of the same key are harmless.
package worker
