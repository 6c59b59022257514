// Package controller implements the replikv controller: the worker
// registry, the deterministic partition mapping, the heartbeat-driven
// failure detector, and the recovery dispatcher that rebuilds replica
// sets after a worker dies.
//
// # Registry and mapping
//
// The registry is the controller's only mutable state: one entry per
// worker ever seen, keyed by identifier, carrying the address, the last
// heartbeat instant, and a liveness flag. Entries are created on first
// heartbeat and never deleted; a down worker revives on any fresh
// heartbeat. All mutation happens under a single mutex, and mapping
// handlers work on snapshots taken under that mutex and released before
// any wire I/O.
//
// The partition mapping is a pure function of the key and the live
// membership: SHA-256 of the key truncated to an unsigned integer picks
// the primary position in the ID-sorted live worker list, and the
// replica set walks the ring from there. Two queries under the same
// membership always return the same ordered set.
//
// # Failure detection and recovery
//
// The detector ticks at the check interval. A live worker whose last
// heartbeat is older than the heartbeat timeout flips to down and queues
// a recovery pass; so does a revival, since membership growth can fill
// previously truncated replica sets. A pass unions the key listings of
// all live workers, recomputes each key's ideal replica set under the
// current membership, and for every member missing a key batches a pull
// instruction per (target, donor) pair. Failed pulls keep the deficit
// queued, so the next tick retries; idempotent writes make overlapping
// pulls safe.
package controller
