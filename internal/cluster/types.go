package cluster

import "time"

// WorkerInfo identifies a storage worker: a stable ID the partition
// function hashes against, and the address peers dial.
type WorkerInfo struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// HeartbeatRequest is the liveness signal a worker posts to the
// controller on start and every heartbeat interval thereafter.
type HeartbeatRequest struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// WorkerStatus is one registry entry as reported by the controller's
// workers listing. Entries are never deleted: a failed worker stays
// listed with Live=false until a fresh heartbeat revives it.
type WorkerStatus struct {
	ID            string    `json:"id"`
	Address       string    `json:"address"`
	Live          bool      `json:"live"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// MapResponse answers a mapping query. Replicas is ordered; the first
// element is the primary (also exposed separately for convenience).
type MapResponse struct {
	Key      string   `json:"key"`
	Primary  string   `json:"primary"`
	Replicas []string `json:"replicas"`
}

// ValueEnvelope wraps a value at the wire boundary. The same shape is
// used for GET responses, replicate requests, and the on-disk artifacts.
type ValueEnvelope struct {
	Value string `json:"value"`
}

// PutResponse is returned to the client once a PUT reaches quorum.
type PutResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Acks  int    `json:"acks"`
}

// PullRequest instructs a worker to fetch a batch of keys from a donor
// peer and write them locally.
type PullRequest struct {
	Donor string   `json:"donor"`
	Keys  []string `json:"keys"`
}

// PullResponse summarizes a pull batch. A per-key failure never aborts
// the batch; it only increments Failed.
type PullResponse struct {
	Pulled int `json:"pulled"`
	Failed int `json:"failed"`
}

// KeysResponse lists the keys a worker currently holds locally.
type KeysResponse struct {
	Keys []string `json:"keys"`
}

// AckResponse acknowledges a control-plane request such as a heartbeat
// or a replicate.
type AckResponse struct {
	OK bool `json:"ok"`
}

// ControllerHealth is the controller's cheap health descriptor.
type ControllerHealth struct {
	Status       string `json:"status"`
	WorkersCount int    `json:"workers_count"`
}

// WorkerHealth is a worker's health descriptor.
type WorkerHealth struct {
	Status string `json:"status"`
	Keys   int    `json:"keys"`
}
