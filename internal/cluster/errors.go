package cluster

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Sentinel errors for the failure kinds that may cross a node boundary.
// Handlers translate them into an ErrorResponse with the matching HTTP
// status; the JSON helpers translate the envelope back on the far side.
var (
	// ErrNoWorkers: a mapping was requested but no live worker exists.
	ErrNoWorkers = errors.New("no live workers")

	// ErrMappingUnavailable: a PUT coordinator could not reach the
	// controller. No local write happens in that case.
	ErrMappingUnavailable = errors.New("controller unavailable")

	// ErrQuorumNotMet: the write completed locally but fewer than the
	// write quorum of acks arrived before the deadline. The local write
	// is retained; recovery reconciles the replica set later.
	ErrQuorumNotMet = errors.New("write quorum not met")

	// ErrNotFound: GET for an unknown key.
	ErrNotFound = errors.New("key not found")

	// ErrStorageFailure: the local durable write failed. The coordinator
	// abandons the PUT without fanning out.
	ErrStorageFailure = errors.New("storage failure")

	// ErrPeerUnreachable: a replicate or pull target did not respond in
	// time. Counted as a missed ack or a per-key failure, never fatal to
	// the enclosing operation.
	ErrPeerUnreachable = errors.New("peer unreachable")
)

// ErrorResponse is the JSON envelope errors travel in on the wire.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// kinds maps sentinel errors to their wire names. Order matters only in
// that errorKind walks it; the names are part of the wire contract.
var kinds = []struct {
	err  error
	name string
	code int
}{
	{ErrNoWorkers, "no_workers", http.StatusServiceUnavailable},
	{ErrMappingUnavailable, "mapping_unavailable", http.StatusServiceUnavailable},
	{ErrQuorumNotMet, "quorum_not_met", http.StatusServiceUnavailable},
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrStorageFailure, "storage_failure", http.StatusInternalServerError},
	{ErrPeerUnreachable, "peer_unreachable", http.StatusServiceUnavailable},
}

// errorKind resolves err to its wire name and HTTP status. Unrecognized
// errors become a plain internal error.
func errorKind(err error) (string, int) {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name, k.code
		}
	}
	return "internal", http.StatusInternalServerError
}

// errorFromKind is the inverse of errorKind; unknown names come back as
// ErrPeerUnreachable since from the caller's view the peer misbehaved.
func errorFromKind(name string) error {
	for _, k := range kinds {
		if k.name == name {
			return k.err
		}
	}
	return ErrPeerUnreachable
}

// StatusCode returns the HTTP status a handler should answer with for
// err.
func StatusCode(err error) int {
	_, code := errorKind(err)
	return code
}

// WriteError encodes err as the wire envelope with its mapped status.
func WriteError(w http.ResponseWriter, err error) {
	kind, code := errorKind(err)
	WriteJSON(w, code, ErrorResponse{Error: kind, Detail: err.Error()})
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
