package controller

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/replikv/replikv/internal/cluster"
)

// keyDigest reduces a key to a stable unsigned integer: SHA-256
// truncated to its first 8 bytes, big-endian.
func keyDigest(key string) uint64 {
	sum := sha256.Sum256([]byte(key))
	return binary.BigEndian.Uint64(sum[:8])
}

// ReplicaSet computes the ordered replica set for key over the live
// membership. The live workers are sorted by identifier into the
// canonical ring; the primary sits at digest mod len(live) and the rest
// of the set walks the ring from there, truncated to min(replicas, live).
//
// The function is pure: same key, same membership, same answer.
func ReplicaSet(key string, live []cluster.WorkerInfo, replicas int) ([]cluster.WorkerInfo, error) {
	n := len(live)
	if n == 0 {
		return nil, cluster.ErrNoWorkers
	}
	ring := slices.Clone(live)
	slices.SortFunc(ring, func(a, b cluster.WorkerInfo) int {
		return strings.Compare(a.ID, b.ID)
	})
	count := replicas
	if n < count {
		count = n
	}
	primary := int(keyDigest(key) % uint64(n))
	set := make([]cluster.WorkerInfo, 0, count)
	for i := 0; i < count; i++ {
		set = append(set, ring[(primary+i)%n])
	}
	return set, nil
}
