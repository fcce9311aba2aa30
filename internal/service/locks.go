package service

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// ownerLocks serializes ledger mutations per owner with a fixed set of
// striped mutexes. Two owners may share a stripe; an owner never spans two.
type ownerLocks struct {
	shards [lockShards]sync.Mutex
}

// forOwner returns the mutex guarding the given owner's ledger.
func (l *ownerLocks) forOwner(ownerID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ownerID))
	return &l.shards[h.Sum32()%lockShards]
}
