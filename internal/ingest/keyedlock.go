package ingest

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// keyedMutex serializes work per external object id with a fixed set of
// shards. Two concurrent reports for the same brand-new id would otherwise
// race between lookup and create and mint duplicate entities.
type keyedMutex struct {
	shards [lockShards]sync.Mutex
}

func (m *keyedMutex) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	shard := &m.shards[h.Sum32()%lockShards]
	shard.Lock()
	return shard
}
