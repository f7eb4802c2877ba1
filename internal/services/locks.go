package services

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// stripedMutex serializes work per key inside one process with a fixed
// number of mutexes. Different keys may share a stripe.
type stripedMutex struct {
	stripes [lockStripes]sync.Mutex
}

func (m *stripedMutex) lock(key string) (unlock func()) {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &m.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
