package gegltile

import "github.com/gogpu/gegltile/cache"

// ShardAccelerator is the reference Accelerator: a sharded, high-
// concurrency mirror of recently-touched tile bytes, backed by the
// teacher module's cache.ShardedCache (cache/sharded.go) — 16 independently
// locked shards, which is exactly the low-contention "accelerator cache"
// spec.md §1 alludes to without mandating any particular backing store.
//
// It is not registered by default; call RegisterAccelerator(NewShardAccelerator(...))
// to opt in.
type ShardAccelerator struct {
	mirror *cache.ShardedCache[Address, []byte]
}

// NewShardAccelerator creates an Accelerator whose mirror holds up to
// capacity tile entries per shard (16 shards total, so roughly
// capacity*16 tiles resident before eviction).
func NewShardAccelerator(capacity int) *ShardAccelerator {
	return &ShardAccelerator{
		mirror: cache.NewSharded[Address, []byte](capacity, addressHash),
	}
}

func addressHash(a Address) uint64 {
	return cache.IntHasher(a.X) ^ (cache.IntHasher(a.Y) * 0x9E3779B97F4A7C15) ^ (cache.IntHasher(a.Z) * 0xC2B2AE3D27D4EB4F)
}

func (s *ShardAccelerator) Name() string { return "shard-mirror" }
func (s *ShardAccelerator) Init() error  { return nil }
func (s *ShardAccelerator) Close()       { s.mirror.Clear() }

func (s *ShardAccelerator) CanAccelerate(op AcceleratedOp) bool {
	return op&(AccelRead|AccelWrite) != 0
}

func (s *ShardAccelerator) MirrorGet(addr Address) ([]byte, bool) {
	return s.mirror.Get(addr)
}

func (s *ShardAccelerator) MirrorSet(addr Address, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mirror.Set(addr, cp)
}

func (s *ShardAccelerator) MirrorVoid(addr Address) {
	s.mirror.Delete(addr)
}
