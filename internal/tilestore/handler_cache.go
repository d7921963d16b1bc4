package tilestore

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/gegltile/internal/parallel"
	"github.com/gogpu/gegltile/internal/tile"
)

// flushPool runs FLUSH's per-tile write-backs across several goroutines;
// distinct tile addresses never contend with each other downstream (each
// backend locks only around its own map/file access), so parallelizing the
// write-back loop is a straightforward win on a flush touching many dirty
// tiles. Lazily started on first use and shared by every CacheHandler in
// the process.
var (
	flushPoolOnce sync.Once
	flushPool     *parallel.WorkerPool
)

func getFlushPool() *parallel.WorkerPool {
	flushPoolOnce.Do(func() { flushPool = parallel.NewWorkerPool(0) })
	return flushPool
}

// globalCacheBytes is the process-wide tile cache byte counter referenced
// by every CacheHandler's eviction decision (spec.md §5: "the process-wide
// tile-cache cap bounds total bytes... eviction runs under the owning
// storage's mutex but consults a global counter updated atomically").
//
// Open question resolved (spec.md §9): the per-storage capacity set on
// each CacheHandler is the primary bound; globalBudget, when non-zero via
// SetGlobalByteBudget, is an additional process-wide ceiling layered on
// top, consulted after the per-storage check.
var globalCacheBytes atomic.Int64
var globalBudget atomic.Int64

// SetGlobalByteBudget sets the process-wide cache budget in bytes
// (spec.md §6 babl config key "cache_size"). Zero disables the
// process-wide ceiling; only each handler's own per-storage capacity then
// applies.
func SetGlobalByteBudget(n int64) { globalBudget.Store(n) }

type lruNode struct {
	addr       tile.Address
	t          *tile.Tile
	prev, next *lruNode
}

// CacheHandler is a bounded LRU of recently touched tiles, enforcing
// at-most-one in-flight materialization per address (spec.md §4.5).
type CacheHandler struct {
	base

	mu    sync.Mutex
	cond  *sync.Cond
	nodes map[tile.Address]*lruNode
	head  *lruNode // most recently used
	tail  *lruNode // least recently used

	capacity  int   // max tile count, 0 = unlimited by count
	usedBytes int64 // bytes currently cached by this handler

	inflight map[tile.Address]chan struct{}
}

// NewCacheHandler creates a Cache handler bounded to capacity tiles (0
// means bound only by the process-wide byte budget, if any).
func NewCacheHandler(capacity int) *CacheHandler {
	h := &CacheHandler{
		nodes:    make(map[tile.Address]*lruNode),
		capacity: capacity,
		inflight: make(map[tile.Address]chan struct{}),
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

func (h *CacheHandler) touch(n *lruNode) {
	if n == h.head {
		return
	}
	h.unlink(n)
	n.prev = nil
	n.next = h.head
	if h.head != nil {
		h.head.prev = n
	}
	h.head = n
	if h.tail == nil {
		h.tail = n
	}
}

func (h *CacheHandler) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else if h.head == n {
		h.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if h.tail == n {
		h.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (h *CacheHandler) insert(addr tile.Address, t *tile.Tile) {
	n := &lruNode{addr: addr, t: t}
	h.nodes[addr] = n
	n.next = h.head
	if h.head != nil {
		h.head.prev = n
	}
	h.head = n
	if h.tail == nil {
		h.tail = n
	}
	size := int64(t.Width() * t.Height() * t.BytesPerPixel())
	h.usedBytes += size
	globalCacheBytes.Add(size)
}

func (h *CacheHandler) removeNode(n *lruNode) {
	h.unlink(n)
	delete(h.nodes, n.addr)
	size := int64(n.t.Width() * n.t.Height() * n.t.BytesPerPixel())
	h.usedBytes -= size
	globalCacheBytes.Add(-size)
}

// evictIfNeeded evicts least-recently-used clean entries first until under
// both the per-handler tile cap and the process-wide byte budget. When no
// clean entry is left, dirty entries are flushed downstream before eviction
// (spec.md §4.5); an entry whose flush fails is retained rather than losing
// data (spec.md §7). The flush error is returned only when no entry at all
// could be evicted, and the GET path discards it.
func (h *CacheHandler) evictIfNeeded() error {
	budget := globalBudget.Load()
	for h.overCapacity(budget) {
		victim := h.tail
		for n := h.tail; n != nil; n = n.prev {
			if !n.t.NeedsStore() {
				victim = n
				break
			}
		}
		for victim != nil && victim.t.NeedsStore() {
			// Flush this dirty tile downstream, then it becomes a clean
			// eviction candidate. Walk toward the head if the immediate
			// tail is dirty and flushing fails, to avoid starving
			// eviction on one stuck entry.
			res := h.forward(Command{Op: Set, Addr: victim.addr, Tile: victim.t})
			if res.Err != nil {
				victim = victim.prev
				continue
			}
			break
		}
		if victim == nil {
			// Every entry is dirty and failed to flush; stop rather than
			// silently dropping data.
			return &IOError{Op: "evict", Addr: "*", Err: errFlushStuck}
		}
		h.removeNode(victim)
	}
	return nil
}

func (h *CacheHandler) overCapacity(globalBudget int64) bool {
	if h.capacity > 0 && len(h.nodes) > h.capacity {
		return true
	}
	if globalBudget > 0 && globalCacheBytes.Load() > globalBudget {
		return len(h.nodes) > 0
	}
	return false
}

func (h *CacheHandler) Handle(cmd Command) Result {
	switch cmd.Op {
	case Get:
		return h.handleGet(cmd)
	case Set:
		return h.handleSet(cmd)
	case Void:
		h.mu.Lock()
		if n, ok := h.nodes[cmd.Addr]; ok {
			h.removeNode(n)
		}
		h.mu.Unlock()
		return h.forward(cmd)
	case Reinit:
		h.mu.Lock()
		h.nodes = make(map[tile.Address]*lruNode)
		h.head, h.tail = nil, nil
		h.usedBytes = 0
		h.mu.Unlock()
		return h.forward(cmd)
	case Flush:
		return h.handleFlush(cmd)
	case IsCached:
		h.mu.Lock()
		_, ok := h.nodes[cmd.Addr]
		h.mu.Unlock()
		return Result{Bool: ok}
	default:
		return h.forward(cmd)
	}
}

func (h *CacheHandler) handleGet(cmd Command) Result {
	h.mu.Lock()
	if n, ok := h.nodes[cmd.Addr]; ok {
		h.touch(n)
		t := n.t
		h.mu.Unlock()
		return Result{Tile: t}
	}

	// Collapse concurrent GETs for the same missing address to one
	// backend fetch (spec.md §4.5, §8 scenario 6).
	if ch, ok := h.inflight[cmd.Addr]; ok {
		h.mu.Unlock()
		<-ch
		h.mu.Lock()
		n, ok := h.nodes[cmd.Addr]
		h.mu.Unlock()
		if ok {
			return Result{Tile: n.t}
		}
		// The materializing goroutine hit an error; fall through and
		// try again ourselves.
		return h.handleGet(cmd)
	}

	done := make(chan struct{})
	h.inflight[cmd.Addr] = done
	h.mu.Unlock()

	res := h.forward(cmd)

	h.mu.Lock()
	delete(h.inflight, cmd.Addr)
	if res.Err == nil && res.Tile != nil {
		h.insert(cmd.Addr, res.Tile)
		_ = h.evictIfNeeded()
	}
	h.mu.Unlock()
	close(done)

	return res
}

func (h *CacheHandler) handleSet(cmd Command) Result {
	if cmd.Tile == nil {
		return h.forward(cmd)
	}
	h.mu.Lock()
	if n, ok := h.nodes[cmd.Addr]; ok {
		h.removeNode(n)
	}
	h.insert(cmd.Addr, cmd.Tile)
	h.touch(h.nodes[cmd.Addr])
	err := h.evictIfNeeded()
	h.mu.Unlock()
	if err != nil {
		return Result{Err: err}
	}
	return Result{}
}

func (h *CacheHandler) handleFlush(cmd Command) Result {
	h.mu.Lock()
	var dirty []*lruNode
	for n := h.tail; n != nil; n = n.prev {
		if n.t.NeedsStore() {
			dirty = append([]*lruNode{n}, dirty...)
		}
	}
	h.mu.Unlock()

	if len(dirty) > 1 {
		errs := make([]error, len(dirty))
		work := make([]func(), len(dirty))
		for i, n := range dirty {
			i, n := i, n
			work[i] = func() {
				errs[i] = h.forward(Command{Op: Set, Addr: n.addr, Tile: n.t}).Err
			}
		}
		getFlushPool().ExecuteAll(work)
		for _, err := range errs {
			if err != nil {
				return Result{Err: err}
			}
		}
	} else {
		for _, n := range dirty {
			if res := h.forward(Command{Op: Set, Addr: n.addr, Tile: n.t}); res.Err != nil {
				return res
			}
		}
	}
	return h.forward(cmd)
}

// Len reports the number of tiles currently cached, chiefly for tests
// asserting LRU bounds (spec.md §8 scenario 5).
func (h *CacheHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.nodes)
}
