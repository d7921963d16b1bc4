// Package tile implements the owning container for one fixed-size block of
// pixels plus its revision and dirty state (spec.md §4.1).
//
// A Tile's pixel payload is reference-counted and copy-on-write: cloning a
// tile (as the cache handler does when it snapshots a tile into its LRU) is
// O(1), and a write never mutates bytes any other holder of the tile might
// be reading. Lock always hands the writer a private copy of the payload,
// installing it as the tile's canonical bytes only at Unlock, so a
// concurrent Bytes() call sees either the whole pre-write payload or the
// whole post-write one, never a partial write. This mirrors the teacher
// module's tile pooling (internal/parallel.Tile / TilePool) generalized
// from a plain owned byte slice to a shared, copy-on-write one.
package tile

import (
	"sync"
	"sync/atomic"
)

// Backer is the tile's back-reference to its owning storage, used only for
// write-back dispatch on unlock, never for ownership (spec.md §9: the
// Buffer<->Storage<->Tile cycle is broken by making this a weak reference).
type Backer interface {
	// NotifyDirty is called when a tile transitions from clean to dirty;
	// unlocking a tile that is already dirty does not call it again.
	NotifyDirty(addr Address)
}

// payload is the reference-counted, copy-on-write pixel buffer shared by
// clones of a Tile.
type payload struct {
	refs atomic.Int32
	data []byte
}

func newPayload(size int) *payload {
	p := &payload{data: make([]byte, size)}
	p.refs.Store(1)
	return p
}

func (p *payload) retain() *payload {
	p.refs.Add(1)
	return p
}

func (p *payload) release() {
	p.refs.Add(-1)
}

// Tile is one fixed-size block of pixels in the storage's pixel format,
// plus the bookkeeping spec.md §3 requires: address, revision, dirty flag,
// lock counter, and a back-reference used only for write-back dispatch.
//
// Invariants (spec.md §3): lockCount >= 0; dirty implies the backend's
// persisted revision is older than Revision(); an unlocked tile is
// immutable from the viewpoint of any holder that has not re-locked it.
type Tile struct {
	mu sync.Mutex

	// writeMu serializes Lock..Unlock critical sections so at most one
	// private write-copy is ever in flight for this tile at a time; mu
	// alone guards quick metadata/payload-pointer reads such as Bytes.
	writeMu sync.Mutex

	addr     Address
	format   int // bytes per pixel
	width    int
	height   int
	revision uint64
	dirty    bool
	valid    bool // false after Void: contents are undefined
	lockCnt  int32

	pl *payload
	// pendingWrite is the private copy handed out by an in-progress Lock,
	// installed as pl only once Unlock runs; nil outside a Lock/Unlock
	// window.
	pendingWrite *payload

	backer Backer
}

// New allocates a zero-filled tile of the given address, format (bytes per
// pixel) and pixel dimensions, with no back-reference.
func New(addr Address, width, height, bytesPerPixel int) *Tile {
	return &Tile{
		addr:   addr,
		format: bytesPerPixel,
		width:  width,
		height: height,
		pl:     newPayload(width * height * bytesPerPixel),
		valid:  true,
	}
}

// SetBacker installs the tile's back-reference, used for write-back
// dispatch on Unlock. Called once by the storage that owns the tile.
func (t *Tile) SetBacker(b Backer) {
	t.mu.Lock()
	t.backer = b
	t.mu.Unlock()
}

// Address returns the tile's (x, y, z) address.
func (t *Tile) Address() Address { return t.addr }

// Revision returns the tile's monotonic revision counter.
func (t *Tile) Revision() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revision
}

// IsStored reports whether the tile has no unpersisted writes.
func (t *Tile) IsStored() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.dirty
}

// NeedsStore reports whether the tile has unpersisted writes (the
// complement of IsStored, spelled out for call-site readability).
func (t *Tile) NeedsStore() bool { return !t.IsStored() }

// Bytes returns the tile's raw pixel bytes for read-only access. The
// returned slice must not be mutated; callers that need to write must go
// through Lock first.
func (t *Tile) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pl.data
}

// Lock acquires the tile's write section (blocking until any other Lock
// in progress completes) and returns a private, mutable copy of the
// tile's pixel bytes. The copy is not visible to Bytes or to any other
// clone's payload until Unlock installs it, so writing through the
// returned slice never races with, or tears, a concurrent reader's view
// of the tile (spec.md §5's lock guards the tile payload).
//
// Lock/Unlock must be strictly paired (spec.md §4.1); a tile obtained from
// a GET without a subsequent Lock is read-only.
func (t *Tile) Lock() []byte {
	t.writeMu.Lock()

	t.mu.Lock()
	t.lockCnt++
	old := t.pl
	fresh := newPayload(len(old.data))
	copy(fresh.data, old.data)
	t.pendingWrite = fresh
	t.valid = true
	t.mu.Unlock()

	return fresh.data
}

// Unlock installs the private copy Lock handed out as the tile's new
// payload, bumps the revision, marks the tile dirty, and notifies the
// back-reference so the owning storage can schedule write-back. Releasing
// writeMu last lets the next Lock begin only once the new payload is
// already the one Bytes and future Locks observe.
func (t *Tile) Unlock() {
	t.mu.Lock()
	t.lockCnt--
	if t.lockCnt < 0 {
		t.mu.Unlock()
		// writeMu was never acquired by this call: an Unlock with no
		// matching Lock never took it, so there is nothing to release.
		panic("tile: unpaired Unlock")
	}

	old := t.pl
	t.pl = t.pendingWrite
	t.pendingWrite = nil
	old.release()

	t.revision++
	var notify bool
	if !t.dirty {
		t.dirty = true
		notify = true
	}
	backer, addr := t.backer, t.addr
	t.mu.Unlock()

	t.writeMu.Unlock()

	if notify && backer != nil {
		backer.NotifyDirty(addr)
	}
}

// LockCount returns the current lock counter, chiefly for tests asserting
// quiescent balance (spec.md §8: "the number of lock calls equals the
// number of unlock calls at quiescence").
func (t *Tile) LockCount() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lockCnt
}

// ClearDirty marks the tile as persisted. Called by a backend or the cache
// handler immediately after a successful write-back.
func (t *Tile) ClearDirty() {
	t.mu.Lock()
	t.dirty = false
	t.mu.Unlock()
}

// Clone produces a new Tile sharing this tile's payload (refcount
// incremented); the actual byte copy is deferred to the clone's next Lock.
// Used by the cache handler to snapshot a returned tile without an eager
// copy.
func (t *Tile) Clone() *Tile {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Tile{
		addr:     t.addr,
		format:   t.format,
		width:    t.width,
		height:   t.height,
		revision: t.revision,
		dirty:    t.dirty,
		valid:    t.valid,
		pl:       t.pl.retain(),
		backer:   t.backer,
	}
}

// WithAddress returns a clone of t re-addressed to addr, sharing t's
// payload. Used by the empty handler, whose single shared zero tile must
// be able to satisfy a GET for any address while reporting that address
// back to the caller (spec.md §4.3's GET invariant).
func WithAddress(t *Tile, addr Address) *Tile {
	c := t.Clone()
	c.addr = addr
	return c
}

// Void marks the tile's contents undefined, used when the backing extent
// shrinks away from it (spec.md §4.1). A voided tile still has valid
// lock/unlock bookkeeping but its pixel bytes should not be relied upon.
func (t *Tile) Void() {
	t.mu.Lock()
	t.valid = false
	t.dirty = false
	t.mu.Unlock()
}

// Valid reports whether Void has not been called since the tile was
// created or last re-locked.
func (t *Tile) Valid() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.valid
}

// Width returns the tile's pixel width.
func (t *Tile) Width() int { return t.width }

// Height returns the tile's pixel height.
func (t *Tile) Height() int { return t.height }

// BytesPerPixel returns the storage format's per-pixel byte size.
func (t *Tile) BytesPerPixel() int { return t.format }
