package tilestore

import "github.com/gogpu/gegltile/internal/tile"

// EmptyHandler fabricates zero-filled tiles on demand, avoiding persisting
// untouched tiles (spec.md §4.4). It sits directly above the Backend: on
// GET it checks EXIST first, and only if the backend actually has
// persisted content does it forward the GET; otherwise it hands back a
// clone of one shared, lazily-allocated zero tile. Cloning is O(1)
// (refcount bump); the byte copy is deferred to whichever caller first
// Locks the clone for a write, so an empty storage costs one allocation
// total, never one per untouched tile.
type EmptyHandler struct {
	base

	zero *tile.Tile
}

// NewEmptyHandler creates an Empty handler. Its shared zero tile is
// allocated lazily on first GET miss once Bind has supplied format info.
func NewEmptyHandler() *EmptyHandler { return &EmptyHandler{} }

func (h *EmptyHandler) sharedZero(addr tile.Address) *tile.Tile {
	if h.zero == nil {
		h.zero = tile.New(addr, h.format.TileWidth, h.format.TileHeight, h.format.BytesPerPixel)
		h.zero.ClearDirty()
	}
	return h.zero.Clone()
}

func (h *EmptyHandler) Handle(cmd Command) Result {
	switch cmd.Op {
	case Get:
		existing := h.forward(Command{Op: Exist, Addr: cmd.Addr})
		if existing.Err != nil {
			return existing
		}
		if !existing.Bool {
			t := h.sharedZero(cmd.Addr)
			// The shared tile's address fields stay at whatever address
			// first allocated it; callers identify tiles by the address
			// they requested, not Tile.Address(), for empty clones. Give
			// the clone its own identity to uphold the chain invariant
			// that a GET's returned tile reports the requested address.
			return Result{Tile: withAddress(t, cmd.Addr)}
		}
		return h.forward(cmd)
	default:
		return h.forward(cmd)
	}
}

// withAddress returns t if its address already matches addr, or a cheap
// re-addressed clone otherwise. The shared empty tile is allocated once
// at whatever address first misses; every other address needs its own
// Address() to satisfy spec.md §4.3's GET invariant while still sharing
// the same payload.
func withAddress(t *tile.Tile, addr tile.Address) *tile.Tile {
	if t.Address() == addr {
		return t
	}
	return tile.WithAddress(t, addr)
}
