package tilestore

import (
	"sync"

	"github.com/gogpu/gegltile/internal/tile"
)

// RAMBackend persists tiles in a process-memory hash map under a mutex
// (spec.md §4.2). FLUSH is a no-op: there is nothing beyond the map to
// durably write.
type RAMBackend struct {
	base

	mu       sync.Mutex
	tiles    map[tile.Address]*tile.Tile
	tw, th   int
	bpp      int
	closed   bool
}

// NewRAMBackend creates an empty RAM-backed tile store for the given tile
// dimensions and pixel format.
func NewRAMBackend(tileWidth, tileHeight, bytesPerPixel int) *RAMBackend {
	return &RAMBackend{
		tiles: make(map[tile.Address]*tile.Tile),
		tw:    tileWidth,
		th:    tileHeight,
		bpp:   bytesPerPixel,
	}
}

func (b *RAMBackend) TileWidth() int     { return b.tw }
func (b *RAMBackend) TileHeight() int    { return b.th }
func (b *RAMBackend) BytesPerPixel() int { return b.bpp }

// Extent reports an infinite plane: RAM tiles are allocated on demand
// anywhere, with no known bound.
func (b *RAMBackend) Extent() (x, y, w, h int, finite bool) { return 0, 0, 0, 0, false }

func (b *RAMBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.tiles = nil
	return nil
}

// Handle implements Handler. RAMBackend is always a chain's terminus.
func (b *RAMBackend) Handle(cmd Command) Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Result{Err: ErrClosed}
	}

	switch cmd.Op {
	case Get:
		if t, ok := b.tiles[cmd.Addr]; ok {
			return Result{Tile: t}
		}
		t := newZeroTile(cmd.Addr, b.tw, b.th, b.bpp)
		t.ClearDirty()
		return Result{Tile: t}

	case Set:
		if cmd.Tile != nil {
			b.tiles[cmd.Addr] = cmd.Tile
			cmd.Tile.ClearDirty()
		}
		return Result{}

	case Exist:
		_, ok := b.tiles[cmd.Addr]
		return Result{Bool: ok}

	case IsCached:
		_, ok := b.tiles[cmd.Addr]
		return Result{Bool: ok}

	case Void:
		delete(b.tiles, cmd.Addr)
		return Result{}

	case Flush:
		return Result{}

	case Reinit:
		b.tiles = make(map[tile.Address]*tile.Tile)
		return Result{}

	default:
		return Result{}
	}
}
