package tilestore

import "github.com/gogpu/gegltile/internal/tile"

// Backend persists tiles by (x, y, z) address (spec.md §4.2). It is the
// terminus of a handler Chain: its Next() is always nil.
type Backend interface {
	Handler

	// TileWidth and TileHeight report the backend's fixed tile dimensions.
	TileWidth() int
	TileHeight() int

	// BytesPerPixel reports the backend's storage format footprint.
	BytesPerPixel() int

	// Extent reports the backend's known pixel extent. finite is false
	// for backends (RAM, tile-directory) that model an infinite plane and
	// allocate tiles anywhere on demand.
	Extent() (x, y, w, h int, finite bool)

	// Close releases any resources (open files, etc.) held by the backend.
	Close() error
}

// newZeroTile allocates a fresh zero-filled tile for addr using a backend's
// configured dimensions, shared by every backend's GET-miss path that is
// allowed to lazily materialize.
func newZeroTile(addr tile.Address, tw, th, bpp int) *tile.Tile {
	return tile.New(addr, tw, th, bpp)
}
