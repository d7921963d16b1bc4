package gegltile

import (
	"github.com/gogpu/gegltile/internal/babl"
	"github.com/gogpu/gegltile/internal/tile"
	"github.com/gogpu/gegltile/internal/tilestore"
	"github.com/gogpu/gegltile/idpool"
)

// Buffer is the user-visible handle with extent, abyss, shift, and soft
// format, composing over a Storage or over a parent Buffer (spec.md §4.7).
type Buffer struct {
	storage *Storage
	parent  *Buffer

	extent Rect
	abyss  Rect
	tracks bool // abyss_tracks_extent

	shiftX, shiftY int
	softFormat     Format
}

// bufferConfig accumulates NewBuffer's optional construction parameters
// (spec.md §4.7's long parameter list, expressed as functional options
// the way the teacher module configures Context via options.go).
type bufferConfig struct {
	parent  *Buffer
	storage *Storage
	backend tilestore.Backend

	hasExtent bool
	extent    Rect

	shiftX, shiftY int

	hasAbyss bool
	abyss    Rect

	hasFormat bool
	format    Format

	tileWidth, tileHeight int

	path string

	hasCfg bool
	cfg    Config
}

// BufferOption configures NewBuffer.
type BufferOption func(*bufferConfig)

// WithParent builds a sub-buffer sharing p's storage.
func WithParent(p *Buffer) BufferOption { return func(c *bufferConfig) { c.parent = p } }

// WithStorage builds the buffer directly over an existing Storage.
func WithStorage(s *Storage) BufferOption { return func(c *bufferConfig) { c.storage = s } }

// WithBackend builds a new Storage over backend.
func WithBackend(b tilestore.Backend) BufferOption {
	return func(c *bufferConfig) { c.backend = b }
}

// WithExtent sets the buffer's logical pixel rectangle.
func WithExtent(x, y, w, h int) BufferOption {
	return func(c *bufferConfig) { c.hasExtent, c.extent = true, Rect{x, y, w, h} }
}

// WithShift sets an additional shift applied on top of any inherited from
// a parent buffer.
func WithShift(sx, sy int) BufferOption {
	return func(c *bufferConfig) { c.shiftX, c.shiftY = sx, sy }
}

// WithAbyss sets the abyss rectangle explicitly. Pass w=-1 or h=-1 to
// request inheriting the parent's abyss, shifted (spec.md §4.7 step 6).
func WithAbyss(x, y, w, h int) BufferOption {
	return func(c *bufferConfig) { c.hasAbyss, c.abyss = true, Rect{x, y, w, h} }
}

// WithFormat sets the buffer's soft (caller-visible) pixel format.
func WithFormat(f Format) BufferOption {
	return func(c *bufferConfig) { c.hasFormat, c.format = true, f }
}

// WithTileSize sets the tile dimensions used when this call constructs a
// fresh Storage (ignored when inheriting one via WithParent/WithStorage).
func WithTileSize(w, h int) BufferOption {
	return func(c *bufferConfig) { c.tileWidth, c.tileHeight = w, h }
}

// WithPath names the swap file path for a freshly constructed backend.
func WithPath(path string) BufferOption { return func(c *bufferConfig) { c.path = path } }

// WithConfig overrides the process-wide default Config for this buffer's
// construction only.
func WithConfig(cfg Config) BufferOption {
	return func(c *bufferConfig) { c.hasCfg, c.cfg = true, cfg }
}

// NewBuffer builds a Buffer per spec.md §4.7's seven-step construction
// logic.
func NewBuffer(opts ...BufferOption) (*Buffer, error) {
	var bc bufferConfig
	for _, o := range opts {
		o(&bc)
	}

	cfg := DefaultConfig()
	if bc.hasCfg {
		cfg = bc.cfg
	}
	tw, th := cfg.TileWidth, cfg.TileHeight
	if bc.tileWidth > 0 {
		tw = bc.tileWidth
	}
	if bc.tileHeight > 0 {
		th = bc.tileHeight
	}
	if tw <= 0 {
		tw = DefaultTileWidth
	}
	if th <= 0 {
		th = DefaultTileHeight
	}

	b := &Buffer{parent: bc.parent}

	switch {
	case bc.parent != nil:
		// Step 1: inherit storage, add cumulative shift.
		b.storage = bc.parent.storage
		b.shiftX = bc.parent.shiftX + bc.shiftX
		b.shiftY = bc.parent.shiftY + bc.shiftY

	case bc.storage != nil:
		b.storage = bc.storage
		b.shiftX, b.shiftY = bc.shiftX, bc.shiftY

	case bc.backend != nil:
		// Step 2: build a Storage on the supplied backend.
		format := babl.RGBAFloat
		if bc.hasFormat {
			format = bc.format
		}
		b.storage = NewStorage(bc.backend, format, cacheCapacityTiles(cfg, bc.backend.TileWidth(), bc.backend.TileHeight(), format.BytesPerPixel()))
		b.shiftX, b.shiftY = bc.shiftX, bc.shiftY

	default:
		// Step 3: create a backend from configuration.
		format := babl.RGBAFloat
		if bc.hasFormat {
			format = bc.format
		}
		backend, err := buildBackend(cfg, bc.path, tw, th, format.BytesPerPixel())
		if err != nil {
			return nil, err
		}
		b.storage = NewStorage(backend, format, cacheCapacityTiles(cfg, tw, th, format.BytesPerPixel()))
		b.shiftX, b.shiftY = bc.shiftX, bc.shiftY
	}

	// Step 5: extent.
	if bc.hasExtent {
		b.extent = bc.extent
	} else if bc.parent != nil {
		b.extent = bc.parent.extent
	}

	// Step 6: abyss.
	switch {
	case !bc.hasAbyss || (bc.abyss == Rect{}):
		b.abyss = b.extent
		b.tracks = true
	case bc.abyss.W == -1 || bc.abyss.H == -1:
		if bc.parent != nil {
			delta := bc.parent.shiftX - b.shiftX
			deltaY := bc.parent.shiftY - b.shiftY
			b.abyss = bc.parent.EffectiveAbyss().Shifted(delta, deltaY)
		} else {
			b.abyss = b.extent
			b.tracks = true
		}
	default:
		b.abyss = bc.abyss
		if bc.parent != nil {
			delta := bc.parent.shiftX - b.shiftX
			deltaY := bc.parent.shiftY - b.shiftY
			b.abyss = b.abyss.Intersect(bc.parent.EffectiveAbyss().Shifted(delta, deltaY))
		}
	}

	// Step 7: soft_format := format. When inheriting a storage (parent or
	// explicit WithStorage) a requested format must be storage-compatible;
	// when building a fresh storage the format already chose the storage's
	// own format above, so it trivially matches.
	b.softFormat = b.storage.Format()
	if bc.hasFormat {
		if (bc.parent != nil || bc.storage != nil) && !bc.format.StorageCompatible(b.storage.Format()) {
			return nil, ErrInvalidFormat
		}
		b.softFormat = bc.format
	}

	return b, nil
}

// AbyssTracksExtent reports whether SetExtent currently keeps the abyss in
// sync with the extent (spec.md §3 invariant, restored per original_source
// as a read-only introspection method the distillation dropped).
func (b *Buffer) AbyssTracksExtent() bool { return b.tracks }

// Extent returns the buffer's logical pixel rectangle.
func (b *Buffer) Extent() Rect { return b.extent }

// Abyss returns the buffer's own abyss rectangle (not intersected with any
// parent's; see EffectiveAbyss for that).
func (b *Buffer) Abyss() Rect { return b.abyss }

// EffectiveAbyss returns the intersection of this buffer's abyss with its
// parent chain's abyss, each expressed in this buffer's view-pixel space
// (spec.md §3 invariant).
func (b *Buffer) EffectiveAbyss() Rect {
	if b.parent == nil {
		return b.abyss
	}
	delta := b.parent.shiftX - b.shiftX
	deltaY := b.parent.shiftY - b.shiftY
	return b.abyss.Intersect(b.parent.EffectiveAbyss().Shifted(delta, deltaY))
}

// SoftFormat returns the format callers see.
func (b *Buffer) SoftFormat() Format { return b.softFormat }

// SetSoftFormat changes the caller-visible format. It fails with
// ErrInvalidFormat (leaving the buffer untouched) unless the new format is
// storage-compatible with the buffer's storage format (spec.md §3, §7).
func (b *Buffer) SetSoftFormat(f Format) error {
	if !f.StorageCompatible(b.storage.Format()) {
		return ErrInvalidFormat
	}
	b.softFormat = f
	return nil
}

// SetExtent updates the view's logical rectangle. When AbyssTracksExtent
// is true the abyss is updated to match; otherwise the abyss (having
// already diverged via an earlier SetAbyss) is left alone (spec.md §8
// boundary behavior).
func (b *Buffer) SetExtent(r Rect) {
	b.extent = r
	if b.tracks {
		b.abyss = r
	}
}

// SetAbyss updates the abyss rectangle directly, breaking
// AbyssTracksExtent from this point forward.
func (b *Buffer) SetAbyss(r Rect) {
	b.abyss = r
	b.tracks = false
}

// Close disposes the buffer, dropping the storage's hot-tile shortcut
// (spec.md §3: "a hot-tile pointer on the storage is dropped whenever any
// buffer built on that storage is disposed").
func (b *Buffer) Close() error {
	if b.storage != nil {
		b.storage.DropHot()
	}
	return nil
}

// Flush synchronously persists dirty state down the chain. A no-op for
// RAM-backed storages, since RAMBackend's own FLUSH is a no-op.
func (b *Buffer) Flush() error { return b.storage.Flush() }

// viewToStorage translates a view-space rectangle to storage-space by
// this buffer's cumulative shift.
func (b *Buffer) viewToStorage(r Rect) Rect { return r.Shifted(b.shiftX, b.shiftY) }

// CreateSubBuffer returns a new Buffer sharing this buffer's storage,
// with shift = parent_shift + (extent.X - parent.extent.X, extent.Y -
// parent.extent.Y) and an abyss intersected with the parent's (spec.md
// §4.7). A negative width or height logs a warning and returns a
// zero-sized buffer rather than failing (spec.md §7).
func (b *Buffer) CreateSubBuffer(extent Rect) *Buffer {
	if extent.W < 0 || extent.H < 0 {
		Logger().Warn("gegltile: negative sub-buffer extent", "w", extent.W, "h", extent.H)
		extent = Rect{}
	}
	dx := extent.X - b.extent.X
	dy := extent.Y - b.extent.Y
	sub, _ := NewBuffer(
		WithParent(b),
		WithShift(dx, dy),
		WithExtent(extent.X, extent.Y, extent.W, extent.H),
	)
	return sub
}

// Share allocates a process-wide handle for this buffer via the ID Pool
// (spec.md §4.9, §6 "buffer://" URI scheme).
func (b *Buffer) Share() int { return idpool.Add(b) }

// OpenBuffer resolves a handle previously returned by Share back to its
// Buffer, or nil if the handle is unknown.
func OpenBuffer(handle int) *Buffer {
	v, ok := idpool.Lookup(handle)
	if !ok {
		return nil
	}
	return v.(*Buffer)
}

// addrCursor memoizes the last tile fetched during a scanning operation,
// amortizing repeated lookups for the common case of many consecutive
// pixels in the same tile (the per-caller state spec.md §4.8 calls for in
// samplers, reused here for Get/Set's own tile walk).
type addrCursor struct {
	storage *Storage
	addr    tile.Address
	t       *tile.Tile
	valid   bool
}

func (c *addrCursor) get(addr tile.Address) (*tile.Tile, error) {
	if c.valid && c.addr == addr {
		return c.t, nil
	}
	t, err := c.storage.Get(addr)
	if err != nil {
		return nil, err
	}
	c.addr, c.t, c.valid = addr, t, true
	return t, nil
}
