package gegltile

import (
	"sync"

	"github.com/gogpu/gegltile/internal/babl"
	"github.com/gogpu/gegltile/internal/tile"
	"github.com/gogpu/gegltile/internal/tilestore"
)

// ChangeListener is notified after a write changes a tile's revision
// (spec.md §4.6/§6 "changed(rect)"). Listeners must not call back into
// the emitting storage's writing API while the storage mutex is held
// (spec.md §9's signal-emission design note); Storage releases its mutex
// before invoking listeners.
type ChangeListener func(r Rect)

// Storage owns the handler chain, the mutex guarding chain traversal, a
// one-slot hot-tile shortcut, and the changed-rect signal (spec.md §4.6).
type Storage struct {
	mu sync.Mutex

	chain  *tilestore.Chain
	format babl.Format
	tw, th int

	hotAddr  tile.Address
	hotTile  *tile.Tile
	hotValid bool

	listeners []ChangeListener

	path string // swap path, "" for RAM/dir backends not worth naming
}

// storageNotifier adapts Storage to tile.Backer: the weak back-reference
// every Tile holds so Unlock can dispatch write-back without Storage
// owning Tiles directly (spec.md §9 breaks the Buffer<->Storage<->Tile
// cycle this way).
type storageNotifier struct{ s *Storage }

func (n storageNotifier) NotifyDirty(addr tile.Address) {
	// Write-back happens explicitly via Storage.Set/Flush; NotifyDirty
	// only needs to invalidate the hot-tile slot, since a locked-then-
	// unlocked tile may have been the hot tile with now-stale bytes no
	// longer matching what Get would hand out fresh from the chain.
	n.s.mu.Lock()
	if n.s.hotValid && n.s.hotAddr == addr {
		n.s.hotValid = false
	}
	n.s.mu.Unlock()
}

// NewStorage builds a Storage over backend, wiring a Cache handler of the
// given capacity and any extra user handlers (spec.md §4.3 construction
// order: Backend, Empty, Cache, [user]).
func NewStorage(backend tilestore.Backend, format babl.Format, cacheCapacity int, userHandlers ...tilestore.Handler) *Storage {
	s := &Storage{
		chain:  tilestore.NewChain(backend, cacheCapacity, userHandlers),
		format: format,
		tw:     backend.TileWidth(),
		th:     backend.TileHeight(),
	}
	return s
}

// EnableLogging attaches a Log handler at the top of the chain, tracing
// every command through gegltile's package logger (spec.md §4.3, §9).
func (s *Storage) EnableLogging() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chain.Append(tilestore.NewLogHandler(Logger()))
}

// Format returns the storage's pixel format.
func (s *Storage) Format() babl.Format { return s.format }

// TileWidth and TileHeight return the storage's fixed tile dimensions.
func (s *Storage) TileWidth() int  { return s.tw }
func (s *Storage) TileHeight() int { return s.th }

// AddListener registers l to be called after every Set that changes a
// tile's revision.
func (s *Storage) AddListener(l ChangeListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Storage) emit(r Rect) {
	s.mu.Lock()
	ls := append([]ChangeListener(nil), s.listeners...)
	s.mu.Unlock()
	for _, l := range ls {
		l(r)
	}
}

// Get returns the tile at addr, consulting a registered Accelerator before
// the hot-tile shortcut and the handler chain (spec.md §1/§5: an
// accelerator mirror is checked first when it can serve reads, so a warm
// mirror short-circuits both the hot-tile slot and the chain entirely).
func (s *Storage) Get(addr tile.Address) (*tile.Tile, error) {
	accel := GetAccelerator()
	if accel != nil && accel.CanAccelerate(AccelRead) {
		if data, ok := accel.MirrorGet(addr); ok {
			t := tile.New(addr, s.tw, s.th, s.format.BytesPerPixel())
			buf := t.Lock()
			copy(buf, data)
			t.Unlock()
			t.ClearDirty()
			t.SetBacker(storageNotifier{s})

			s.mu.Lock()
			s.hotAddr, s.hotTile, s.hotValid = addr, t, true
			s.mu.Unlock()

			return t, nil
		}
	}

	s.mu.Lock()
	if s.hotValid && s.hotAddr == addr {
		t := s.hotTile
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	res := s.chain.Handle(tilestore.Command{Op: tilestore.Get, Addr: addr})
	if res.Err != nil {
		return nil, res.Err
	}
	res.Tile.SetBacker(storageNotifier{s})

	s.mu.Lock()
	s.hotAddr, s.hotTile, s.hotValid = addr, res.Tile, true
	s.mu.Unlock()

	if accel != nil && accel.CanAccelerate(AccelRead) {
		accel.MirrorSet(addr, res.Tile.Bytes())
	}

	return res.Tile, nil
}

// Set adopts t as the persisted contents for addr and emits a changed
// signal over r once the write has landed.
func (s *Storage) Set(addr tile.Address, t *tile.Tile, r Rect) error {
	t.SetBacker(storageNotifier{s})
	res := s.chain.Handle(tilestore.Command{Op: tilestore.Set, Addr: addr, Tile: t})
	if res.Err != nil {
		return res.Err
	}

	s.mu.Lock()
	s.hotAddr, s.hotTile, s.hotValid = addr, t, true
	s.mu.Unlock()

	if accel := GetAccelerator(); accel != nil && accel.CanAccelerate(AccelWrite) {
		accel.MirrorSet(addr, t.Bytes())
	}

	s.emit(r)
	return nil
}

// Void deletes any persisted payload at addr, invalidates the hot-tile
// slot if it pointed there, and drops any accelerator mirror entry so a
// later Get cannot serve stale bytes from the mirror.
func (s *Storage) Void(addr tile.Address) error {
	res := s.chain.Handle(tilestore.Command{Op: tilestore.Void, Addr: addr})
	s.mu.Lock()
	if s.hotValid && s.hotAddr == addr {
		s.hotValid = false
	}
	s.mu.Unlock()

	if accel := GetAccelerator(); accel != nil && accel.CanAccelerate(AccelWrite) {
		accel.MirrorVoid(addr)
	}

	return res.Err
}

// Exist reports boolean presence without materialization.
func (s *Storage) Exist(addr tile.Address) bool {
	res := s.chain.Handle(tilestore.Command{Op: tilestore.Exist, Addr: addr})
	return res.Bool
}

// Flush persists all dirty in-memory state synchronously.
func (s *Storage) Flush() error {
	res := s.chain.Handle(tilestore.Command{Op: tilestore.Flush})
	return res.Err
}

// Reinit discards all volatile state, used when a shared backend is
// reopened by another holder.
func (s *Storage) Reinit() error {
	s.mu.Lock()
	s.hotValid = false
	s.mu.Unlock()
	res := s.chain.Handle(tilestore.Command{Op: tilestore.Reinit})
	return res.Err
}

// DropHot invalidates the hot-tile slot. Called whenever a Buffer built on
// this storage is disposed (spec.md §3: "a hot-tile pointer on the
// storage is dropped whenever any buffer built on that storage is
// disposed").
func (s *Storage) DropHot() {
	s.mu.Lock()
	s.hotValid = false
	s.mu.Unlock()
}

// TileIntersection pairs a tile address with the rectangle (in base pixel
// space) where the requested rectangle intersects that tile.
type TileIntersection struct {
	Addr tile.Address
	Rect Rect
}

// TileIter produces the row-major, left-to-right top-to-bottom sequence
// of (tile address, intersection rect) pairs covering r at level (spec.md
// §4.6). The returned slice is finite and safe to range over more than
// once; callers that want incremental consumption can simply break out of
// the range early, since no iterator state lives beyond the call.
func (s *Storage) TileIter(r Rect, level int) []TileIntersection {
	if r.Empty() {
		return nil
	}
	scale := 1 << uint(level)
	tw, th := s.tw*scale, s.th*scale

	x0 := floorDiv(r.X, tw)
	y0 := floorDiv(r.Y, th)
	x1 := floorDiv(r.X+r.W-1, tw)
	y1 := floorDiv(r.Y+r.H-1, th)

	var out []TileIntersection
	for ty := y0; ty <= y1; ty++ {
		for tx := x0; tx <= x1; tx++ {
			tileRect := Rect{X: tx * tw, Y: ty * th, W: tw, H: th}
			inter := tileRect.Intersect(r)
			if inter.Empty() {
				continue
			}
			out = append(out, TileIntersection{
				Addr: tile.Address{X: tx, Y: ty, Z: level},
				Rect: inter,
			})
		}
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
