package tilestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gogpu/gegltile/internal/cache"
	"github.com/gogpu/gegltile/internal/tile"
)

// DirBackend persists each tile as one file under a directory, named
// "<x>_<y>_<z>" (spec.md §6: "exact scheme is a choice of the
// implementer; only uniqueness per address matters"). FLUSH is a no-op:
// every SET already writes the file synchronously.
type DirBackend struct {
	base

	mu     sync.Mutex
	dir    string
	tw, th int
	bpp    int
	closed bool

	// existMemo avoids a stat(2) syscall for repeated EXIST/IS_CACHED
	// checks against the same address, the common pattern of the Empty
	// handler probing before every miss.
	existMemo *cache.Cache[tile.Address, bool]
}

// NewDirBackend creates a tile-directory backend rooted at dir, creating
// dir if it does not already exist.
func NewDirBackend(dir string, tileWidth, tileHeight, bytesPerPixel int) (*DirBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tilestore: create tile directory: %w", err)
	}
	return &DirBackend{
		dir: dir, tw: tileWidth, th: tileHeight, bpp: bytesPerPixel,
		existMemo: cache.New[tile.Address, bool](4096),
	}, nil
}

func (b *DirBackend) TileWidth() int     { return b.tw }
func (b *DirBackend) TileHeight() int    { return b.th }
func (b *DirBackend) BytesPerPixel() int { return b.bpp }

// Extent reports an infinite plane: a tile-directory backend has no fixed
// bound, it simply has a file or not for any given address.
func (b *DirBackend) Extent() (x, y, w, h int, finite bool) { return 0, 0, 0, 0, false }

func (b *DirBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *DirBackend) path(addr tile.Address) string {
	name := strconv.Itoa(addr.X) + "_" + strconv.Itoa(addr.Y) + "_" + strconv.Itoa(addr.Z)
	return filepath.Join(b.dir, name)
}

func (b *DirBackend) Handle(cmd Command) Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Result{Err: ErrClosed}
	}

	switch cmd.Op {
	case Get:
		data, err := os.ReadFile(b.path(cmd.Addr))
		if err != nil {
			if os.IsNotExist(err) {
				t := newZeroTile(cmd.Addr, b.tw, b.th, b.bpp)
				t.ClearDirty()
				return Result{Tile: t}
			}
			return Result{Err: &IOError{Op: "get", Addr: addrString(cmd.Addr), Err: err}}
		}
		t := newZeroTile(cmd.Addr, b.tw, b.th, b.bpp)
		copy(t.Lock(), data)
		t.Unlock()
		t.ClearDirty()
		return Result{Tile: t}

	case Set:
		if cmd.Tile == nil {
			return Result{}
		}
		if err := os.WriteFile(b.path(cmd.Addr), cmd.Tile.Bytes(), 0o644); err != nil {
			return Result{Err: &IOError{Op: "set", Addr: addrString(cmd.Addr), Err: err}}
		}
		cmd.Tile.ClearDirty()
		b.existMemo.Set(cmd.Addr, true)
		return Result{}

	case Exist, IsCached:
		if ok, hit := b.existMemo.Get(cmd.Addr); hit {
			return Result{Bool: ok}
		}
		_, err := os.Stat(b.path(cmd.Addr))
		exists := err == nil
		b.existMemo.Set(cmd.Addr, exists)
		return Result{Bool: exists}

	case Void:
		err := os.Remove(b.path(cmd.Addr))
		if err != nil && !os.IsNotExist(err) {
			return Result{Err: &IOError{Op: "void", Addr: addrString(cmd.Addr), Err: err}}
		}
		b.existMemo.Set(cmd.Addr, false)
		return Result{}

	case Flush:
		return Result{}

	case Reinit:
		b.existMemo.Clear()
		return Result{}

	default:
		return Result{}
	}
}

func addrString(a tile.Address) string {
	return strconv.Itoa(a.X) + "," + strconv.Itoa(a.Y) + "," + strconv.Itoa(a.Z)
}
