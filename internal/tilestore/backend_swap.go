package tilestore

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/gogpu/gegltile/internal/tile"
)

// Swap-file layout (spec.md §4.2, §6):
//
//	header (headerSize bytes): magic, version, tile_width, tile_height,
//	  bytes_per_pixel, extent (x,y,w,h), free-list head offset.
//	tile slots, each slotHeaderSize + (tile_width*tile_height*bpp) bytes:
//	  x, y, z (int32 each), used flag, next-free-slot offset (valid only
//	  while the slot is free, chaining the free list), pixel payload.
//
// Free slots form a singly linked list whose head offset lives in the
// header. Deletion (VOID) pushes the slot onto the free list; allocation
// pops it, or appends a new slot at end of file if the list is empty.
const (
	swapMagic      uint32 = 0x47454754 // "GEGT"
	swapVersion    uint32 = 1
	headerSize            = 64
	slotHeaderSize         = 32
)

type swapHeader struct {
	magic        uint32
	version      uint32
	tileWidth    uint32
	tileHeight   uint32
	bpp          uint32
	extentX      int32
	extentY      int32
	extentW      int32
	extentH      int32
	freeListHead int64 // -1 means empty
}

func (h *swapHeader) encode() []byte {
	b := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(b[0:4], h.magic)
	binary.LittleEndian.PutUint32(b[4:8], h.version)
	binary.LittleEndian.PutUint32(b[8:12], h.tileWidth)
	binary.LittleEndian.PutUint32(b[12:16], h.tileHeight)
	binary.LittleEndian.PutUint32(b[16:20], h.bpp)
	binary.LittleEndian.PutUint32(b[20:24], uint32(h.extentX))
	binary.LittleEndian.PutUint32(b[24:28], uint32(h.extentY))
	binary.LittleEndian.PutUint32(b[28:32], uint32(h.extentW))
	binary.LittleEndian.PutUint32(b[32:36], uint32(h.extentH))
	binary.LittleEndian.PutUint64(b[36:44], uint64(h.freeListHead))
	return b
}

func decodeHeader(b []byte) (*swapHeader, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("tilestore: short swap header")
	}
	h := &swapHeader{
		magic:      binary.LittleEndian.Uint32(b[0:4]),
		version:    binary.LittleEndian.Uint32(b[4:8]),
		tileWidth:  binary.LittleEndian.Uint32(b[8:12]),
		tileHeight: binary.LittleEndian.Uint32(b[12:16]),
		bpp:        binary.LittleEndian.Uint32(b[16:20]),
		extentX:    int32(binary.LittleEndian.Uint32(b[20:24])),
		extentY:    int32(binary.LittleEndian.Uint32(b[24:28])),
		extentW:    int32(binary.LittleEndian.Uint32(b[28:32])),
		extentH:    int32(binary.LittleEndian.Uint32(b[32:36])),
	}
	h.freeListHead = int64(binary.LittleEndian.Uint64(b[36:44]))
	if h.magic != swapMagic {
		return nil, ErrBadMagic
	}
	if h.version > swapVersion {
		return nil, ErrVersionMismatch
	}
	return h, nil
}

// slotHeader is the fixed-size prefix of every tile slot.
type slotHeader struct {
	x, y, z  int32
	used     uint8
	nextFree int64
}

func (s *slotHeader) encode() []byte {
	b := make([]byte, slotHeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(s.x))
	binary.LittleEndian.PutUint32(b[4:8], uint32(s.y))
	binary.LittleEndian.PutUint32(b[8:12], uint32(s.z))
	b[12] = s.used
	binary.LittleEndian.PutUint64(b[13:21], uint64(s.nextFree))
	return b
}

func decodeSlotHeader(b []byte) slotHeader {
	return slotHeader{
		x:        int32(binary.LittleEndian.Uint32(b[0:4])),
		y:        int32(binary.LittleEndian.Uint32(b[4:8])),
		z:        int32(binary.LittleEndian.Uint32(b[8:12])),
		used:     b[12],
		nextFree: int64(binary.LittleEndian.Uint64(b[13:21])),
	}
}

// SwapBackend persists tiles in a single growing file with a fixed-size
// header and a free-list of recycled tile slots (spec.md §4.2). Header
// mutations are guarded by an advisory OS file lock so multiple processes
// may share one swap file.
type SwapBackend struct {
	base

	mu       sync.Mutex
	f        *os.File
	header   *swapHeader
	slotSize int64
	// index maps a live tile address to the byte offset of its slot.
	index  map[tile.Address]int64
	closed bool
}

// OpenSwapBackend opens (creating if absent) a swap file at path for tiles
// of the given dimensions and format. If the file already exists, its
// header is validated against tileWidth/tileHeight/bytesPerPixel.
func OpenSwapBackend(path string, tileWidth, tileHeight, bytesPerPixel int) (*SwapBackend, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tilestore: open swap file: %w", err)
	}

	if err := flockExclusive(f.Fd()); err != nil {
		f.Close()
		return nil, fmt.Errorf("tilestore: lock swap file: %w", err)
	}
	defer funlock(f.Fd())

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	b := &SwapBackend{f: f, index: make(map[tile.Address]int64)}

	if info.Size() == 0 {
		b.header = &swapHeader{
			magic:        swapMagic,
			version:      swapVersion,
			tileWidth:    uint32(tileWidth),
			tileHeight:   uint32(tileHeight),
			bpp:          uint32(bytesPerPixel),
			freeListHead: -1,
		}
		if _, err := f.WriteAt(b.header.encode(), 0); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		hb := make([]byte, headerSize)
		if _, err := f.ReadAt(hb, 0); err != nil {
			f.Close()
			return nil, err
		}
		h, err := decodeHeader(hb)
		if err != nil {
			f.Close()
			return nil, err
		}
		if int(h.tileWidth) != tileWidth || int(h.tileHeight) != tileHeight || int(h.bpp) != bytesPerPixel {
			f.Close()
			return nil, fmt.Errorf("tilestore: swap file holds %dx%d tiles at %d bytes per pixel, want %dx%d at %d",
				h.tileWidth, h.tileHeight, h.bpp, tileWidth, tileHeight, bytesPerPixel)
		}
		b.header = h
	}

	b.slotSize = int64(slotHeaderSize) + int64(b.header.tileWidth)*int64(b.header.tileHeight)*int64(b.header.bpp)

	if err := b.rebuildIndex(); err != nil {
		f.Close()
		return nil, err
	}

	return b, nil
}

// rebuildIndex scans every slot in the file once, recording the offset of
// each currently used address. Called on open (and Reinit) since the swap
// file has no separate directory section: the slots are the directory.
func (b *SwapBackend) rebuildIndex() error {
	info, err := b.f.Stat()
	if err != nil {
		return err
	}
	offset := int64(headerSize)
	buf := make([]byte, slotHeaderSize)
	for offset+b.slotSize <= info.Size() {
		if _, err := b.f.ReadAt(buf, offset); err != nil {
			return err
		}
		sh := decodeSlotHeader(buf)
		if sh.used != 0 {
			b.index[tile.Address{X: int(sh.x), Y: int(sh.y), Z: int(sh.z)}] = offset
		}
		offset += b.slotSize
	}
	return nil
}

func (b *SwapBackend) TileWidth() int     { return int(b.header.tileWidth) }
func (b *SwapBackend) TileHeight() int    { return int(b.header.tileHeight) }
func (b *SwapBackend) BytesPerPixel() int { return int(b.header.bpp) }

// Extent reports the header's recorded extent. A zero-sized extent means
// no caller has ever recorded one (finite is still true: the header field
// exists, it is just empty).
func (b *SwapBackend) Extent() (x, y, w, h int, finite bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.header.extentX), int(b.header.extentY), int(b.header.extentW), int(b.header.extentH), true
}

// SetExtent records a new logical extent in the header and writes the
// header to the file immediately.
func (b *SwapBackend) SetExtent(x, y, w, h int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.header.extentX, b.header.extentY = int32(x), int32(y)
	b.header.extentW, b.header.extentH = int32(w), int32(h)
	return b.withFileLock(b.writeHeader)
}

// SwapHeaderInfo is a read-only snapshot of a swap file's header, for
// introspection tools (cmd/gegltile-bufinfo) that should never need to
// open the backend for read/write access just to report its shape.
type SwapHeaderInfo struct {
	Version                   uint32
	TileWidth, TileHeight     int
	BytesPerPixel             int
	ExtentX, ExtentY          int
	ExtentW, ExtentH          int
	SlotCount, FreeSlotCount  int
}

// ReadSwapHeaderInfo opens path read-only and reports its header fields
// plus a slot/free-slot census, without taking the advisory write lock
// OpenSwapBackend does.
func ReadSwapHeaderInfo(path string) (SwapHeaderInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return SwapHeaderInfo{}, err
	}
	defer f.Close()

	hb := make([]byte, headerSize)
	if _, err := f.ReadAt(hb, 0); err != nil {
		return SwapHeaderInfo{}, err
	}
	h, err := decodeHeader(hb)
	if err != nil {
		return SwapHeaderInfo{}, err
	}

	info := SwapHeaderInfo{
		Version:       h.version,
		TileWidth:     int(h.tileWidth),
		TileHeight:    int(h.tileHeight),
		BytesPerPixel: int(h.bpp),
		ExtentX:       int(h.extentX),
		ExtentY:       int(h.extentY),
		ExtentW:       int(h.extentW),
		ExtentH:       int(h.extentH),
	}

	slotSize := int64(slotHeaderSize) + int64(h.tileWidth)*int64(h.tileHeight)*int64(h.bpp)
	stat, err := f.Stat()
	if err != nil {
		return info, err
	}
	buf := make([]byte, slotHeaderSize)
	for offset := int64(headerSize); offset+slotSize <= stat.Size(); offset += slotSize {
		if _, err := f.ReadAt(buf, offset); err != nil {
			return info, err
		}
		info.SlotCount++
		if decodeSlotHeader(buf).used == 0 {
			info.FreeSlotCount++
		}
	}
	return info, nil
}

// withFileLock runs fn with the swap file's advisory OS lock held, so a
// header or free-list mutation is atomic with respect to any other process
// that opens or mutates the same swap file (spec.md §4.2, §6). Callers must
// already hold b.mu; the OS lock only adds cross-process exclusion on top.
func (b *SwapBackend) withFileLock(fn func() error) error {
	if err := flockExclusive(b.f.Fd()); err != nil {
		return err
	}
	defer funlock(b.f.Fd())
	return fn()
}

func (b *SwapBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.f.Close()
}

// allocSlot pops a slot from the free list, or appends a new one at EOF.
// Caller must hold b.mu and the OS file lock (withFileLock).
func (b *SwapBackend) allocSlot() (int64, error) {
	if b.header.freeListHead >= 0 {
		offset := b.header.freeListHead
		buf := make([]byte, slotHeaderSize)
		if _, err := b.f.ReadAt(buf, offset); err != nil {
			return 0, err
		}
		sh := decodeSlotHeader(buf)
		b.header.freeListHead = sh.nextFree
		if err := b.writeHeader(); err != nil {
			return 0, err
		}
		return offset, nil
	}
	info, err := b.f.Stat()
	if err != nil {
		return 0, err
	}
	offset := info.Size()
	if offset < headerSize {
		offset = headerSize
	}
	return offset, nil
}

// writeHeader persists the in-memory header. Caller must hold b.mu and the
// OS file lock (withFileLock).
func (b *SwapBackend) writeHeader() error {
	_, err := b.f.WriteAt(b.header.encode(), 0)
	return err
}

// freeSlot pushes offset onto the free list. Caller must hold b.mu and the
// OS file lock (withFileLock).
func (b *SwapBackend) freeSlot(offset int64) error {
	sh := slotHeader{used: 0, nextFree: b.header.freeListHead}
	if _, err := b.f.WriteAt(sh.encode(), offset); err != nil {
		return err
	}
	b.header.freeListHead = offset
	return b.writeHeader()
}

func (b *SwapBackend) Handle(cmd Command) Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Result{Err: ErrClosed}
	}

	tw, th, bpp := int(b.header.tileWidth), int(b.header.tileHeight), int(b.header.bpp)

	switch cmd.Op {
	case Get:
		offset, ok := b.index[cmd.Addr]
		if !ok {
			t := newZeroTile(cmd.Addr, tw, th, bpp)
			t.ClearDirty()
			return Result{Tile: t}
		}
		buf := make([]byte, b.slotSize)
		if _, err := b.f.ReadAt(buf, offset); err != nil {
			return Result{Err: &IOError{Op: "get", Addr: addrString(cmd.Addr), Err: err}}
		}
		t := newZeroTile(cmd.Addr, tw, th, bpp)
		copy(t.Lock(), buf[slotHeaderSize:])
		t.Unlock()
		t.ClearDirty()
		return Result{Tile: t}

	case Set:
		if cmd.Tile == nil {
			return Result{}
		}
		offset, ok := b.index[cmd.Addr]
		if !ok {
			var err error
			if lockErr := b.withFileLock(func() error {
				offset, err = b.allocSlot()
				return err
			}); lockErr != nil {
				return Result{Err: &IOError{Op: "set", Addr: addrString(cmd.Addr), Err: lockErr}}
			}
			if err != nil {
				return Result{Err: &IOError{Op: "set", Addr: addrString(cmd.Addr), Err: err}}
			}
			b.index[cmd.Addr] = offset
		}
		sh := slotHeader{x: int32(cmd.Addr.X), y: int32(cmd.Addr.Y), z: int32(cmd.Addr.Z), used: 1}
		rec := make([]byte, b.slotSize)
		copy(rec, sh.encode())
		copy(rec[slotHeaderSize:], cmd.Tile.Bytes())
		if _, err := b.f.WriteAt(rec, offset); err != nil {
			return Result{Err: &IOError{Op: "set", Addr: addrString(cmd.Addr), Err: err}}
		}
		cmd.Tile.ClearDirty()
		return Result{}

	case Exist, IsCached:
		_, ok := b.index[cmd.Addr]
		return Result{Bool: ok}

	case Void:
		offset, ok := b.index[cmd.Addr]
		if !ok {
			return Result{}
		}
		delete(b.index, cmd.Addr)
		if err := b.withFileLock(func() error { return b.freeSlot(offset) }); err != nil {
			return Result{Err: &IOError{Op: "void", Addr: addrString(cmd.Addr), Err: err}}
		}
		return Result{}

	case Flush:
		if err := b.f.Sync(); err != nil {
			return Result{Err: &IOError{Op: "flush", Addr: "*", Err: err}}
		}
		return Result{}

	case Reinit:
		b.index = make(map[tile.Address]int64)
		var h *swapHeader
		if err := b.withFileLock(func() error {
			hb := make([]byte, headerSize)
			if _, err := b.f.ReadAt(hb, 0); err != nil {
				return err
			}
			decoded, err := decodeHeader(hb)
			if err != nil {
				return err
			}
			h = decoded
			return nil
		}); err != nil {
			return Result{Err: err}
		}
		b.header = h
		if err := b.rebuildIndex(); err != nil {
			return Result{Err: err}
		}
		return Result{}

	default:
		return Result{}
	}
}
