package tilestore

import (
	"path/filepath"
	"testing"

	"github.com/gogpu/gegltile/internal/tile"
)

func TestSwapBackendSetThenGetRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swap")
	b, err := OpenSwapBackend(path, 4, 4, 1)
	if err != nil {
		t.Fatalf("OpenSwapBackend: %v", err)
	}
	defer b.Close()

	addr := tile.Address{X: 1, Y: 1}
	tl := tile.New(addr, 4, 4, 1)
	tl.Lock()[0] = 7
	tl.Unlock()

	if res := b.Handle(Command{Op: Set, Addr: addr, Tile: tl}); res.Err != nil {
		t.Fatalf("Set: %v", res.Err)
	}
	res := b.Handle(Command{Op: Get, Addr: addr})
	if res.Err != nil {
		t.Fatalf("Get: %v", res.Err)
	}
	if res.Tile.Bytes()[0] != 7 {
		t.Fatalf("got %d, want 7", res.Tile.Bytes()[0])
	}
}

func TestSwapBackendGetMissReturnsZeroTile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swap")
	b, err := OpenSwapBackend(path, 4, 4, 1)
	if err != nil {
		t.Fatalf("OpenSwapBackend: %v", err)
	}
	defer b.Close()

	res := b.Handle(Command{Op: Get, Addr: tile.Address{X: 99}})
	if res.Err != nil {
		t.Fatalf("Get: %v", res.Err)
	}
	for _, v := range res.Tile.Bytes() {
		if v != 0 {
			t.Fatal("a miss on the swap backend should yield a zero-filled tile")
		}
	}
}

func TestSwapBackendVoidRecyclesSlotViaFreeList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swap")
	b, err := OpenSwapBackend(path, 4, 4, 1)
	if err != nil {
		t.Fatalf("OpenSwapBackend: %v", err)
	}
	defer b.Close()

	a1 := tile.Address{X: 1}
	b.Handle(Command{Op: Set, Addr: a1, Tile: tile.New(a1, 4, 4, 1)})
	slot1 := b.index[a1]

	b.Handle(Command{Op: Void, Addr: a1})
	if res := b.Handle(Command{Op: Exist, Addr: a1}); res.Bool {
		t.Fatal("Exist should be false after Void")
	}

	a2 := tile.Address{X: 2}
	b.Handle(Command{Op: Set, Addr: a2, Tile: tile.New(a2, 4, 4, 1)})
	slot2 := b.index[a2]

	if slot2 != slot1 {
		t.Fatalf("a freed slot should be recycled by the next Set: freed offset %d, reused offset %d", slot1, slot2)
	}
}

func TestSwapBackendExtentRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swap")
	b, err := OpenSwapBackend(path, 4, 4, 1)
	if err != nil {
		t.Fatalf("OpenSwapBackend: %v", err)
	}
	defer b.Close()

	if err := b.SetExtent(1, 2, 30, 40); err != nil {
		t.Fatalf("SetExtent: %v", err)
	}
	x, y, w, h, finite := b.Extent()
	if !finite || x != 1 || y != 2 || w != 30 || h != 40 {
		t.Fatalf("Extent() = (%d,%d,%d,%d,%v), want (1,2,30,40,true)", x, y, w, h, finite)
	}
}

func TestSwapBackendReopenRebuildsIndexFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swap")
	b1, err := OpenSwapBackend(path, 4, 4, 1)
	if err != nil {
		t.Fatalf("OpenSwapBackend: %v", err)
	}
	addr := tile.Address{X: 5, Y: 6}
	tl := tile.New(addr, 4, 4, 1)
	tl.Lock()[0] = 55
	tl.Unlock()
	b1.Handle(Command{Op: Set, Addr: addr, Tile: tl})
	b1.Handle(Command{Op: Flush})
	if err := b1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b2, err := OpenSwapBackend(path, 4, 4, 1)
	if err != nil {
		t.Fatalf("reopen OpenSwapBackend: %v", err)
	}
	defer b2.Close()

	res := b2.Handle(Command{Op: Get, Addr: addr})
	if res.Err != nil {
		t.Fatalf("Get after reopen: %v", res.Err)
	}
	if res.Tile.Bytes()[0] != 55 {
		t.Fatalf("got %d, want 55 after reopen", res.Tile.Bytes()[0])
	}
}

func TestSwapBackendReinitReloadsHeaderAndIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swap")
	b, err := OpenSwapBackend(path, 4, 4, 1)
	if err != nil {
		t.Fatalf("OpenSwapBackend: %v", err)
	}
	defer b.Close()

	addr := tile.Address{X: 3}
	b.Handle(Command{Op: Set, Addr: addr, Tile: tile.New(addr, 4, 4, 1)})

	if res := b.Handle(Command{Op: Reinit}); res.Err != nil {
		t.Fatalf("Reinit: %v", res.Err)
	}
	if res := b.Handle(Command{Op: Exist, Addr: addr}); !res.Bool {
		t.Fatal("Reinit should re-derive the same on-disk contents, not discard them")
	}
}

func TestSwapBackendClosedRejectsOps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swap")
	b, err := OpenSwapBackend(path, 4, 4, 1)
	if err != nil {
		t.Fatalf("OpenSwapBackend: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if res := b.Handle(Command{Op: Get, Addr: tile.Address{}}); res.Err != ErrClosed {
		t.Fatalf("Get after Close = %v, want ErrClosed", res.Err)
	}
}

func TestReadSwapHeaderInfoReportsSlotCensusWithoutLocking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swap")
	b, err := OpenSwapBackend(path, 4, 4, 1)
	if err != nil {
		t.Fatalf("OpenSwapBackend: %v", err)
	}
	a1 := tile.Address{X: 1}
	a2 := tile.Address{X: 2}
	b.Handle(Command{Op: Set, Addr: a1, Tile: tile.New(a1, 4, 4, 1)})
	b.Handle(Command{Op: Set, Addr: a2, Tile: tile.New(a2, 4, 4, 1)})
	b.Handle(Command{Op: Void, Addr: a1})
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := ReadSwapHeaderInfo(path)
	if err != nil {
		t.Fatalf("ReadSwapHeaderInfo: %v", err)
	}
	if info.TileWidth != 4 || info.TileHeight != 4 || info.BytesPerPixel != 1 {
		t.Fatalf("header dims = (%d,%d,%d), want (4,4,1)", info.TileWidth, info.TileHeight, info.BytesPerPixel)
	}
	if info.SlotCount != 2 {
		t.Fatalf("SlotCount = %d, want 2", info.SlotCount)
	}
	if info.FreeSlotCount != 1 {
		t.Fatalf("FreeSlotCount = %d, want 1 (a1 was Voided)", info.FreeSlotCount)
	}
}

func TestOpenSwapBackendRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.swap")
	b, err := OpenSwapBackend(path, 4, 4, 1)
	if err != nil {
		t.Fatalf("OpenSwapBackend: %v", err)
	}
	// Bump the on-disk version past what this build understands.
	b.header.version = swapVersion + 1
	if err := b.writeHeader(); err != nil {
		t.Fatalf("writeHeader: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := OpenSwapBackend(path, 4, 4, 1); err == nil {
		t.Fatal("OpenSwapBackend should reject a header version newer than this build understands")
	}
}
