package tilestore

import (
	"testing"

	"github.com/gogpu/gegltile/internal/tile"
)

func newTestChain(capacity int) *Chain {
	return NewChain(NewRAMBackend(4, 4, 1), capacity, nil)
}

func TestEmptyHandlerReturnsSharedZeroOnMiss(t *testing.T) {
	c := newTestChain(8)
	addr := tile.Address{X: 10, Y: 20}

	res := c.Handle(Command{Op: Get, Addr: addr})
	if res.Err != nil {
		t.Fatalf("Get error: %v", res.Err)
	}
	if res.Tile.Address() != addr {
		t.Fatalf("returned tile address = %+v, want %+v (GET invariant)", res.Tile.Address(), addr)
	}
	for _, v := range res.Tile.Bytes() {
		if v != 0 {
			t.Fatal("empty tile should be zero-filled")
		}
	}
}

func TestEmptyHandlerForwardsWhenBackendHasContent(t *testing.T) {
	c := newTestChain(8)
	addr := tile.Address{X: 1, Y: 1}

	tl := tile.New(addr, 4, 4, 1)
	tl.Lock()[0] = 55
	tl.Unlock()
	if res := c.Handle(Command{Op: Set, Addr: addr, Tile: tl}); res.Err != nil {
		t.Fatalf("Set error: %v", res.Err)
	}

	res := c.Handle(Command{Op: Get, Addr: addr})
	if res.Err != nil {
		t.Fatalf("Get error: %v", res.Err)
	}
	if res.Tile.Bytes()[0] != 55 {
		t.Fatalf("got %d, want 55 (should forward to persisted content)", res.Tile.Bytes()[0])
	}
}

func TestEmptyHandlerDistinctMissesGetDistinctAddresses(t *testing.T) {
	c := newTestChain(8)
	a1 := tile.Address{X: 1}
	a2 := tile.Address{X: 2}

	r1 := c.Handle(Command{Op: Get, Addr: a1})
	r2 := c.Handle(Command{Op: Get, Addr: a2})

	if r1.Tile.Address() != a1 || r2.Tile.Address() != a2 {
		t.Fatalf("got addresses %+v, %+v; want %+v, %+v", r1.Tile.Address(), r2.Tile.Address(), a1, a2)
	}
}
