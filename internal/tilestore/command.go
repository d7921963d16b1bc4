// Package tilestore implements the handler chain that sits between a
// Storage and its persistence backend (spec.md §4.2-§4.6): an ordered
// pipeline of handlers — top to bottom: Log (when attached), any user
// handlers, Cache, Empty — terminating at a Backend (RAM map, tile-directory, or packed swap file).
//
// The chain is modeled as a slice of Handler values rather than a deep
// interface hierarchy, matching spec.md §9's redesign note ("avoid deep
// type hierarchies; tagged variants or boxed interfaces in a list").
package tilestore

import "github.com/gogpu/gegltile/internal/tile"

// Op identifies a tile command.
type Op int

const (
	// Get fetches the tile for an address, materializing it if necessary.
	Get Op = iota
	// Set adopts the supplied tile's payload as persisted contents.
	Set
	// IsCached reports whether an address is currently cache-resident,
	// without triggering materialization.
	IsCached
	// Exist reports boolean presence without materialization.
	Exist
	// Void deletes any persisted payload for an address.
	Void
	// Flush persists all dirty in-memory state synchronously.
	Flush
	// Reinit discards all volatile state (a shared backend being reopened).
	Reinit
	// Copy requests a tile-aligned duplication fast path; handlers that do
	// not implement it forward to the next link unchanged.
	Copy
)

// Command is a single tile-chain request as described in spec.md §2: a
// tuple of (op, x, y, z, data).
type Command struct {
	Op   Op
	Addr tile.Address
	// Tile carries the payload for Set and the result of Get; nil for
	// Op values that need no tile argument.
	Tile *tile.Tile
}

// Result is the outcome of dispatching a Command down the chain.
type Result struct {
	Tile   *tile.Tile
	Bool   bool
	Err    error
}
