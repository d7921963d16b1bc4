// Package gegltile provides a tile-based, copy-on-write, concurrently
// accessible pixel buffer.
//
// # Overview
//
// A Buffer presents an arbitrarily large 2D pixel plane backed by fixed-
// size tiles materialized lazily as they are touched. Tiles are
// reference-counted and copy-on-write, so cloning one for a cache entry or
// a sub-buffer view is O(1); the byte copy only happens on the next write.
//
// # Quick Start
//
//	import "github.com/gogpu/gegltile"
//
//	buf, err := gegltile.NewBuffer(
//		gegltile.WithExtent(0, 0, 1024, 768),
//		gegltile.WithFormat(gegltile.RGBAFloat),
//	)
//
//	row := make([]byte, 1024*gegltile.RGBAFloat.BytesPerPixel())
//	buf.Set(gegltile.Rect{X: 0, Y: 0, W: 1024, H: 1}, gegltile.RGBAFloat, len(row), row)
//
// # Backends
//
// Three tile backends are provided:
//   - an in-memory map (the default)
//   - one file per tile under a directory
//   - a single packed swap file with multi-process advisory locking
//
// # Architecture
//
// The library is organized into:
//   - Public API: Buffer, Storage, RepeatMode, Accelerator
//   - internal/tile: the copy-on-write tile and its address space
//   - internal/tilestore: backends, the handler chain, and the LRU cache
//   - internal/babl: pixel format descriptors and conversion
//   - sampler: point-sample reconstruction filters
//   - idpool: process-wide buffer handle allocation for Buffer.Share
//
// # Coordinate System
//
// Standard computer graphics coordinates: origin at top-left, X increases
// right, Y increases down.
package gegltile
