// Package idpool implements the process-wide handle allocator backing
// Buffer.Share/gegltile.OpenBuffer (spec.md §4.9): a package-level
// registry mapping small integer handles to shared values, plus the
// buffer:// URI scheme the original GEGL implementation builds from the
// process ID and a monotonic counter (original_source/gegl/buffer/
// gegl-buffer-share.c).
package idpool

import (
	"fmt"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	next   int
	items  = map[int]any{}
	pid    = os.Getpid()
)

// Add registers v and returns a fresh handle. Handles are never reused
// within a process lifetime, so a stale handle reliably misses Lookup
// rather than resolving to an unrelated later value.
func Add(v any) int {
	mu.Lock()
	defer mu.Unlock()
	next++
	items[next] = v
	return next
}

// Lookup resolves handle back to the value passed to Add, or returns
// ok=false if it was never registered or has since been Released.
func Lookup(handle int) (v any, ok bool) {
	mu.Lock()
	defer mu.Unlock()
	v, ok = items[handle]
	return
}

// Release drops handle from the registry. Lookup calls for it afterward
// return ok=false.
func Release(handle int) {
	mu.Lock()
	delete(items, handle)
	mu.Unlock()
}

// URI formats handle as a local-only buffer:// URI (spec.md §6): no host
// or port, since cross-process sharing is scoped to this process's
// address space and handles are only meaningful alongside this pid.
func URI(handle int) string {
	return fmt.Sprintf("buffer:///%d/%d", pid, handle)
}
