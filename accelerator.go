package gegltile

import (
	"errors"
	"sync"

	"github.com/gogpu/gegltile/internal/tile"
)

// Address identifies a tile by (x, y, z); re-exported from internal/tile
// so accelerator implementations outside this module can speak the same
// coordinate system as the storage core without reaching into internal/.
type Address = tile.Address

// AcceleratedOp describes the operations an Accelerator may offer to
// mirror, letting a Storage skip consulting one for operations it can't
// help with (spec.md §1: "how ... an accelerator cache coordinate[s]
// without corruption" with the rest of the chain).
type AcceleratedOp uint32

const (
	// AccelRead indicates the accelerator can serve GET from its own mirror.
	AccelRead AcceleratedOp = 1 << iota
	// AccelWrite indicates the accelerator wants to observe SET/VOID to
	// keep its mirror coherent.
	AccelWrite
)

// ErrFallbackToChain indicates the accelerator cannot serve this address
// from its mirror; the caller falls back to the ordinary handler chain.
var ErrFallbackToChain = errors.New("gegltile: accelerator miss, falling back to chain")

// Accelerator is an optional storage-side tile cache, the boundary hook
// spec.md §1/§2 reserves for "OpenCL acceleration" without specifying its
// kernel dispatch details: gegltile only defines the mirror-coherency
// contract, not what backs it (GPU memory, a second-tier disk cache, a
// remote cache node, ...).
//
// A registered Accelerator is consulted by Storage.Get before the handler
// chain, and kept informed of writes so its mirror never serves stale
// bytes (spec.md §5 ordering guarantees extend to it: a Set followed by a
// Get through the same storage must observe the write even when an
// accelerator is registered).
type Accelerator interface {
	// Name identifies the accelerator, e.g. "gpu-mirror", "shard-cache".
	Name() string

	// Init prepares the accelerator's resources. Called once on registration.
	Init() error

	// Close releases the accelerator's resources.
	Close()

	// CanAccelerate reports whether the accelerator participates in op.
	CanAccelerate(op AcceleratedOp) bool

	// MirrorGet returns mirrored tile bytes for addr, or ok=false on a
	// mirror miss (the caller then consults the handler chain as usual).
	MirrorGet(addr Address) (data []byte, ok bool)

	// MirrorSet updates (or inserts) the mirrored bytes for addr after a
	// write has been committed to the handler chain.
	MirrorSet(addr Address, data []byte)

	// MirrorVoid drops any mirrored entry for addr.
	MirrorVoid(addr Address)
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers the process-wide storage accelerator.
// Only one accelerator can be registered; subsequent calls replace the
// previous one, closing it after the new one's Init succeeds.
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("gegltile: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	propagateLogger(a, Logger())
	return nil
}

// GetAccelerator returns the currently registered accelerator, or nil.
func GetAccelerator() Accelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// CloseAccelerator shuts down the global accelerator, if any. Safe to call
// when none is registered (no-op), and idempotent.
func CloseAccelerator() {
	accelMu.Lock()
	a := accel
	accel = nil
	accelMu.Unlock()
	if a != nil {
		a.Close()
	}
}
