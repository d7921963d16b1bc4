package gegltile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gogpu/gegltile/internal/tilestore"
)

// Config enumerates gegltile's process-wide configuration knobs
// (spec.md §6).
type Config struct {
	// Swap is a filesystem path, "ram", or "" (unset). "" or "ram" select
	// a RAM backend; any other value roots a swap-file backend there.
	Swap string

	// TileWidth and TileHeight are the default tile dimensions for newly
	// constructed storages. Zero selects the package default (128x64).
	TileWidth, TileHeight int

	// CacheSize is the process-wide cache byte budget (spec.md §5).
	CacheSize int64

	// BablTolerance is a conversion precision hint for the pixel format
	// adapter; gegltile's babl adapter does not yet vary precision by
	// tolerance, so this is carried through for forward compatibility
	// with a future lossy fast-path conversion.
	BablTolerance float64
}

// DefaultTileWidth and DefaultTileHeight are spec.md §6's defaults.
const (
	DefaultTileWidth  = 128
	DefaultTileHeight = 64
)

var defaultConfig atomic.Pointer[Config]

func init() {
	defaultConfig.Store(&Config{TileWidth: DefaultTileWidth, TileHeight: DefaultTileHeight})
}

// SetDefaultConfig installs the process-wide default configuration used by
// NewBuffer/NewStorage calls that do not specify their own.
func SetDefaultConfig(c Config) {
	if c.TileWidth == 0 {
		c.TileWidth = DefaultTileWidth
	}
	if c.TileHeight == 0 {
		c.TileHeight = DefaultTileHeight
	}
	defaultConfig.Store(&c)
	tilestore.SetGlobalByteBudget(c.CacheSize)
}

// DefaultConfig returns a copy of the current process-wide default config.
func DefaultConfig() Config {
	return *defaultConfig.Load()
}

var swapSeq atomic.Int64
var swapSeqPID = os.Getpid()

// generateSwapPath returns a unique "<pid>-<n>" path under dir, the naming
// scheme spec.md §4.7 step 3 specifies for an unnamed swap buffer.
func generateSwapPath(dir string) string {
	n := swapSeq.Add(1)
	return filepath.Join(dir, fmt.Sprintf("%d-%d", swapSeqPID, n))
}

// buildBackend constructs a Backend per spec.md §4.7 step 3: RAM if no
// swap is configured, otherwise a swap-file backend at path (or a
// generated unique path under cfg.Swap).
func buildBackend(cfg Config, path string, tw, th, bpp int) (tilestore.Backend, error) {
	if cfg.Swap == "" || cfg.Swap == "ram" {
		return tilestore.NewRAMBackend(tw, th, bpp), nil
	}
	if path == "" {
		path = generateSwapPath(cfg.Swap)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Swap, path)
	}
	return tilestore.OpenSwapBackend(path, tw, th, bpp)
}

// cacheCapacityTiles derives a per-storage tile-count cache bound from a
// byte budget and a tile's byte footprint, used when only CacheSize is
// configured (spec.md §6's cache_size is expressed in bytes, but the
// Cache handler's primary bound, per the Open Question resolution in
// DESIGN.md, is a tile count).
func cacheCapacityTiles(cfg Config, tw, th, bpp int) int {
	if cfg.CacheSize <= 0 {
		return 256
	}
	tileBytes := int64(tw * th * bpp)
	if tileBytes <= 0 {
		return 256
	}
	n := cfg.CacheSize / tileBytes
	if n < 1 {
		n = 1
	}
	return int(n)
}
