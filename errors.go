package gegltile

import "errors"

// Sentinel errors for gegltile (spec.md §7).
var (
	// ErrInvalidFormat is returned when a soft-format change would alter
	// bytes-per-pixel, which a Buffer can never present without also
	// changing its storage.
	ErrInvalidFormat = errors.New("gegltile: invalid format")

	// ErrNoSwapDir is returned when swap-file storage is requested but no
	// directory is configured.
	ErrNoSwapDir = errors.New("gegltile: no swap directory configured")

	// ErrLockOrder names an unpaired Lock/Unlock or other violation a
	// programmer should not be able to trigger via the public API.
	ErrLockOrder = errors.New("gegltile: lock order violation")
)

// NegativeExtentError describes a request for a negative width or height.
// CreateSubBuffer does not return it: on a negative extent it logs a
// warning and returns a zero-sized buffer.
type NegativeExtentError struct {
	Width, Height int
}

func (e *NegativeExtentError) Error() string {
	return "gegltile: negative sub-buffer extent"
}
