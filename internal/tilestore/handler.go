package tilestore

// Handler is one link in a chain sitting above the backend (spec.md §4.3).
// It transforms or intercepts tile commands, forwarding anything it does
// not itself handle to its downstream source.
type Handler interface {
	// Handle dispatches cmd, consulting or mutating this handler's own
	// state and forwarding to Next() as needed.
	Handle(cmd Command) Result

	// SetNext installs this handler's downstream link. Called once by
	// Chain during construction, bottom-up.
	SetNext(h Handler)

	// Next returns the downstream link, or nil if this handler is the
	// chain's terminus (the Backend).
	Next() Handler

	// Bind propagates the owning storage's format and tile dimensions to
	// the handler, called once when the chain is assembled.
	Bind(format FormatInfo)
}

// FormatInfo is the subset of a Storage's configuration every handler
// needs to size tiles correctly: bytes per pixel and tile dimensions.
type FormatInfo struct {
	BytesPerPixel       int
	TileWidth, TileHeight int
}

// base is embedded by concrete handlers to get SetNext/Next/Bind for free,
// the way the teacher's internal/cache and internal/parallel packages
// factor small shared pieces into unexported helper types rather than
// exporting a base class to embed everywhere.
type base struct {
	next   Handler
	format FormatInfo
}

func (b *base) SetNext(h Handler)     { b.next = h }
func (b *base) Next() Handler         { return b.next }
func (b *base) Bind(f FormatInfo)     { b.format = f }

// forward sends cmd to the next handler, or returns a zero Result if this
// is the chain's terminus (should not happen in a correctly assembled
// chain, since Backend is always present).
func (b *base) forward(cmd Command) Result {
	if b.next == nil {
		return Result{}
	}
	return b.next.Handle(cmd)
}
