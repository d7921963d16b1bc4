package tilestore

// Chain is the ordered pipeline of handlers terminating at a Backend
// (spec.md §4.3). Construction order bottom-to-top is fixed: Backend,
// Empty, Cache, any user-supplied handlers, then an optional Log handler
// at the top. Binding the chain propagates the backend's format and tile
// dimensions to every handler.
type Chain struct {
	head    Handler
	backend Backend
}

// NewChain assembles a chain over backend with a Cache handler of the
// given capacity and any extra user handlers (applied in order, closest
// to the Cache handler first). Call Append afterward to add a Log handler
// once a logger is configured.
func NewChain(backend Backend, cacheCapacity int, userHandlers []Handler) *Chain {
	format := FormatInfo{
		BytesPerPixel: backend.BytesPerPixel(),
		TileWidth:     backend.TileWidth(),
		TileHeight:    backend.TileHeight(),
	}

	var links []Handler
	links = append(links, backend)
	links = append(links, NewEmptyHandler())
	links = append(links, NewCacheHandler(cacheCapacity))
	links = append(links, userHandlers...)

	for i := len(links) - 1; i > 0; i-- {
		links[i].SetNext(nil)
	}
	for i := 0; i < len(links); i++ {
		links[i].Bind(format)
		if i > 0 {
			links[i].SetNext(links[i-1])
		}
	}

	return &Chain{head: links[len(links)-1], backend: backend}
}

// Handle dispatches cmd at the top of the chain.
func (c *Chain) Handle(cmd Command) Result { return c.head.Handle(cmd) }

// Backend returns the chain's terminal backend.
func (c *Chain) Backend() Backend { return c.backend }

// Append adds handler h to the top of the chain (above whatever is
// currently on top), re-binding format info. Used to add a Log handler
// after the fact once a logger is configured.
func (c *Chain) Append(h Handler) {
	h.Bind(FormatInfo{BytesPerPixel: c.backend.BytesPerPixel(), TileWidth: c.backend.TileWidth(), TileHeight: c.backend.TileHeight()})
	h.SetNext(c.head)
	c.head = h
}
