package gegltile

// RepeatMode selects abyss behavior for pixels outside a Buffer's abyss
// rectangle (spec.md §4.7, GLOSSARY).
type RepeatMode int

const (
	// RepeatNone leaves out-of-abyss destination pixels untouched.
	RepeatNone RepeatMode = iota
	// RepeatClamp edge-extends the nearest in-abyss pixel.
	RepeatClamp
	// RepeatLoop tiles the abyss rectangle periodically.
	RepeatLoop
	// RepeatBlack returns zero in every channel, alpha included.
	RepeatBlack
	// RepeatWhite returns the format's white value in every channel.
	RepeatWhite
)
