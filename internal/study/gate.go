package study

// IsVisible reports whether o is offered for deckID given counts. Counts taken
// for another deck never make an option visible.
func IsVisible(o Option, deckID string, counts Counts) bool {
	if counts.DeckID != deckID {
		return false
	}
	def, ok := lookup(o)
	if !ok {
		return false
	}
	return def.visible(counts)
}

// VisibleOptions returns the options offered for deckID, in priority order.
func VisibleOptions(deckID string, counts Counts) []Option {
	opts := make([]Option, 0, len(catalog))
	for _, def := range catalog {
		if IsVisible(def.option, deckID, counts) {
			opts = append(opts, def.option)
		}
	}
	return opts
}
