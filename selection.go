package easel

// Selection enforces single-selection exclusivity across the canvas: at
// most one item is selected at any instant. It holds a non-owning
// reference to the current selection.
type Selection struct {
	current *Item
}

// Select makes item the current selection. If a different item was
// selected its frame is hidden first, so no transient both-selected state
// is observable. Selecting the current item again is a no-op.
func (s *Selection) Select(item *Item) {
	if item == nil || item == s.current {
		return
	}
	if s.current != nil {
		s.current.HideSelection()
	}
	s.current = item
	item.ShowSelection()
}

// Deselect clears the current selection and hides its frame. No-op when
// nothing is selected.
func (s *Selection) Deselect() {
	if s.current == nil {
		return
	}
	s.current.HideSelection()
	s.current = nil
}

// Current returns the selected item, or nil.
func (s *Selection) Current() *Item {
	return s.current
}

// drop clears the reference if it points at item. Called when an item is
// removed from the canvas so the selection never dangles.
func (s *Selection) drop(item *Item) {
	if s.current == item {
		s.Deselect()
	}
}
