// Package lightbox holds the full-screen viewer's navigation state: a cyclic
// index over a portfolio's media list.
package lightbox

import "errors"

var (
	ErrClosed       = errors.New("lightbox is closed")
	ErrEmptyList    = errors.New("media list is empty")
	ErrIndexInvalid = errors.New("index out of range")
)

// Navigator is recreated fresh per viewer session; it has no terminal state
// beyond Closed. Keyboard and pointer triggers go through the same methods,
// so both produce identical transitions.
type Navigator struct {
	length int
	index  int
	open   bool
}

func NewNavigator(length int) *Navigator {
	return &Navigator{length: length}
}

func (n *Navigator) Open(index int) error {
	if n.length == 0 {
		return ErrEmptyList
	}
	if index < 0 || index >= n.length {
		return ErrIndexInvalid
	}
	n.index = index
	n.open = true
	return nil
}

// Next advances cyclically: the last asset's next is the first.
func (n *Navigator) Next() error {
	if !n.open {
		return ErrClosed
	}
	n.index = (n.index + 1) % n.length
	return nil
}

// Previous steps back cyclically: the first asset's previous is the last.
func (n *Navigator) Previous() error {
	if !n.open {
		return ErrClosed
	}
	n.index = (n.index - 1 + n.length) % n.length
	return nil
}

func (n *Navigator) Close() {
	n.open = false
}

// Current returns the focused index and whether the lightbox is open.
func (n *Navigator) Current() (int, bool) {
	if !n.open {
		return 0, false
	}
	return n.index, true
}
