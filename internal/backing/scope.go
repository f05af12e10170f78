package backing

import "github.com/zclconf/go-cty/cty"

// scoped forwards to a Store until released.
type scoped struct {
	store    Store
	released bool
}

// Scope wraps s in a handle that fails with ErrReleased once release is
// called. Release is idempotent.
func Scope(s Store) (Store, func()) {
	h := &scoped{store: s}
	return h, func() { h.released = true }
}

func (h *scoped) Len() int {
	if h.released {
		return 0
	}
	return h.store.Len()
}

func (h *scoped) Get(i int) (cty.Value, error) {
	if h.released {
		return cty.NilVal, ErrReleased
	}
	return h.store.Get(i)
}

func (h *scoped) Set(i int, v cty.Value) error {
	if h.released {
		return ErrReleased
	}
	return h.store.Set(i, v)
}

func (h *scoped) InsertAt(i int, v cty.Value) error {
	if h.released {
		return ErrReleased
	}
	return h.store.InsertAt(i, v)
}

func (h *scoped) DeleteRange(i, n int) error {
	if h.released {
		return ErrReleased
	}
	return h.store.DeleteRange(i, n)
}

func (h *scoped) ShiftBlock(src, dst, n int) error {
	if h.released {
		return ErrReleased
	}
	return h.store.ShiftBlock(src, dst, n)
}
