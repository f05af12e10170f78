package backing

import (
	"errors"

	"github.com/vk/listmodel/internal/modelerr"
	"github.com/zclconf/go-cty/cty"
)

// ErrReleased is returned by a scoped handle used after its operation ended.
var ErrReleased = errors.New("store handle released")

// Store is the narrow view of a host-owned sequence of items.
type Store interface {
	// Len returns the number of items.
	Len() int
	// Get returns the item at i.
	Get(i int) (cty.Value, error)
	// Set replaces the item at i.
	Set(i int, v cty.Value) error
	// InsertAt inserts v so that it ends up at index i, 0 <= i <= Len().
	InsertAt(i int, v cty.Value) error
	// DeleteRange removes n items starting at i, closing the gap.
	DeleteRange(i, n int) error
	// ShiftBlock copies n items from src to dst. The ranges may overlap.
	ShiftBlock(src, dst, n int) error
}

// Slice is a Store over a slice owned by the caller. The caller's slice
// header is updated in place, so growth and truncation are visible to the
// owner.
type Slice struct {
	items *[]cty.Value
}

var _ Store = (*Slice)(nil)

// New adopts items by reference. A nil pointer gets a fresh empty sequence.
func New(items *[]cty.Value) *Slice {
	if items == nil {
		items = new([]cty.Value)
	}
	return &Slice{items: items}
}

// Len implements Store.
func (s *Slice) Len() int {
	return len(*s.items)
}

// Get implements Store.
func (s *Slice) Get(i int) (cty.Value, error) {
	if err := s.check("get", i, 1); err != nil {
		return cty.NilVal, err
	}
	return (*s.items)[i], nil
}

// Set implements Store.
func (s *Slice) Set(i int, v cty.Value) error {
	if err := s.check("set", i, 1); err != nil {
		return err
	}
	(*s.items)[i] = v
	return nil
}

// InsertAt implements Store.
func (s *Slice) InsertAt(i int, v cty.Value) error {
	if i < 0 || i > s.Len() {
		return modelerr.AtIndex("insert", i, modelerr.ErrOutOfRange)
	}
	items := append(*s.items, cty.NilVal)
	copy(items[i+1:], items[i:])
	items[i] = v
	*s.items = items
	return nil
}

// DeleteRange implements Store.
func (s *Slice) DeleteRange(i, n int) error {
	if n == 0 && i >= 0 && i <= s.Len() {
		return nil
	}
	if err := s.check("delete", i, n); err != nil {
		return err
	}
	items := *s.items
	copy(items[i:], items[i+n:])
	// Drop references held past the new end so the host can reclaim them.
	for j := len(items) - n; j < len(items); j++ {
		items[j] = cty.NilVal
	}
	*s.items = items[:len(items)-n]
	return nil
}

// ShiftBlock implements Store.
func (s *Slice) ShiftBlock(src, dst, n int) error {
	if n == 0 {
		return nil
	}
	if err := s.check("shift", src, n); err != nil {
		return err
	}
	if err := s.check("shift", dst, n); err != nil {
		return err
	}
	copy((*s.items)[dst:dst+n], (*s.items)[src:src+n])
	return nil
}

func (s *Slice) check(op string, i, n int) error {
	if i < 0 || n < 0 || i+n > s.Len() || (n > 0 && i >= s.Len()) {
		return modelerr.AtIndex(op, i, modelerr.ErrOutOfRange)
	}
	return nil
}

// Snapshot copies the current items of any Store.
func Snapshot(s Store) []cty.Value {
	out := make([]cty.Value, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		v, err := s.Get(i)
		if err != nil {
			break
		}
		out = append(out, v)
	}
	return out
}
