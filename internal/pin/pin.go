// Package pin keeps host values reachable for as long as a list model holds
// references to them.
//
// A Pinner is the host's side of the contract: Pin makes a value reachable
// until the matching Unpin. Table is the default Pinner, a reference-counted
// pin table keyed by handle identity. Guard is the model's side: it records
// every pin it took so that replacement and teardown release exactly those.
package pin

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrNotPinned is returned when unpinning a value with no outstanding pin.
	ErrNotPinned = errors.New("value is not pinned")
	// ErrNotHandle is returned for values without a stable identity.
	ErrNotHandle = errors.New("value is not a pointer handle")
)

// Pinner is implemented by the host collector.
type Pinner interface {
	Pin(v any) error
	Unpin(v any) error
}

// Table is a reference-counted pin table. Pinned values are held by strong
// references until their count drops to zero. It is safe for concurrent use
// so several models can share one table.
type Table struct {
	mu   sync.Mutex
	refs map[any]int
}

var _ Pinner = (*Table)(nil)

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{refs: make(map[any]int)}
}

// Pin implements Pinner.
func (t *Table) Pin(v any) error {
	if err := checkHandle(v); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refs[v]++
	return nil
}

// Unpin implements Pinner.
func (t *Table) Unpin(v any) error {
	if err := checkHandle(v); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.refs[v]
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotPinned, v)
	}
	if n == 1 {
		delete(t.refs, v)
	} else {
		t.refs[v] = n - 1
	}
	return nil
}

// Count returns the outstanding pins on v.
func (t *Table) Count(v any) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refs[v]
}

// Len returns the number of distinct pinned values.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.refs)
}

func checkHandle(v any) error {
	if isNil(v) {
		return fmt.Errorf("%w: nil", ErrNotHandle)
	}
	if reflect.ValueOf(v).Kind() != reflect.Pointer {
		return fmt.Errorf("%w: %T", ErrNotHandle, v)
	}
	return nil
}

// isNil reports whether v is nil or a typed nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
