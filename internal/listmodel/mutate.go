package listmodel

import (
	"fmt"

	"github.com/vk/listmodel/internal/host"
	"github.com/vk/listmodel/internal/modelerr"
	"github.com/zclconf/go-cty/cty"
)

// Append builds an item from record with the registered constructor and
// adds it at the end of the store.
//
// A record is positional ([]any, []cty.Value or a cty tuple/list) or named
// (map[string]any or a cty object/map). A named record is projected onto the
// current role order, skipping roles it does not mention.
func (m *Model) Append(record any) error {
	if err := m.enter("append"); err != nil {
		return err
	}
	defer m.leave()
	return m.appendRecord("append", record)
}

// Insert builds an item from record and places it at row at, shifting later
// rows down. at may equal Count() to append.
func (m *Model) Insert(at int, record any) error {
	if err := m.enter("insert"); err != nil {
		return err
	}
	defer m.leave()

	if at < 0 || at > m.store.Len() {
		m.logger.Warn("Insert position is out of range, aborting.", "at", at, "count", m.store.Len())
		return modelerr.AtIndex("insert", at, modelerr.ErrOutOfRange)
	}
	if err := m.appendRecord("insert", record); err != nil {
		return err
	}
	return m.move("insert", m.store.Len()-1, at, 1)
}

func (m *Model) appendRecord(op string, record any) error {
	if m.ctor == nil {
		m.logger.Warn("No constructor function set, cannot append item.", "op", op)
		return modelerr.New(op, modelerr.ErrMissingConstructor)
	}
	args, err := m.positional(record)
	if err != nil {
		m.logger.Warn("Record cannot be passed to the constructor.", "op", op, "error", err)
		return modelerr.New(op, modelerr.Wrap(modelerr.ErrConstructionFailure, err))
	}
	item, err := m.ctor.Construct(args...)
	if err != nil {
		m.logger.Warn("Constructor failed, not appending.", "op", op, "constructor", m.ctor.Name(), "error", err)
		return modelerr.New(op, modelerr.Wrap(modelerr.ErrConstructionFailure, err))
	}

	at := m.store.Len()
	m.emit(Event{Kind: BeginInsert, First: at, Last: at})
	m.storeFailed(op, m.store.InsertAt(at, item))
	m.runUpdate(op)
	m.emit(Event{Kind: EndInsert, First: at, Last: at})
	m.emit(Event{Kind: CountChanged})
	return nil
}

// positional turns a record into constructor arguments.
func (m *Model) positional(record any) ([]cty.Value, error) {
	switch r := record.(type) {
	case []cty.Value:
		return r, nil
	case []any:
		args := make([]cty.Value, len(r))
		for i, v := range r {
			cv, err := m.conv.FromUI(v)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			args[i] = cv
		}
		return args, nil
	case map[string]any:
		var args []cty.Value
		for _, name := range m.registry.Names() {
			v, ok := r[name]
			if !ok {
				continue
			}
			cv, err := m.conv.FromUI(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			args = append(args, cv)
		}
		return args, nil
	case cty.Value:
		return m.positionalValue(r)
	}
	return nil, fmt.Errorf("unsupported record type %T", record)
}

func (m *Model) positionalValue(r cty.Value) ([]cty.Value, error) {
	if r.IsNull() || !r.IsKnown() {
		return nil, fmt.Errorf("record must be a known, non-null value")
	}
	ty := r.Type()
	switch {
	case ty.IsTupleType() || ty.IsListType():
		return r.AsValueSlice(), nil
	case ty.IsObjectType() || ty.IsMapType():
		var args []cty.Value
		for _, name := range m.registry.Names() {
			key := cty.StringVal(name)
			if ty.IsObjectType() {
				if !ty.HasAttribute(name) {
					continue
				}
				args = append(args, r.GetAttr(name))
				continue
			}
			if r.HasIndex(key).True() {
				args = append(args, r.Index(key))
			}
		}
		return args, nil
	}
	return nil, fmt.Errorf("unsupported record type %s", ty.FriendlyName())
}

// Remove deletes the row at.
func (m *Model) Remove(at int) error {
	if err := m.enter("remove"); err != nil {
		return err
	}
	defer m.leave()

	if at < 0 || at >= m.store.Len() {
		m.logger.Warn("Row index is out of range, not removing.", "at", at, "count", m.store.Len())
		return modelerr.AtIndex("remove", at, modelerr.ErrOutOfRange)
	}

	m.emit(Event{Kind: BeginRemove, First: at, Last: at})
	m.storeFailed("remove", m.store.DeleteRange(at, 1))
	m.runUpdate("remove")
	m.emit(Event{Kind: EndRemove, First: at, Last: at})
	m.emit(Event{Kind: CountChanged})
	return nil
}

// Move relocates count rows starting at from so that the block starts at to.
// from == to or count == 0 does nothing and notifies nobody.
func (m *Model) Move(from, to, count int) error {
	if err := m.enter("move"); err != nil {
		return err
	}
	defer m.leave()
	return m.move("move", from, to, count)
}

func (m *Model) move(op string, from, to, count int) error {
	if from == to || count == 0 {
		return nil
	}
	if count < 0 {
		m.logger.Warn("Invalid count for move.", "op", op, "count", count)
		return modelerr.AtIndex(op, count, modelerr.ErrOutOfRange)
	}

	// Moving a block up is the same as moving the rows it jumps over down,
	// so only the forward case needs an implementation.
	if to < from {
		jumped := from - to
		from, to = to, from
		to = from + count
		count = jumped
	}

	n := m.store.Len()
	if from < 0 || from >= n || to < 0 || to >= n || to+count > n {
		m.logger.Warn("Invalid indexing for move.", "op", op, "from", from, "to", to, "count", count, "size", n)
		return modelerr.AtIndex(op, from, modelerr.ErrOutOfRange)
	}

	saved := make([]cty.Value, count)
	for i := range saved {
		v, err := m.store.Get(from + i)
		if err != nil {
			m.logger.Warn("Cannot read moving block.", "op", op, "row", from+i, "error", err)
			return modelerr.AtIndex(op, from+i, err)
		}
		saved[i] = v
	}

	e := Event{First: from, Last: from + count - 1, Dest: to + count}
	e.Kind = BeginMove
	m.emit(e)
	m.storeFailed(op, m.store.ShiftBlock(from+count, from, to-from))
	for i, v := range saved {
		m.storeFailed(op, m.store.Set(to+i, v))
	}
	m.runUpdate(op)
	e.Kind = EndMove
	m.emit(e)
	return nil
}

// Clear removes every row. Clearing an empty model does nothing.
func (m *Model) Clear() error {
	if err := m.enter("clear"); err != nil {
		return err
	}
	defer m.leave()

	n := m.store.Len()
	if n == 0 {
		m.logger.Debug("Clear on an empty model, nothing to do.")
		return nil
	}

	m.emit(Event{Kind: BeginRemove, First: 0, Last: n - 1})
	m.storeFailed("clear", m.store.DeleteRange(0, n))
	m.runUpdate("clear")
	m.emit(Event{Kind: EndRemove, First: 0, Last: n - 1})
	m.emit(Event{Kind: CountChanged})
	return nil
}

// SetConstructor registers the callable Append and Insert build items with.
// A nil ctor unregisters it.
func (m *Model) SetConstructor(ctor *host.Func) error {
	if err := m.enter("setconstructor"); err != nil {
		return err
	}
	defer m.leave()

	if ctor != nil && ctor.Kind() != host.Constructor {
		m.logger.Warn("Not a constructor, keeping the current one.", "func", ctor.String())
		return modelerr.New("setconstructor", fmt.Errorf("%w: got %s", modelerr.ErrMissingConstructor, ctor))
	}
	m.guard.Swap([]any{m.ctor}, []any{ctor})
	m.ctor = ctor
	return nil
}

// Constructor returns the registered constructor, or nil.
func (m *Model) Constructor() *host.Func {
	return m.ctor
}

// AddRole registers a role at id len(Roles()). setter may be nil for a
// read-only role.
func (m *Model) AddRole(name string, getter, setter *host.Func) error {
	if err := m.enter("addrole"); err != nil {
		return err
	}
	defer m.leave()
	return m.registry.Add(name, getter, setter)
}

// SetRole replaces the role at id.
func (m *Model) SetRole(id int, name string, getter, setter *host.Func) error {
	if err := m.enter("setrole"); err != nil {
		return err
	}
	defer m.leave()
	return m.registry.Set(id, name, getter, setter)
}

// RemoveRole deletes the role at id.
func (m *Model) RemoveRole(id int) error {
	if err := m.enter("removerole"); err != nil {
		return err
	}
	defer m.leave()
	return m.registry.Remove(id)
}

// RemoveRoleByName deletes the role called name.
func (m *Model) RemoveRoleByName(name string) error {
	if err := m.enter("removerole"); err != nil {
		return err
	}
	defer m.leave()
	return m.registry.RemoveByName(name)
}
