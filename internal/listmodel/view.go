package listmodel

import (
	"errors"

	"github.com/vk/listmodel/internal/backing"
	"github.com/vk/listmodel/internal/modelerr"
	"github.com/vk/listmodel/internal/roles"
	"github.com/zclconf/go-cty/cty"
)

// ItemFlags describes what a view may do with a row.
type ItemFlags uint8

const (
	ItemIsSelectable ItemFlags = 1 << iota
	ItemIsEditable
	ItemIsEnabled
)

// Has reports whether every flag in f2 is set.
func (f ItemFlags) Has(f2 ItemFlags) bool { return f&f2 == f2 }

// RowCount returns the number of items in the store.
func (m *Model) RowCount() int {
	if m.closed {
		return 0
	}
	return m.store.Len()
}

// Count is RowCount under the name scripts use.
func (m *Model) Count() int {
	return m.RowCount()
}

// Data returns the UI value of role for the item at row. Out-of-range rows,
// getter failures and conversion failures are logged and yield nil. An
// unknown role falls back to the string rendering of the whole item.
func (m *Model) Data(row, role int) any {
	v, err := m.value(row, role)
	if err != nil {
		return nil
	}
	out, err := m.conv.ToUI(v)
	if err != nil {
		m.logger.Warn("Conversion error.", "row", row, "role", role, "error", err)
		return nil
	}
	return out
}

// Value is Data without the UI conversion.
func (m *Model) Value(row, role int) (cty.Value, error) {
	return m.value(row, role)
}

func (m *Model) value(row, role int) (cty.Value, error) {
	item, err := m.Item(row)
	if err != nil {
		return cty.NilVal, err
	}
	v, err := m.registry.Getter(role).Get(item)
	if err != nil {
		m.logger.Warn("Getter failed.", "row", row, "role", role, "error", err)
		return cty.NilVal, err
	}
	return v, nil
}

// Item returns the item at row.
func (m *Model) Item(row int) (cty.Value, error) {
	if m.closed {
		return cty.NilVal, modelerr.AtIndex("data", row, modelerr.ErrClosed)
	}
	if row < 0 || row >= m.store.Len() {
		m.logger.Warn("Row index is out of range.", "row", row, "count", m.store.Len())
		return cty.NilVal, modelerr.AtIndex("data", row, modelerr.ErrOutOfRange)
	}
	return m.store.Get(row)
}

// SetData writes value through the setter of role at row. On success the
// update hook runs and a DataChanged event for that single cell follows.
// Every failure is logged and reported as false with the model unchanged.
func (m *Model) SetData(row, role int, value any) bool {
	return m.setData("setdata", row, role, value) == nil
}

// SetProperty is SetData addressing the role by name.
func (m *Model) SetProperty(row int, name string, value any) bool {
	id, ok := m.registry.ID(name)
	if !ok {
		m.logger.Warn("Unknown property name.", "property", name)
		id = -1
	}
	return m.setData("setproperty", row, id, value) == nil
}

func (m *Model) setData(op string, row, role int, value any) error {
	if err := m.enter(op); err != nil {
		return err
	}
	defer m.leave()

	if row < 0 || row >= m.store.Len() {
		m.logger.Warn("Row index is out of range, not changing value.", "op", op, "row", row)
		return modelerr.AtIndex(op, row, modelerr.ErrOutOfRange)
	}
	v, err := m.conv.FromUI(value)
	if err != nil {
		m.logger.Warn("Conversion error, not changing value.", "op", op, "row", row, "error", err)
		return modelerr.AtIndex(op, row, err)
	}

	setter := m.registry.Setter(role)
	handle, release := backing.Scope(m.store)
	err = setter.Put(handle, v, row)
	release()
	if err != nil {
		if errors.Is(err, modelerr.ErrMissingAccessor) {
			m.logger.Warn("Null setter for role, not changing value.", "op", op, "role", role)
		} else {
			m.logger.Warn("Setter failed.", "op", op, "row", row, "role", role, "error", err)
		}
		return &modelerr.Error{Op: op, Role: m.registry.Name(role), Index: row, Err: err}
	}

	m.runUpdate(op)
	m.emit(Event{Kind: DataChanged, First: row, Last: row, Roles: []int{role}})
	return nil
}

// RoleNames returns the current id to name mapping.
func (m *Model) RoleNames() map[int]string {
	if m.closed {
		return map[int]string{}
	}
	return m.registry.Snapshot()
}

// Roles returns role names in id order.
func (m *Model) Roles() []string {
	if m.closed {
		return nil
	}
	return m.registry.Names()
}

// RoleTable returns a copy of the registered roles.
func (m *Model) RoleTable() []roles.Role {
	if m.closed {
		return nil
	}
	return m.registry.Roles()
}

// RoleID resolves a role name.
func (m *Model) RoleID(name string) (int, bool) {
	if m.closed {
		return 0, false
	}
	return m.registry.ID(name)
}

// Flags reports the capabilities of row. Every row is enabled, selectable
// and editable.
func (m *Model) Flags(int) ItemFlags {
	return ItemIsEnabled | ItemIsSelectable | ItemIsEditable
}

// Row returns every role value of row keyed by role name.
func (m *Model) Row(row int) map[string]any {
	if m.closed || row < 0 || row >= m.store.Len() {
		return nil
	}
	names := m.registry.Names()
	out := make(map[string]any, len(names))
	for id, name := range names {
		out[name] = m.Data(row, id)
	}
	return out
}

// Rows returns Row for every row in order.
func (m *Model) Rows() []map[string]any {
	n := m.RowCount()
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, m.Row(i))
	}
	return out
}
