package roles

import (
	"log/slog"

	"github.com/vk/listmodel/internal/host"
	"github.com/vk/listmodel/internal/modelerr"
	"github.com/vk/listmodel/internal/pin"
)

// Role is one registered field.
type Role struct {
	ID     int
	Name   string
	Getter *host.Func
	Setter *host.Func // nil for read-only roles
}

// Listener receives schema change notifications.
type Listener interface {
	// RolesChanged reports that role names or ids changed.
	RolesChanged()
	// RoleDataChanged reports that the values of role id may differ for
	// every row, while its name stayed the same.
	RoleDataChanged(id int)
}

type nopListener struct{}

func (nopListener) RolesChanged()       {}
func (nopListener) RoleDataChanged(int) {}

// Registry is the dense, name-indexed role table.
//
// Registry is not safe for concurrent use.
type Registry struct {
	roles    []Role
	ids      map[string]int
	custom   bool
	guard    *pin.Guard
	listener Listener
	logger   *slog.Logger
}

// New returns a registry holding the default role. The registry pins its
// callables through guard; a nil listener discards notifications.
func New(guard *pin.Guard, listener Listener, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if listener == nil {
		listener = nopListener{}
	}
	r := &Registry{
		ids:      make(map[string]int),
		guard:    guard,
		listener: listener,
		logger:   logger,
	}
	r.append(host.StringRole, host.Stringify(), nil)
	return r
}

// Custom reports whether the default role set has been replaced.
func (r *Registry) Custom() bool {
	return r.custom
}

// Len returns the number of registered roles.
func (r *Registry) Len() int {
	return len(r.roles)
}

// Add registers a new role at id Len(). The first successful Add clears the
// default role set.
func (r *Registry) Add(name string, getter, setter *host.Func) error {
	if _, exists := r.ids[name]; exists {
		r.logger.Warn("Role exists, aborting add.", "role", name)
		return modelerr.ForRole("addrole", name, modelerr.ErrDuplicateRole)
	}
	if !validAccessors(getter, setter) {
		r.logger.Warn("Invalid getter for role, aborting add.", "role", name)
		return modelerr.ForRole("addrole", name, modelerr.ErrMissingAccessor)
	}

	if !r.custom {
		r.logger.Debug("First custom role added, clearing default roles.", "role", name)
		for _, old := range r.roles {
			r.guard.Release(old.Getter, old.Setter)
		}
		r.roles = nil
		r.ids = make(map[string]int)
		r.custom = true
	}

	r.append(name, getter, setter)
	r.logger.Debug("Role added.", "role", name, "id", len(r.roles)-1, "read_only", setter == nil)
	r.listener.RolesChanged()
	return nil
}

// validAccessors requires a getter and accepts only handles of the right kind.
func validAccessors(getter, setter *host.Func) bool {
	if getter == nil || getter.Kind() != host.Getter {
		return false
	}
	return setter == nil || setter.Kind() == host.Setter
}

func (r *Registry) append(name string, getter, setter *host.Func) {
	r.guard.Acquire(getter, setter)
	r.ids[name] = len(r.roles)
	r.roles = append(r.roles, Role{ID: len(r.roles), Name: name, Getter: getter, Setter: setter})
}

// Set replaces the role at id. If the name is unchanged the listener gets
// RoleDataChanged(id), otherwise RolesChanged.
func (r *Registry) Set(id int, name string, getter, setter *host.Func) error {
	if id < 0 || id >= len(r.roles) {
		r.logger.Warn("Role index is out of range, aborting setrole.", "id", id, "role", name)
		return &modelerr.Error{Op: "setrole", Role: name, Index: id, Err: modelerr.ErrOutOfRange}
	}
	if existing, ok := r.ids[name]; ok && existing != id {
		r.logger.Warn("Role exists, aborting setrole.", "role", name, "id", existing)
		return &modelerr.Error{Op: "setrole", Role: name, Index: id, Err: modelerr.ErrDuplicateRole}
	}
	if !validAccessors(getter, setter) {
		r.logger.Warn("Invalid getter for role, aborting setrole.", "role", name)
		return &modelerr.Error{Op: "setrole", Role: name, Index: id, Err: modelerr.ErrMissingAccessor}
	}

	old := r.roles[id]
	r.guard.Swap([]any{old.Getter, old.Setter}, []any{getter, setter})
	r.roles[id].Getter = getter
	r.roles[id].Setter = setter

	if old.Name == name {
		r.logger.Debug("Role accessors replaced.", "role", name, "id", id)
		r.listener.RoleDataChanged(id)
		return nil
	}
	delete(r.ids, old.Name)
	r.ids[name] = id
	r.roles[id].Name = name
	r.logger.Debug("Role renamed.", "from", old.Name, "to", name, "id", id)
	r.listener.RolesChanged()
	return nil
}

// Remove deletes the role at id and shifts every later role down by one.
func (r *Registry) Remove(id int) error {
	if id < 0 || id >= len(r.roles) {
		r.logger.Warn("Request to delete non-existing role, aborting.", "id", id)
		return modelerr.AtIndex("removerole", id, modelerr.ErrOutOfRange)
	}

	old := r.roles[id]
	r.guard.Release(old.Getter, old.Setter)

	copy(r.roles[id:], r.roles[id+1:])
	r.roles[len(r.roles)-1] = Role{}
	r.roles = r.roles[:len(r.roles)-1]
	delete(r.ids, old.Name)
	for i := id; i < len(r.roles); i++ {
		r.roles[i].ID = i
		r.ids[r.roles[i].Name] = i
	}

	r.logger.Debug("Role removed.", "role", old.Name, "id", id)
	r.listener.RolesChanged()
	return nil
}

// RemoveByName deletes the role called name.
func (r *Registry) RemoveByName(name string) error {
	id, ok := r.ids[name]
	if !ok {
		r.logger.Warn("Role name not found, aborting removerole.", "role", name)
		return modelerr.ForRole("removerole", name, modelerr.ErrOutOfRange)
	}
	return r.Remove(id)
}

// ID resolves a role name.
func (r *Registry) ID(name string) (int, bool) {
	id, ok := r.ids[name]
	return id, ok
}

// Name returns the name of role id, or "" when out of range.
func (r *Registry) Name(id int) string {
	if id < 0 || id >= len(r.roles) {
		return ""
	}
	return r.roles[id].Name
}

// Getter returns the getter of role id. An out-of-range id is logged and
// yields the builtin stringify getter, so reads never fail on it.
func (r *Registry) Getter(id int) *host.Func {
	if id < 0 || id >= len(r.roles) {
		r.logger.Warn("Role index is out of range, defaulting to string conversion.", "id", id)
		return host.Stringify()
	}
	return r.roles[id].Getter
}

// Setter returns the setter of role id. An out-of-range id or a read-only
// role yields the null setter, which fails every write.
func (r *Registry) Setter(id int) *host.Func {
	if id < 0 || id >= len(r.roles) {
		r.logger.Warn("Role index is out of range, returning null setter.", "id", id)
		return host.NullSetter()
	}
	if r.roles[id].Setter == nil {
		return host.NullSetter()
	}
	return r.roles[id].Setter
}

// Names returns role names in id order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.roles))
	for i, role := range r.roles {
		names[i] = role.Name
	}
	return names
}

// Snapshot returns a copy of the id to name mapping.
func (r *Registry) Snapshot() map[int]string {
	out := make(map[int]string, len(r.roles))
	for i, role := range r.roles {
		out[i] = role.Name
	}
	return out
}

// Roles returns a copy of the role table.
func (r *Registry) Roles() []Role {
	out := make([]Role, len(r.roles))
	copy(out, r.roles)
	return out
}

// Release unpins every callable and empties the registry. It sends no
// notifications; it is meant for teardown.
func (r *Registry) Release() {
	for _, role := range r.roles {
		r.guard.Release(role.Getter, role.Setter)
	}
	r.roles = nil
	r.ids = make(map[string]int)
}
