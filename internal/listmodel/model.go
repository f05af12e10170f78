package listmodel

import (
	"log/slog"

	"github.com/vk/listmodel/internal/backing"
	"github.com/vk/listmodel/internal/host"
	"github.com/vk/listmodel/internal/modelerr"
	"github.com/vk/listmodel/internal/pin"
	"github.com/vk/listmodel/internal/roles"
	"github.com/vk/listmodel/internal/valueconv"
)

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithUpdateHook sets the hook run after every successful mutation.
func WithUpdateHook(hook *host.Func) Option {
	return func(m *Model) { m.update = hook }
}

// WithConstructor registers the item constructor up front.
func WithConstructor(ctor *host.Func) Option {
	return func(m *Model) { m.ctor = ctor }
}

// WithPinner sets the pin table the model registers its references with.
// Models sharing a pinner keep shared callables alive between them.
func WithPinner(p pin.Pinner) Option {
	return func(m *Model) {
		if p != nil {
			m.pinner = p
		}
	}
}

// WithConverter replaces the UI value converter.
func WithConverter(c valueconv.Converter) Option {
	return func(m *Model) {
		if c != nil {
			m.conv = c
		}
	}
}

type subscription struct {
	id  int
	obs Observer
}

// Model is the list model. Create it with New and release it with Close.
type Model struct {
	store    backing.Store
	registry *roles.Registry
	guard    *pin.Guard
	pinner   pin.Pinner
	conv     valueconv.Converter
	logger   *slog.Logger
	update   *host.Func
	ctor     *host.Func

	observers []subscription
	nextSub   int
	busy      bool
	closed    bool
}

// New wraps store. The model pins the store, the update hook and the
// constructor until Close, and starts with the single default role.
func New(store backing.Store, opts ...Option) *Model {
	m := &Model{
		store:  store,
		pinner: pin.NewTable(),
		conv:   valueconv.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "listmodel")

	if m.ctor != nil && m.ctor.Kind() != host.Constructor {
		m.logger.Warn("Ignoring constructor of the wrong kind.", "func", m.ctor.String())
		m.ctor = nil
	}
	if m.update != nil && m.update.Kind() != host.Hook {
		m.logger.Warn("Ignoring update hook of the wrong kind.", "func", m.update.String())
		m.update = nil
	}

	m.guard = pin.NewGuard(m.pinner, m.logger)
	m.guard.Acquire(store, m.update, m.ctor)
	m.registry = roles.New(m.guard, registryListener{m}, m.logger)
	return m
}

// Close releases every reference the model holds and drops its observers.
// Afterwards mutations fail with modelerr.ErrClosed and reads see an empty
// model. Close is idempotent.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.registry.Release()
	m.guard.ReleaseAll()
	m.observers = nil
	m.update = nil
	m.ctor = nil
	m.closed = true
	m.logger.Debug("Model closed.")
}

// Closed reports whether Close has been called.
func (m *Model) Closed() bool {
	return m.closed
}

// Subscribe registers an observer and returns a function removing it.
func (m *Model) Subscribe(o Observer) (unsubscribe func()) {
	m.nextSub++
	id := m.nextSub
	m.observers = append(m.observers, subscription{id: id, obs: o})
	return func() {
		for i, s := range m.observers {
			if s.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *Model) emit(e Event) {
	subs := make([]subscription, len(m.observers))
	copy(subs, m.observers)
	for _, s := range subs {
		s.obs.OnEvent(e)
	}
}

// enter starts a mutation. Every successful enter must be paired with leave.
func (m *Model) enter(op string) error {
	if m.closed {
		return modelerr.New(op, modelerr.ErrClosed)
	}
	if m.busy {
		m.logger.Warn("Mutation requested while another one is running, rejecting.", "op", op)
		return modelerr.New(op, modelerr.ErrReentrant)
	}
	m.busy = true
	return nil
}

func (m *Model) leave() {
	m.busy = false
}

// runUpdate invokes the update hook. A failing hook is logged; it never
// undoes the mutation or suppresses the end notification.
func (m *Model) runUpdate(op string) {
	if m.update == nil {
		return
	}
	if err := m.update.Invoke(); err != nil {
		m.logger.Warn("Update hook failed.", "op", op, "error", err)
	}
}

// storeFailed logs a store primitive failing on an index the model already
// validated. The surrounding notification bracket is still closed.
func (m *Model) storeFailed(op string, err error) {
	if err != nil {
		m.logger.Error("Backing store rejected a validated operation.", "op", op, "error", err)
	}
}

// registryListener turns registry callbacks into model notifications.
type registryListener struct{ m *Model }

func (l registryListener) RolesChanged() {
	l.m.emit(Event{Kind: RolesChanged})
}

func (l registryListener) RoleDataChanged(id int) {
	n := l.m.store.Len()
	if n == 0 {
		return
	}
	l.m.emit(Event{Kind: DataChanged, First: 0, Last: n - 1, Roles: []int{id}})
}
