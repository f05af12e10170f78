package listmodel

import "fmt"

// EventKind identifies a model notification.
type EventKind int

const (
	BeginInsert EventKind = iota + 1
	EndInsert
	BeginRemove
	EndRemove
	BeginMove
	EndMove
	DataChanged
	RolesChanged
	CountChanged
)

var eventNames = map[EventKind]string{
	BeginInsert:  "begin_insert",
	EndInsert:    "end_insert",
	BeginRemove:  "begin_remove",
	EndRemove:    "end_remove",
	BeginMove:    "begin_move",
	EndMove:      "end_move",
	DataChanged:  "data_changed",
	RolesChanged: "roles_changed",
	CountChanged: "count_changed",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one notification. First and Last are inclusive row bounds for
// insert, remove, move and data events. For moves, Dest is the row the block
// is moved before, counted in pre-move positions. Roles lists the affected
// role ids of a DataChanged event.
type Event struct {
	Kind  EventKind
	First int
	Last  int
	Dest  int
	Roles []int
}

func (e Event) String() string {
	switch e.Kind {
	case BeginMove, EndMove:
		return fmt.Sprintf("%s[%d..%d -> %d]", e.Kind, e.First, e.Last, e.Dest)
	case DataChanged:
		return fmt.Sprintf("%s[%d..%d roles=%v]", e.Kind, e.First, e.Last, e.Roles)
	case RolesChanged, CountChanged:
		return e.Kind.String()
	}
	return fmt.Sprintf("%s[%d..%d]", e.Kind, e.First, e.Last)
}

// Observer receives model notifications synchronously, on the thread that
// mutates the model. Observers may read the model but must not mutate it;
// a nested mutation fails with modelerr.ErrReentrant.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(e Event) { f(e) }
