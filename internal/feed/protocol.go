package feed

import (
	"encoding/json"
	"fmt"

	"github.com/vk/listmodel/internal/listmodel"
)

// Server to client event names.
const (
	EventName    = "model:event"
	SnapshotName = "model:snapshot"
	ReplyName    = "model:reply"
)

// Client to server request names.
const (
	FetchRequest  = "model:fetch"
	SetRequest    = "model:set"
	AppendRequest = "model:append"
	InsertRequest = "model:insert"
	RemoveRequest = "model:remove"
	MoveRequest   = "model:move"
	ClearRequest  = "model:clear"
)

// Request is the payload of every client request. Fields unused by a
// request are ignored.
type Request struct {
	ID     string `json:"id"`
	Row    int    `json:"row"`
	Role   string `json:"role"`
	Value  any    `json:"value"`
	Record any    `json:"record"`
	From   int    `json:"from"`
	To     int    `json:"to"`
	Count  int    `json:"count"`
}

// Reply answers every request except fetch. Seq is the last notification
// sequence number issued when the request finished.
type Reply struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Seq   uint64 `json:"seq"`
}

// Notification is one broadcast model event. Seq increases by one per
// notification so watchers can spot gaps.
type Notification struct {
	Model string `json:"model"`
	Seq   uint64 `json:"seq"`
	Kind  string `json:"kind"`
	First int    `json:"first"`
	Last  int    `json:"last"`
	Dest  int    `json:"dest"`
	Roles []int  `json:"roles,omitempty"`
}

func (n Notification) String() string {
	return fmt.Sprintf("#%d %s[%d..%d -> %d roles=%v]", n.Seq, n.Kind, n.First, n.Last, n.Dest, n.Roles)
}

// Batch carries the notifications of one mutation in order. A mutation is
// always sent as a single packet.
type Batch struct {
	Model  string         `json:"model"`
	Events []Notification `json:"events"`
}

// First is the sequence number of the first notification, or 0 when empty.
func (b Batch) First() uint64 {
	if len(b.Events) == 0 {
		return 0
	}
	return b.Events[0].Seq
}

// Last is the sequence number of the last notification, or 0 when empty.
func (b Batch) Last() uint64 {
	if len(b.Events) == 0 {
		return 0
	}
	return b.Events[len(b.Events)-1].Seq
}

// Snapshot answers a fetch request with the whole model.
type Snapshot struct {
	ID    string           `json:"id"`
	Model string           `json:"model"`
	Seq   uint64           `json:"seq"`
	Count int              `json:"count"`
	Roles []string         `json:"roles"`
	Rows  []map[string]any `json:"rows"`
}

func notification(model string, seq uint64, ev listmodel.Event) Notification {
	return Notification{
		Model: model,
		Seq:   seq,
		Kind:  ev.Kind.String(),
		First: ev.First,
		Last:  ev.Last,
		Dest:  ev.Dest,
		Roles: ev.Roles,
	}
}

// Decode converts a payload received from socket.io, which arrives as
// generic JSON data, into out.
func Decode(data []any, out any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}
	raw, err := json.Marshal(data[0])
	if err != nil {
		return fmt.Errorf("failed to re-encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}
