package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/listmodel/internal/feed"
	"github.com/vk/listmodel/internal/listmodel"
	"github.com/vk/listmodel/internal/modelerr"
	"github.com/vk/listmodel/internal/testutil"
	"github.com/vk/listmodel/internal/watch"
)

type fixture struct {
	people *testutil.People
	feed   *feed.Server
	client *watch.Client
	url    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	p := testutil.NewPeople(t)
	p.Add(t, testutil.Person{Name: "Ann", Age: 30}, testutil.Person{Name: "Bob", Age: 25})

	f := feed.New(ctx, p.Model)
	t.Cleanup(f.Close)

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", f.Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := watch.Dial(ctx, srv.URL, watch.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return &fixture{people: p, feed: f, client: c, url: srv.URL}
}

func (f *fixture) next(t *testing.T) feed.Notification {
	t.Helper()
	select {
	case n := <-f.client.Events():
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return feed.Notification{}
	}
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestFetch_ReturnsSnapshot(t *testing.T) {
	// Arrange
	f := newFixture(t)

	// Act
	snap, err := f.client.Fetch(ctx(t))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, f.feed.ID(), snap.Model)
	assert.Equal(t, 2, snap.Count)
	assert.Equal(t, []string{"name", "age"}, snap.Roles)
	want := []map[string]any{
		{"name": "Ann", "age": float64(30)},
		{"name": "Bob", "age": float64(25)},
	}
	if diff := cmp.Diff(want, snap.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_BroadcastsInsertBracket(t *testing.T) {
	// Arrange
	f := newFixture(t)

	// Act
	err := f.client.Call(ctx(t), feed.AppendRequest, feed.Request{Record: []any{"Cid", 41}})

	// Assert
	require.NoError(t, err)
	got := []feed.Notification{f.next(t), f.next(t), f.next(t)}
	want := []feed.Notification{
		{Model: f.feed.ID(), Seq: 1, Kind: "begin_insert", First: 2, Last: 2},
		{Model: f.feed.ID(), Seq: 2, Kind: "end_insert", First: 2, Last: 2},
		{Model: f.feed.ID(), Seq: 3, Kind: "count_changed"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"Ann", "Bob", "Cid"}, f.people.Names())
}

func TestRequests_KeepSequenceOrder(t *testing.T) {
	// Arrange
	f := newFixture(t)
	const appends = 10

	// Act
	for i := range appends {
		require.NoError(t, f.client.Call(ctx(t), feed.AppendRequest, feed.Request{Record: []any{"P", i}}))
	}

	// Assert
	kinds := []string{"begin_insert", "end_insert", "count_changed"}
	for i := range appends * len(kinds) {
		n := f.next(t)
		assert.Equal(t, uint64(i+1), n.Seq)
		assert.Equal(t, kinds[i%len(kinds)], n.Kind, "notification %d", n.Seq)
	}
	assert.Equal(t, 2+appends, f.people.Model.Count())
}

func TestEvents_ReachEveryClient(t *testing.T) {
	// Arrange
	f := newFixture(t)
	other, err := watch.Dial(ctx(t), f.url, watch.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(other.Close)

	// Act
	require.NoError(t, f.client.Call(ctx(t), feed.RemoveRequest, feed.Request{Row: 0}))

	// Assert
	var kinds []string
	for range 3 {
		select {
		case n := <-other.Events():
			kinds = append(kinds, n.Kind)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a notification on the second client")
		}
	}
	assert.Equal(t, []string{"begin_remove", "end_remove", "count_changed"}, kinds)
}

func TestSet_ChangesOneRow(t *testing.T) {
	// Arrange
	f := newFixture(t)

	// Act
	err := f.client.Call(ctx(t), feed.SetRequest, feed.Request{Row: 0, Role: "age", Value: 31})

	// Assert
	require.NoError(t, err)
	n := f.next(t)
	assert.Equal(t, "data_changed", n.Kind)
	assert.Equal(t, []int{1}, n.Roles)
	assert.Equal(t, int64(31), f.people.Model.Data(0, 1))
}

func TestRequests_Failures(t *testing.T) {
	testCases := []struct {
		name string
		req  string
		body feed.Request
	}{
		{name: "set out of range", req: feed.SetRequest, body: feed.Request{Row: 9, Role: "age", Value: 1}},
		{name: "set unknown role", req: feed.SetRequest, body: feed.Request{Row: 0, Role: "height", Value: 1}},
		{name: "remove out of range", req: feed.RemoveRequest, body: feed.Request{Row: 2}},
		{name: "insert out of range", req: feed.InsertRequest, body: feed.Request{Row: 3, Record: []any{"Cid", 41}}},
		{name: "invalid move", req: feed.MoveRequest, body: feed.Request{From: 0, To: 5, Count: 1}},
		{name: "append without fields", req: feed.AppendRequest, body: feed.Request{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t)

			// Act
			err := f.client.Call(ctx(t), tc.req, tc.body)

			// Assert
			require.ErrorIs(t, err, watch.ErrRequestFailed)
			assert.Equal(t, []string{"Ann", "Bob"}, f.people.Names())
		})
	}
}

func TestMoveAndClear_OverTheWire(t *testing.T) {
	// Arrange
	f := newFixture(t)

	// Act
	require.NoError(t, f.client.Call(ctx(t), feed.MoveRequest, feed.Request{From: 0, To: 1, Count: 1}))
	begin, end := f.next(t), f.next(t)

	// Assert
	assert.Equal(t, "begin_move", begin.Kind)
	assert.Equal(t, 2, begin.Dest)
	assert.Equal(t, "end_move", end.Kind)
	assert.Equal(t, []string{"Bob", "Ann"}, f.people.Names())

	// Act
	require.NoError(t, f.client.Call(ctx(t), feed.ClearRequest, feed.Request{}))

	// Assert
	assert.Equal(t, "begin_remove", f.next(t).Kind)
	assert.Equal(t, "end_remove", f.next(t).Kind)
	assert.Equal(t, "count_changed", f.next(t).Kind)
	assert.Equal(t, 0, f.people.Model.Count())
}

func TestDo_AfterClose(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.feed.Close()

	// Act
	err := f.feed.Do(func(*listmodel.Model) error { return nil })

	// Assert
	require.ErrorIs(t, err, modelerr.ErrClosed)
	assert.False(t, f.people.Model.Closed(), "closing the feed leaves the model open")
}
