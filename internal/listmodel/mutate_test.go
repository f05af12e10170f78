package listmodel_test

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/listmodel/internal/host"
	"github.com/vk/listmodel/internal/listmodel"
	"github.com/vk/listmodel/internal/modelerr"
	"github.com/vk/listmodel/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

var (
	ann    = testutil.Person{Name: "Ann", Age: 30}
	bob    = testutil.Person{Name: "Bob", Age: 41}
	cid    = testutil.Person{Name: "Cid", Age: 25}
	dee    = testutil.Person{Name: "Dee", Age: 52}
	eve    = testutil.Person{Name: "Eve", Age: 19}
	nobody = []listmodel.Event(nil)
)

func TestAnnScenario(t *testing.T) {
	p := testutil.NewPeople(t)

	require.NoError(t, p.Model.Append(map[string]any{"name": "Ann", "age": 30}))
	assert.Equal(t, 1, p.Model.Count())
	assert.Equal(t, "Ann", p.Model.Data(0, 0))
	assert.Equal(t, int64(30), p.Model.Data(0, 1))

	p.Events.Reset()
	require.NoError(t, p.Model.Move(0, 0, 1))
	assert.Equal(t, nobody, p.Events.Events())

	require.True(t, p.Model.SetProperty(0, "age", 31))
	assert.Equal(t, int64(31), p.Model.Data(0, 1))
}

func TestAppend_NotifiesAroundTheInsert(t *testing.T) {
	// Arrange
	p := testutil.NewPeople(t)
	p.Add(t, ann)

	// Act
	err := p.Model.Append([]any{"Bob", 41})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, p.Model.Count())
	assert.Equal(t, 2, p.Model.RowCount())
	assert.Equal(t, []listmodel.Event{
		{Kind: listmodel.BeginInsert, First: 1, Last: 1},
		{Kind: listmodel.EndInsert, First: 1, Last: 1},
		{Kind: listmodel.CountChanged},
	}, p.Events.Events())
	assert.Equal(t, 1, p.Updates)
	assert.True(t, testutil.PersonVal("Bob", 41).RawEquals((*p.Items)[1]))
}

func TestAppend_RecordShapes(t *testing.T) {
	testCases := []struct {
		name   string
		record any
	}{
		{name: "positional slice", record: []any{"Ann", 30}},
		{name: "host values", record: []cty.Value{cty.StringVal("Ann"), cty.NumberIntVal(30)}},
		{name: "named bag", record: map[string]any{"age": 30, "name": "Ann", "ignored": true}},
		{name: "tuple", record: cty.TupleVal([]cty.Value{cty.StringVal("Ann"), cty.NumberIntVal(30)})},
		{name: "object", record: cty.ObjectVal(map[string]cty.Value{"age": cty.NumberIntVal(30), "name": cty.StringVal("Ann")})},
		{name: "map", record: cty.MapVal(map[string]cty.Value{"age": cty.StringVal("30"), "name": cty.StringVal("Ann")})},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := testutil.NewPeople(t)

			require.NoError(t, p.Model.Append(tc.record))

			assert.Equal(t, "Ann", p.Model.Data(0, 0))
			assert.Equal(t, int64(30), p.Model.Data(0, 1))
		})
	}
}

func TestAppend_Failures(t *testing.T) {
	testCases := []struct {
		name   string
		record any
		want   error
	}{
		{name: "too few arguments", record: []any{"Ann"}, want: modelerr.ErrConstructionFailure},
		{name: "too many arguments", record: []any{"Ann", 30, true}, want: modelerr.ErrConstructionFailure},
		{name: "bag missing a role", record: map[string]any{"name": "Ann"}, want: modelerr.ErrConstructionFailure},
		{name: "type mismatch", record: []any{"Ann", "thirty"}, want: modelerr.ErrConstructionFailure},
		{name: "unsupported record", record: 42, want: modelerr.ErrConstructionFailure},
		{name: "null record", record: cty.NullVal(cty.DynamicPseudoType), want: modelerr.ErrConstructionFailure},
		{name: "NaN field", record: []any{"Ann", math.NaN()}, want: modelerr.ErrConstructionFailure},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := testutil.NewPeople(t)
			p.Add(t, ann)

			err := p.Model.Append(tc.record)

			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, 1, p.Model.Count())
			assert.Equal(t, nobody, p.Events.Events())
			assert.Zero(t, p.Updates)
		})
	}
}

func TestAppend_WithoutConstructor(t *testing.T) {
	p := testutil.NewPeople(t)
	require.NoError(t, p.Model.SetConstructor(nil))

	err := p.Model.Append([]any{"Ann", 30})

	require.ErrorIs(t, err, modelerr.ErrMissingConstructor)
	assert.Zero(t, p.Model.Count())
	assert.Contains(t, p.Logs.String(), "No constructor function set, cannot append item.")
}

func TestSetConstructor_SwapsPins(t *testing.T) {
	p := testutil.NewPeople(t)
	old := p.Model.Constructor()
	next := testutil.PersonConstructor()

	require.NoError(t, p.Model.SetConstructor(next))
	assert.Zero(t, p.Pins.Count(old))
	assert.Equal(t, 1, p.Pins.Count(next))

	require.NoError(t, p.Model.SetConstructor(nil))
	assert.Zero(t, p.Pins.Count(next))

	err := p.Model.SetConstructor(host.NewHook("nope", func() error { return nil }))
	require.ErrorIs(t, err, modelerr.ErrMissingConstructor)
	assert.Nil(t, p.Model.Constructor())
}

func TestInsert(t *testing.T) {
	testCases := []struct {
		name string
		at   int
		want []string
	}{
		{name: "front", at: 0, want: []string{"Eve", "Ann", "Bob", "Cid"}},
		{name: "middle", at: 2, want: []string{"Ann", "Bob", "Eve", "Cid"}},
		{name: "end", at: 3, want: []string{"Ann", "Bob", "Cid", "Eve"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := testutil.NewPeople(t)
			p.Add(t, ann, bob, cid)

			require.NoError(t, p.Model.Insert(tc.at, []any{eve.Name, eve.Age}))

			assert.Equal(t, tc.want, p.Names())
			assert.Equal(t, 4, p.Model.Count())
		})
	}
}

func TestInsert_IsAppendThenMove(t *testing.T) {
	p := testutil.NewPeople(t)
	p.Add(t, ann, bob)

	require.NoError(t, p.Model.Insert(0, []any{"Eve", 19}))

	assert.Equal(t, []listmodel.Event{
		{Kind: listmodel.BeginInsert, First: 2, Last: 2},
		{Kind: listmodel.EndInsert, First: 2, Last: 2},
		{Kind: listmodel.CountChanged},
		{Kind: listmodel.BeginMove, First: 0, Last: 1, Dest: 3},
		{Kind: listmodel.EndMove, First: 0, Last: 1, Dest: 3},
	}, p.Events.Events())
}

func TestInsert_OutOfRangeChangesNothing(t *testing.T) {
	p := testutil.NewPeople(t)
	p.Add(t, ann)

	require.ErrorIs(t, p.Model.Insert(2, []any{"Eve", 19}), modelerr.ErrOutOfRange)
	require.ErrorIs(t, p.Model.Insert(-1, []any{"Eve", 19}), modelerr.ErrOutOfRange)

	assert.Equal(t, []string{"Ann"}, p.Names())
	assert.Equal(t, nobody, p.Events.Events())
}

func TestRemove_KeepsRelativeOrder(t *testing.T) {
	// Arrange
	p := testutil.NewPeople(t)
	p.Add(t, ann, bob, cid, dee)

	// Act
	err := p.Model.Remove(1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Cid", "Dee"}, p.Names())
	assert.Equal(t, []listmodel.Event{
		{Kind: listmodel.BeginRemove, First: 1, Last: 1},
		{Kind: listmodel.EndRemove, First: 1, Last: 1},
		{Kind: listmodel.CountChanged},
	}, p.Events.Events())
	assert.Equal(t, 1, p.Updates)
}

func TestRemove_OutOfRange(t *testing.T) {
	p := testutil.NewPeople(t)
	p.Add(t, ann, bob)

	for _, at := range []int{2, -1, 100} {
		require.ErrorIs(t, p.Model.Remove(at), modelerr.ErrOutOfRange)
	}
	assert.Equal(t, 2, p.Model.Count())
	assert.Equal(t, nobody, p.Events.Events())
}

func TestMove(t *testing.T) {
	testCases := []struct {
		name            string
		from, to, count int
		want            []string
		wantEvent       listmodel.Event
	}{
		{
			name: "one row down", from: 0, to: 2, count: 1,
			want:      []string{"Bob", "Cid", "Ann", "Dee", "Eve"},
			wantEvent: listmodel.Event{First: 0, Last: 0, Dest: 3},
		},
		{
			name: "one row up", from: 3, to: 1, count: 1,
			want:      []string{"Ann", "Dee", "Bob", "Cid", "Eve"},
			wantEvent: listmodel.Event{First: 1, Last: 2, Dest: 4},
		},
		{
			name: "block down", from: 0, to: 3, count: 2,
			want:      []string{"Cid", "Dee", "Eve", "Ann", "Bob"},
			wantEvent: listmodel.Event{First: 0, Last: 1, Dest: 5},
		},
		{
			name: "block up", from: 3, to: 0, count: 2,
			want:      []string{"Dee", "Eve", "Ann", "Bob", "Cid"},
			wantEvent: listmodel.Event{First: 0, Last: 2, Dest: 5},
		},
		{
			name: "overlapping block", from: 1, to: 2, count: 3,
			want:      []string{"Ann", "Eve", "Bob", "Cid", "Dee"},
			wantEvent: listmodel.Event{First: 1, Last: 3, Dest: 5},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			p := testutil.NewPeople(t)
			p.Add(t, ann, bob, cid, dee, eve)

			// Act
			err := p.Model.Move(tc.from, tc.to, tc.count)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.Names())
			begin, end := tc.wantEvent, tc.wantEvent
			begin.Kind, end.Kind = listmodel.BeginMove, listmodel.EndMove
			assert.Equal(t, []listmodel.Event{begin, end}, p.Events.Events())
			assert.Equal(t, 1, p.Updates)
			assert.Equal(t, 5, p.Model.Count())
		})
	}
}

func TestMove_RoundTripRestoresOrder(t *testing.T) {
	p := testutil.NewPeople(t)
	p.Add(t, ann, bob, cid, dee, eve)
	want := p.Names()

	for from := 0; from < 5; from++ {
		for to := 0; to < 5; to++ {
			require.NoError(t, p.Model.Move(from, to, 1))
			require.NoError(t, p.Model.Move(to, from, 1))
			assert.Equal(t, want, p.Names(), "move(%d,%d,1) and back", from, to)
		}
	}
}

func TestMove_BlockRoundTrips(t *testing.T) {
	testCases := []struct {
		name            string
		from, to, count int
		want            []string
	}{
		{name: "block to the tail", from: 0, to: 3, count: 2, want: []string{"Cid", "Dee", "Eve", "Ann", "Bob"}},
		{name: "tail block to the head", from: 3, to: 0, count: 2, want: []string{"Dee", "Eve", "Ann", "Bob", "Cid"}},
		{name: "middle block down", from: 1, to: 3, count: 2, want: []string{"Ann", "Dee", "Eve", "Bob", "Cid"}},
		{name: "three rows up", from: 2, to: 0, count: 3, want: []string{"Cid", "Dee", "Eve", "Ann", "Bob"}},
		{name: "last row to the head", from: 4, to: 0, count: 1, want: []string{"Eve", "Ann", "Bob", "Cid", "Dee"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			p := testutil.NewPeople(t)
			p.Add(t, ann, bob, cid, dee, eve)
			original := p.Names()

			// Act
			require.NoError(t, p.Model.Move(tc.from, tc.to, tc.count))
			moved := p.Names()
			require.NoError(t, p.Model.Move(tc.to, tc.from, tc.count))

			// Assert
			assert.Equal(t, tc.want, moved)
			assert.Equal(t, original, p.Names())
		})
	}
}

// relocate is the reference behavior of Move: the block [from, from+count)
// ends up starting at row to.
func relocate(names []string, from, to, count int) []string {
	block := append([]string(nil), names[from:from+count]...)
	rest := append(append([]string(nil), names[:from]...), names[from+count:]...)
	out := append(append([]string(nil), rest[:to]...), block...)
	return append(out, rest[to:]...)
}

func TestMove_RandomizedAgainstReference(t *testing.T) {
	// Arrange
	const size = 8
	p := testutil.NewPeople(t)
	for i := range size {
		p.Add(t, testutil.Person{Name: fmt.Sprintf("P%d", i), Age: i})
	}
	rng := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 500; i++ {
		from := rng.IntN(size+3) - 1
		to := rng.IntN(size+3) - 1
		count := rng.IntN(size + 1)
		before := p.Names()
		p.Events.Reset()

		// Act
		err := p.Model.Move(from, to, count)

		// Assert
		valid := from >= 0 && to >= 0 && from+count <= size && to+count <= size
		switch {
		case from == to || count == 0:
			require.NoError(t, err, "move(%d,%d,%d)", from, to, count)
			assert.Equal(t, before, p.Names())
			assert.Equal(t, nobody, p.Events.Events())
		case !valid:
			require.ErrorIs(t, err, modelerr.ErrOutOfRange, "move(%d,%d,%d)", from, to, count)
			assert.Equal(t, before, p.Names())
			assert.Equal(t, nobody, p.Events.Events())
		default:
			require.NoError(t, err, "move(%d,%d,%d)", from, to, count)
			require.Equal(t, relocate(before, from, to, count), p.Names(), "move(%d,%d,%d)", from, to, count)
			require.NoError(t, p.Model.Move(to, from, count))
			require.Equal(t, before, p.Names(), "move(%d,%d,%d) and back", from, to, count)
			require.NoError(t, p.Model.Move(from, to, count))
		}
	}
	assert.Equal(t, size, p.Model.Count())
}

func TestMove_NoOps(t *testing.T) {
	p := testutil.NewPeople(t)
	p.Add(t, ann, bob)

	require.NoError(t, p.Model.Move(1, 1, 1))
	require.NoError(t, p.Model.Move(0, 1, 0))
	require.NoError(t, p.Model.Move(9, 9, 3), "from == to is never validated")

	assert.Equal(t, nobody, p.Events.Events())
	assert.Zero(t, p.Updates)
}

func TestMove_InvalidChangesNothing(t *testing.T) {
	testCases := []struct {
		name            string
		from, to, count int
	}{
		{name: "destination past end", from: 0, to: 3, count: 1},
		{name: "block overruns end", from: 0, to: 2, count: 2},
		{name: "source past end", from: 5, to: 0, count: 1},
		{name: "negative source", from: -1, to: 1, count: 1},
		{name: "negative destination", from: 1, to: -1, count: 1},
		{name: "negative count", from: 0, to: 1, count: -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := testutil.NewPeople(t)
			p.Add(t, ann, bob, cid)

			err := p.Model.Move(tc.from, tc.to, tc.count)

			require.ErrorIs(t, err, modelerr.ErrOutOfRange)
			assert.Equal(t, []string{"Ann", "Bob", "Cid"}, p.Names())
			assert.Equal(t, nobody, p.Events.Events())
		})
	}
}

func TestClear(t *testing.T) {
	// Arrange
	p := testutil.NewPeople(t)
	p.Add(t, ann, bob, cid)

	// Act
	err := p.Model.Clear()

	// Assert
	require.NoError(t, err)
	assert.Zero(t, p.Model.Count())
	assert.Empty(t, *p.Items)
	assert.Equal(t, []listmodel.Event{
		{Kind: listmodel.BeginRemove, First: 0, Last: 2},
		{Kind: listmodel.EndRemove, First: 0, Last: 2},
		{Kind: listmodel.CountChanged},
	}, p.Events.Events())

	require.NoError(t, p.Model.Append([]any{"Dee", 52}))
	assert.Equal(t, 1, p.Model.Count())
}

func TestClear_EmptyModelIsSilent(t *testing.T) {
	p := testutil.NewPeople(t)

	require.NoError(t, p.Model.Clear())

	assert.Equal(t, nobody, p.Events.Events())
	assert.Zero(t, p.Updates)
}

func TestAddRole_DuplicateIsNoOp(t *testing.T) {
	p := testutil.NewPeople(t)
	before := p.Model.RoleNames()
	getter := testutil.AttrGetter("name")

	err := p.Model.AddRole("name", getter, nil)

	require.ErrorIs(t, err, modelerr.ErrDuplicateRole)
	assert.Equal(t, before, p.Model.RoleNames())
	assert.Zero(t, p.Pins.Count(getter))
	assert.Equal(t, nobody, p.Events.Events())
}

func TestAddRole_NotifiesRolesChanged(t *testing.T) {
	p := testutil.NewPeople(t)

	require.NoError(t, p.Model.AddRole("label", testutil.AttrGetter("name"), nil))

	assert.Equal(t, []listmodel.Event{{Kind: listmodel.RolesChanged}}, p.Events.Events())
	assert.Equal(t, []string{"name", "age", "label"}, p.Model.Roles())
}

func TestSetRole_SameNameRefreshesColumn(t *testing.T) {
	p := testutil.NewPeople(t)
	p.Add(t, ann, bob)
	upper := host.NewGetter("name", func(item cty.Value) (cty.Value, error) {
		return cty.StringVal("X-" + item.GetAttr("name").AsString()), nil
	})

	require.NoError(t, p.Model.SetRole(0, "name", upper, nil))

	assert.Equal(t, []listmodel.Event{
		{Kind: listmodel.DataChanged, First: 0, Last: 1, Roles: []int{0}},
	}, p.Events.Events())
	assert.Equal(t, "X-Bob", p.Model.Data(1, 0))
	assert.False(t, p.Model.SetData(0, 0, "Zed"), "setter was dropped")
}

func TestSetRole_Rename(t *testing.T) {
	p := testutil.NewPeople(t)
	p.Add(t, ann)

	require.NoError(t, p.Model.SetRole(1, "years", testutil.AttrGetter("age"), nil))

	assert.Equal(t, []listmodel.Event{{Kind: listmodel.RolesChanged}}, p.Events.Events())
	assert.Equal(t, map[int]string{0: "name", 1: "years"}, p.Model.RoleNames())
	require.ErrorIs(t, p.Model.SetRole(0, "years", testutil.AttrGetter("age"), nil), modelerr.ErrDuplicateRole)
}

func TestRemoveRole(t *testing.T) {
	p := testutil.NewPeople(t)
	p.Add(t, ann)

	require.NoError(t, p.Model.RemoveRole(0))
	assert.Equal(t, []string{"age"}, p.Model.Roles())
	assert.Equal(t, int64(30), p.Model.Data(0, 0), "age moved down to id 0")

	require.NoError(t, p.Model.RemoveRoleByName("age"))
	assert.Empty(t, p.Model.Roles())
	assert.Equal(t, []listmodel.EventKind{listmodel.RolesChanged, listmodel.RolesChanged}, p.Events.Kinds())

	require.ErrorIs(t, p.Model.RemoveRole(0), modelerr.ErrOutOfRange)
	require.ErrorIs(t, p.Model.RemoveRoleByName("age"), modelerr.ErrOutOfRange)
	assert.Equal(t, 3, p.Pins.Len(), "only store, hook and constructor remain pinned")
}
