package testutil

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/listmodel/internal/backing"
	"github.com/vk/listmodel/internal/host"
	"github.com/vk/listmodel/internal/listmodel"
	"github.com/vk/listmodel/internal/pin"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// People is a model over {name, age} objects with a read-write "name" and
// "age" role and a (name, age) constructor.
type People struct {
	Model   *listmodel.Model
	Items   *[]cty.Value
	Pins    *pin.Table
	Events  *Recorder
	Logs    *SafeBuffer
	Updates int
}

// NewPeople builds the fixture. Extra options are applied after the
// fixture's own, so tests may override the logger or the update hook.
func NewPeople(t *testing.T, opts ...listmodel.Option) *People {
	t.Helper()

	p := &People{
		Items:  new([]cty.Value),
		Pins:   pin.NewTable(),
		Events: &Recorder{},
		Logs:   &SafeBuffer{},
	}
	hook := host.NewHook("count_updates", func() error {
		p.Updates++
		return nil
	})

	base := []listmodel.Option{
		listmodel.WithLogger(NewLogger(p.Logs)),
		listmodel.WithPinner(p.Pins),
		listmodel.WithUpdateHook(hook),
		listmodel.WithConstructor(PersonConstructor()),
	}
	p.Model = listmodel.New(backing.New(p.Items), append(base, opts...)...)

	require.NoError(t, p.Model.AddRole("name", AttrGetter("name"), AttrSetter("name")))
	require.NoError(t, p.Model.AddRole("age", AttrGetter("age"), AttrSetter("age")))
	p.Model.Subscribe(p.Events)
	t.Cleanup(p.Model.Close)
	return p
}

// Add appends people through the model and forgets the events it caused.
func (p *People) Add(t *testing.T, people ...Person) {
	t.Helper()
	for _, person := range people {
		require.NoError(t, p.Model.Append([]any{person.Name, person.Age}))
	}
	p.Events.Reset()
	p.Updates = 0
}

// Names returns the "name" attribute of every item, read straight from the
// backing slice.
func (p *People) Names() []string {
	out := make([]string, len(*p.Items))
	for i, item := range *p.Items {
		out[i] = item.GetAttr("name").AsString()
	}
	return out
}

// Person is a plain record for People.Add.
type Person struct {
	Name string
	Age  int
}

// PersonVal builds the item a PersonConstructor call would.
func PersonVal(name string, age int) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"name": cty.StringVal(name),
		"age":  cty.NumberIntVal(int64(age)),
	})
}

// PersonConstructor builds {name, age} objects, rejecting arguments that do
// not convert to a string and a number.
func PersonConstructor() *host.Func {
	return host.NewConstructor("person", []string{"name", "age"}, func(args []cty.Value) (cty.Value, error) {
		name, err := convert.Convert(args[0], cty.String)
		if err != nil {
			return cty.NilVal, fmt.Errorf("name: %w", err)
		}
		age, err := convert.Convert(args[1], cty.Number)
		if err != nil {
			return cty.NilVal, fmt.Errorf("age: %w", err)
		}
		return cty.ObjectVal(map[string]cty.Value{"name": name, "age": age}), nil
	})
}

// AttrGetter reads one attribute of an object item.
func AttrGetter(attr string) *host.Func {
	return host.NewGetter(attr, func(item cty.Value) (cty.Value, error) {
		if !item.Type().IsObjectType() || !item.Type().HasAttribute(attr) {
			return cty.NilVal, fmt.Errorf("item has no attribute %q", attr)
		}
		return item.GetAttr(attr), nil
	})
}

// AttrSetter replaces one attribute of the object item at index.
func AttrSetter(attr string) *host.Func {
	return host.NewSetter(attr, func(store backing.Store, value cty.Value, index int) error {
		item, err := store.Get(index)
		if err != nil {
			return err
		}
		attrs := item.AsValueMap()
		if attrs == nil {
			attrs = make(map[string]cty.Value)
		}
		attrs[attr] = value
		return store.Set(index, cty.ObjectVal(attrs))
	})
}

// NewLogger returns a debug-level text logger writing to buf.
func NewLogger(buf *SafeBuffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
