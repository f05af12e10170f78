// Package host models the callables a host environment hands to the list
// model: role getters and setters, the item constructor and the update hook.
//
// Every callable is a *Func, a pointer handle around a cty function with a
// fixed signature for its kind. The pointer is the callable's identity: the
// pin table keys on it, and replacing a role's getter means swapping one
// handle for another.
package host

import (
	"fmt"

	"github.com/vk/listmodel/internal/backing"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Kind is the signature family of a Func.
type Kind int

const (
	// Getter: item -> value.
	Getter Kind = iota
	// Setter: (store, value, index) -> error.
	Setter
	// Constructor: args... -> item.
	Constructor
	// Hook: () -> error.
	Hook
)

func (k Kind) String() string {
	switch k {
	case Getter:
		return "getter"
	case Setter:
		return "setter"
	case Constructor:
		return "constructor"
	case Hook:
		return "hook"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Func is a host callable of a known kind.
type Func struct {
	name string
	kind Kind
	fn   function.Function
}

// Name returns the name the callable was registered under.
func (f *Func) Name() string { return f.name }

// Kind returns the signature family.
func (f *Func) Kind() Kind { return f.kind }

// Function exposes the underlying cty function, e.g. for an HCL eval context.
func (f *Func) Function() function.Function { return f.fn }

func (f *Func) String() string {
	return fmt.Sprintf("%s %s", f.kind, f.name)
}

// Get applies a getter to an item.
func (f *Func) Get(item cty.Value) (cty.Value, error) {
	if err := f.expect(Getter); err != nil {
		return cty.NilVal, err
	}
	return f.fn.Call([]cty.Value{item})
}

// Put applies a setter: it writes value into the item at index of store.
func (f *Func) Put(store backing.Store, value cty.Value, index int) error {
	if err := f.expect(Setter); err != nil {
		return err
	}
	_, err := f.fn.Call([]cty.Value{StoreVal(store), value, cty.NumberIntVal(int64(index))})
	return err
}

// Construct calls a constructor with positional arguments.
func (f *Func) Construct(args ...cty.Value) (cty.Value, error) {
	if err := f.expect(Constructor); err != nil {
		return cty.NilVal, err
	}
	return f.fn.Call(args)
}

// Invoke runs a hook.
func (f *Func) Invoke() error {
	if err := f.expect(Hook); err != nil {
		return err
	}
	_, err := f.fn.Call(nil)
	return err
}

func (f *Func) expect(k Kind) error {
	if f.kind != k {
		return fmt.Errorf("%s called as a %s", f, k)
	}
	return nil
}

// dynamicParam accepts any value, including null, unknown and dynamically
// typed ones, so the host function always runs.
func dynamicParam(name string) function.Parameter {
	return function.Parameter{
		Name:             name,
		Type:             cty.DynamicPseudoType,
		AllowNull:        true,
		AllowUnknown:     true,
		AllowDynamicType: true,
	}
}

// NewGetter builds a getter from a Go function.
func NewGetter(name string, get func(item cty.Value) (cty.Value, error)) *Func {
	return &Func{name: name, kind: Getter, fn: function.New(&function.Spec{
		Description: "Reads role " + name + " from an item.",
		Params:      []function.Parameter{dynamicParam("item")},
		Type:        function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			v, err := get(args[0])
			if err != nil {
				return cty.NilVal, err
			}
			if v.Type() == cty.NilType {
				return cty.NullVal(cty.DynamicPseudoType), nil
			}
			return v, nil
		},
	})}
}

// NewSetter builds a setter from a Go function. The store handed to set is
// only valid for the duration of the call.
func NewSetter(name string, set func(store backing.Store, value cty.Value, index int) error) *Func {
	return &Func{name: name, kind: Setter, fn: function.New(&function.Spec{
		Description: "Writes role " + name + " into the item at index.",
		Params: []function.Parameter{
			{Name: "store", Type: StoreType},
			dynamicParam("value"),
			{Name: "index", Type: cty.Number},
		},
		Type: function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			var index int
			if err := gocty.FromCtyValue(args[2], &index); err != nil {
				return cty.NilVal, function.NewArgError(2, err)
			}
			if err := set(StoreFromVal(args[0]), args[1], index); err != nil {
				return cty.NilVal, err
			}
			return cty.True, nil
		},
	})}
}

// NewConstructor builds a constructor taking exactly len(params) positional
// arguments. Calls with another arity fail without reaching build.
func NewConstructor(name string, params []string, build func(args []cty.Value) (cty.Value, error)) *Func {
	ps := make([]function.Parameter, len(params))
	for i, p := range params {
		ps[i] = dynamicParam(p)
	}
	return &Func{name: name, kind: Constructor, fn: function.New(&function.Spec{
		Description: "Builds a new item.",
		Params:      ps,
		Type:        function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			v, err := build(args)
			if err != nil {
				return cty.NilVal, err
			}
			if v.Type() == cty.NilType {
				return cty.NilVal, fmt.Errorf("constructor %s returned no item", name)
			}
			return v, nil
		},
	})}
}

// NewHook builds an update hook.
func NewHook(name string, hook func() error) *Func {
	return &Func{name: name, kind: Hook, fn: function.New(&function.Spec{
		Description: "Runs after every model mutation.",
		Type:        function.StaticReturnType(cty.Bool),
		Impl: func(_ []cty.Value, _ cty.Type) (cty.Value, error) {
			if err := hook(); err != nil {
				return cty.NilVal, err
			}
			return cty.True, nil
		},
	})}
}

// FromFunction wraps an existing cty function, checking that its parameters
// fit the signature of kind.
func FromFunction(kind Kind, name string, fn function.Function) (*Func, error) {
	params := fn.Params()
	variadic := fn.VarParam() != nil
	switch kind {
	case Getter:
		if len(params) != 1 || variadic {
			return nil, fmt.Errorf("getter %s must take exactly one parameter, has %d", name, len(params))
		}
	case Setter:
		if len(params) != 3 || variadic || !params[0].Type.Equals(StoreType) {
			return nil, fmt.Errorf("setter %s must take (store, value, index)", name)
		}
	case Hook:
		if len(params) != 0 || variadic {
			return nil, fmt.Errorf("hook %s must take no parameters", name)
		}
	case Constructor:
	default:
		return nil, fmt.Errorf("unknown callable kind %s", kind)
	}
	return &Func{name: name, kind: kind, fn: fn}, nil
}
