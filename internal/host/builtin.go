package host

import (
	"github.com/vk/listmodel/internal/backing"
	"github.com/vk/listmodel/internal/modelerr"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// StringRole is the name of the role a fresh model starts with.
const StringRole = "string"

var (
	stringify  = NewGetter(StringRole, stringifyItem)
	nullSetter = NewSetter("null", func(backing.Store, cty.Value, int) error {
		return modelerr.ErrMissingAccessor
	})
)

// Stringify returns the builtin getter rendering any item as a string.
// Primitives convert directly; collections and objects render as JSON.
func Stringify() *Func { return stringify }

// NullSetter returns the setter used for read-only or unknown roles. It
// always fails with modelerr.ErrMissingAccessor.
func NullSetter() *Func { return nullSetter }

func stringifyItem(item cty.Value) (cty.Value, error) {
	switch {
	case !item.IsKnown():
		return cty.StringVal(""), nil
	case item.IsNull():
		return cty.StringVal("null"), nil
	case item.Type().IsPrimitiveType():
		return convert.Convert(item, cty.String)
	}
	buf, err := ctyjson.Marshal(item, item.Type())
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(string(buf)), nil
}
