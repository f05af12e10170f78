// Package valueconv translates between host items (cty values) and the plain
// Go values a UI layer works with.
package valueconv

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ErrNaN is returned for a NaN float, which has no host representation.
var ErrNaN = errors.New("NaN is not a number value")

// Converter is the value-conversion collaborator of the list model.
type Converter interface {
	// ToUI converts a host value into its UI representation.
	ToUI(v cty.Value) (any, error)
	// FromUI converts a UI value into a host value.
	FromUI(v any) (cty.Value, error)
}

// Native converts to and from the JSON-shaped Go types: nil, string, bool,
// int64, float64, []any and map[string]any.
type Native struct{}

var _ Converter = Native{}

// New returns the default converter.
func New() Native {
	return Native{}
}

// ToUI implements Converter. Whole numbers that fit become int64, other
// numbers float64.
func (Native) ToUI(v cty.Value) (any, error) {
	return toNative(v)
}

// FromUI implements Converter.
func (Native) FromUI(v any) (cty.Value, error) {
	return fromNative(v)
}

func toNative(v cty.Value) (any, error) {
	// A null or unknown value becomes a nil interface{}.
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		slice := make([]any, 0)
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			nativeVal, err := toNative(elem)
			if err != nil {
				return nil, err
			}
			slice = append(slice, nativeVal)
		}
		return slice, nil

	case ty.IsObjectType() || ty.IsMapType():
		goMap := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			keyStr := key.AsString()
			nativeVal, err := toNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", keyStr, err)
			}
			goMap[keyStr] = nativeVal
		}
		return goMap, nil

	default:
		return nil, fmt.Errorf("unsupported cty type for UI conversion: %s", ty.FriendlyName())
	}
}

func fromNative(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return x, nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int32:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case uint:
		return cty.NumberUIntVal(uint64(x)), nil
	case uint64:
		return cty.NumberUIntVal(x), nil
	case float32:
		return floatVal(float64(x))
	case float64:
		return floatVal(x)
	case json.Number:
		n, err := cty.ParseNumberVal(x.String())
		if err != nil {
			return cty.NilVal, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return n, nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(x))
		for i, e := range x {
			ev, err := fromNative(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("in element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(x) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(x))
		for _, k := range sortedKeys(x) {
			av, err := fromNative(x[k])
			if err != nil {
				return cty.NilVal, fmt.Errorf("in attribute '%s': %w", k, err)
			}
			attrs[k] = av
		}
		return cty.ObjectVal(attrs), nil
	}

	// Typed Go values (structs with cty tags, typed slices and maps).
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type for %T: %w", v, err)
	}
	return typedVal(v, ty)
}

func floatVal(x float64) (cty.Value, error) {
	if math.IsNaN(x) {
		return cty.NilVal, ErrNaN
	}
	return cty.NumberFloatVal(x), nil
}

// typedVal runs gocty, which panics on a NaN nested in a typed value.
func typedVal(v any, ty cty.Type) (val cty.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			val, err = cty.NilVal, fmt.Errorf("unable to convert %T: %v", v, r)
		}
	}()
	return gocty.ToCtyValue(v, ty)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
