package valueconv

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestToUI(t *testing.T) {
	tests := []struct {
		name string
		in   cty.Value
		want any
	}{
		{"string", cty.StringVal("Ann"), "Ann"},
		{"whole number", cty.NumberIntVal(30), int64(30)},
		{"fraction", cty.NumberFloatVal(1.5), 1.5},
		{"bool", cty.True, true},
		{"null", cty.NullVal(cty.String), nil},
		{"unknown", cty.UnknownVal(cty.Number), nil},
		{"tuple", cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.NumberIntVal(2)}), []any{"a", int64(2)}},
		{"set", cty.SetVal([]cty.Value{cty.StringVal("x")}), []any{"x"}},
		{"object", cty.ObjectVal(map[string]cty.Value{
			"name": cty.StringVal("Ann"),
			"tags": cty.ListVal([]cty.Value{cty.StringVal("x")}),
		}), map[string]any{"name": "Ann", "tags": []any{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().ToUI(tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ToUI() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToUI_UnsupportedCapsule(t *testing.T) {
	capsule := cty.CapsuleVal(cty.Capsule("thing", reflect.TypeOf(0)), new(int))
	_, err := New().ToUI(capsule)
	require.Error(t, err)
}

func TestFromUI(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want cty.Value
	}{
		{"nil", nil, cty.NullVal(cty.DynamicPseudoType)},
		{"string", "Ann", cty.StringVal("Ann")},
		{"int", 31, cty.NumberIntVal(31)},
		{"float", 2.5, cty.NumberFloatVal(2.5)},
		{"json number", json.Number("12"), cty.NumberIntVal(12)},
		{"bool", false, cty.False},
		{"empty list", []any{}, cty.EmptyTupleVal},
		{"list", []any{"a", 1}, cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.NumberIntVal(1)})},
		{"map", map[string]any{"age": 30}, cty.ObjectVal(map[string]cty.Value{"age": cty.NumberIntVal(30)})},
		{"typed slice", []string{"x"}, cty.ListVal([]cty.Value{cty.StringVal("x")})},
		{"passthrough", cty.StringVal("raw"), cty.StringVal("raw")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().FromUI(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.RawEquals(got), "want %#v, got %#v", tt.want, got)
		})
	}
}

func TestFromUI_UnsupportedType(t *testing.T) {
	_, err := New().FromUI(make(chan int))
	require.Error(t, err)
}

func TestFromUI_NaN(t *testing.T) {
	testCases := []struct {
		name string
		in   any
	}{
		{name: "float64", in: math.NaN()},
		{name: "float32", in: float32(math.NaN())},
		{name: "nested in a record", in: map[string]any{"age": math.NaN()}},
		{name: "typed slice", in: []float64{1, math.NaN()}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New().FromUI(tc.in)

			require.Error(t, err)
		})
	}
}

func TestFromUI_Infinity(t *testing.T) {
	got, err := New().FromUI(math.Inf(1))

	require.NoError(t, err)
	assert.True(t, got.AsBigFloat().IsInf())
}

func TestRoundTrip_NestedRecord(t *testing.T) {
	in := map[string]any{
		"name": "Ann",
		"age":  int64(30),
		"pets": []any{"cat", map[string]any{"kind": "dog", "good": true}},
	}
	c := New()
	v, err := c.FromUI(in)
	require.NoError(t, err)
	out, err := c.ToUI(v)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
