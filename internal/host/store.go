package host

import (
	"reflect"

	"github.com/vk/listmodel/internal/backing"
	"github.com/zclconf/go-cty/cty"
)

// StoreType is the capsule type setters receive their store handle as.
var StoreType = cty.Capsule("store", reflect.TypeOf((*backing.Store)(nil)).Elem())

// StoreVal encapsulates a store handle.
func StoreVal(s backing.Store) cty.Value {
	return cty.CapsuleVal(StoreType, &s)
}

// StoreFromVal unwraps a value built by StoreVal.
func StoreFromVal(v cty.Value) backing.Store {
	return *v.EncapsulatedValue().(*backing.Store)
}
