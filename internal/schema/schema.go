// Package schema loads list-model role definitions from HCL files and
// compiles them into host callables.
//
// A schema file declares roles and at most one constructor:
//
//	role "name" {
//	  get         = item.name
//	  set         = merge(item, { name = value })
//	  type        = string
//	  description = "Display name"
//	}
//
//	constructor {
//	  params = ["name", "age"]
//	  item   = { name = name, age = age }
//	}
//
// A getter sees the variable item. A setter sees item, value and index and
// evaluates to the replacement item. A constructor sees its params.
package schema

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/listmodel/internal/host"
	"github.com/zclconf/go-cty/cty"
)

// RoleBlock is a `role "<name>"` block.
type RoleBlock struct {
	Name        string         `hcl:"name,label"`
	Get         hcl.Expression `hcl:"get"`
	Set         hcl.Expression `hcl:"set,optional"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
	DefRange    hcl.Range      `hcl:",def_range"`
}

// ConstructorBlock is the `constructor` block.
type ConstructorBlock struct {
	Params   []string       `hcl:"params"`
	Item     hcl.Expression `hcl:"item"`
	DefRange hcl.Range      `hcl:",def_range"`
}

// fileRoot decodes every top-level block a schema file may hold.
type fileRoot struct {
	Roles        []*RoleBlock        `hcl:"role,block"`
	Constructors []*ConstructorBlock `hcl:"constructor,block"`
	Remain       hcl.Body            `hcl:",remain"`
}

// Role is a compiled role definition.
type Role struct {
	Name        string
	Description string
	Type        cty.Type
	Getter      *host.Func
	Setter      *host.Func // nil for read-only roles
}

// Schema is the compiled content of one or more schema files.
type Schema struct {
	Roles       []Role
	Constructor *host.Func // nil if no file declares one
	Params      []string
	Files       []string
}

// RoleNames returns role names in declaration order.
func (s *Schema) RoleNames() []string {
	names := make([]string, len(s.Roles))
	for i, r := range s.Roles {
		names[i] = r.Name
	}
	return names
}
