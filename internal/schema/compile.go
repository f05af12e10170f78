package schema

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/listmodel/internal/backing"
	"github.com/vk/listmodel/internal/ctxlog"
	"github.com/vk/listmodel/internal/host"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

var (
	getterScope = []string{"item"}
	setterScope = []string{"item", "value", "index"}
)

type compiler struct {
	ctx   context.Context
	funcs map[string]function.Function
}

func (c *compiler) evalContext(vars map[string]cty.Value) *hcl.EvalContext {
	return &hcl.EvalContext{Variables: vars, Functions: c.funcs}
}

func (c *compiler) role(b *RoleBlock) (Role, hcl.Diagnostics) {
	logger := ctxlog.FromContext(c.ctx).With("role", b.Name)
	var diags hcl.Diagnostics

	if !hclsyntax.ValidIdentifier(b.Name) {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid role name",
			Detail:   fmt.Sprintf("%q is not a valid identifier.", b.Name),
			Subject:  b.DefRange.Ptr(),
		})
	}

	typ := cty.DynamicPseudoType
	if isExprDefined(c.ctx, b.Type, "type") {
		t, typeDiags := typeexpr.TypeConstraint(b.Type)
		diags = append(diags, typeDiags...)
		typ = t
	}

	if missing := c.required(b.Get, "get", b.DefRange); missing != nil {
		return Role{}, append(diags, missing)
	}
	what := fmt.Sprintf("getter of role %q", b.Name)
	diags = append(diags, checkExpr(b.Get, what, getterScope, c.funcs)...)

	writable := isExprDefined(c.ctx, b.Set, "set")
	if writable {
		what = fmt.Sprintf("setter of role %q", b.Name)
		diags = append(diags, checkExpr(b.Set, what, setterScope, c.funcs)...)
	}
	if diags.HasErrors() {
		return Role{}, diags
	}

	role := Role{
		Name:        b.Name,
		Description: b.Description,
		Type:        typ,
		Getter:      c.getter(b.Name, b.Get, typ),
	}
	if writable {
		role.Setter = c.setter(b.Name, b.Set, typ)
	}
	logger.Debug("Compiled role.", "type", typ.FriendlyName(), "read_only", !writable)
	return role, diags
}

// required reports an attribute gohcl let through empty. Expression fields
// are never enforced by the decoder.
func (c *compiler) required(expr hcl.Expression, attrName string, block hcl.Range) *hcl.Diagnostic {
	if isExprDefined(c.ctx, expr, attrName) {
		return nil
	}
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Missing required argument",
		Detail:   fmt.Sprintf("The argument %q is required, but no definition was found.", attrName),
		Subject:  block.Ptr(),
	}
}

func (c *compiler) getter(name string, expr hcl.Expression, typ cty.Type) *host.Func {
	return host.NewGetter(name, func(item cty.Value) (cty.Value, error) {
		v, diags := expr.Value(c.evalContext(map[string]cty.Value{"item": item}))
		if diags.HasErrors() {
			return cty.NilVal, diags
		}
		return conform(name, v, typ)
	})
}

func (c *compiler) setter(name string, expr hcl.Expression, typ cty.Type) *host.Func {
	return host.NewSetter(name, func(store backing.Store, value cty.Value, index int) error {
		value, err := conform(name, value, typ)
		if err != nil {
			return err
		}
		item, err := store.Get(index)
		if err != nil {
			return err
		}
		next, diags := expr.Value(c.evalContext(map[string]cty.Value{
			"item":  item,
			"value": value,
			"index": cty.NumberIntVal(int64(index)),
		}))
		if diags.HasErrors() {
			return diags
		}
		if next.IsNull() || !next.IsWhollyKnown() {
			return fmt.Errorf("setter of role %q produced an incomplete item", name)
		}
		return store.Set(index, next)
	})
}

// conform converts v to the declared type of a role.
func conform(role string, v cty.Value, typ cty.Type) (cty.Value, error) {
	if typ == cty.DynamicPseudoType {
		return v, nil
	}
	out, err := convert.Convert(v, typ)
	if err != nil {
		return cty.NilVal, fmt.Errorf("role %q expects %s: %w", role, typ.FriendlyName(), err)
	}
	return out, nil
}

func (c *compiler) constructor(b *ConstructorBlock) (*host.Func, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	seen := make(map[string]struct{}, len(b.Params))
	for _, p := range b.Params {
		if !hclsyntax.ValidIdentifier(p) {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid constructor parameter",
				Detail:   fmt.Sprintf("%q is not a valid identifier.", p),
				Subject:  b.DefRange.Ptr(),
			})
		}
		if _, dup := seen[p]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate constructor parameter",
				Detail:   fmt.Sprintf("Parameter %q is declared more than once.", p),
				Subject:  b.DefRange.Ptr(),
			})
		}
		seen[p] = struct{}{}
	}
	if missing := c.required(b.Item, "item", b.DefRange); missing != nil {
		return nil, append(diags, missing)
	}
	diags = append(diags, checkExpr(b.Item, "constructor item", b.Params, c.funcs)...)
	if diags.HasErrors() {
		return nil, diags
	}

	params := append([]string(nil), b.Params...)
	expr := b.Item
	fn := host.NewConstructor("constructor", params, func(args []cty.Value) (cty.Value, error) {
		vars := make(map[string]cty.Value, len(params))
		for i, p := range params {
			vars[p] = args[i]
		}
		v, diags := expr.Value(c.evalContext(vars))
		if diags.HasErrors() {
			return cty.NilVal, diags
		}
		return v, nil
	})
	ctxlog.FromContext(c.ctx).Debug("Compiled constructor.", "params", params)
	return fn, diags
}
