package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/listmodel/internal/ctxlog"
	"github.com/vk/listmodel/internal/fsutil"
	"github.com/zclconf/go-cty/cty/function"
)

// ErrNoSchema is returned when none of the given paths holds a schema file.
var ErrNoSchema = errors.New("no schema files found")

// Loader reads schema files.
type Loader struct {
	funcs map[string]function.Function
}

// NewLoader returns a loader whose expressions may call Functions().
func NewLoader() *Loader {
	return &Loader{funcs: Functions()}
}

type parsedFile struct {
	name string
	file *hcl.File
}

// Load reads every .hcl file under paths. Directories are walked
// recursively; paths that do not exist are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Schema, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Schema loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoSchema, paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	parsed := make([]parsedFile, 0, len(files))
	for _, name := range files {
		f, diags := parser.ParseHCLFile(name)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", name, diags)
		}
		parsed = append(parsed, parsedFile{name: name, file: f})
	}
	return l.build(ctx, parsed)
}

// LoadSource compiles a single schema held in memory.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*Schema, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return l.build(ctx, []parsedFile{{name: filename, file: f}})
}

func (l *Loader) build(ctx context.Context, files []parsedFile) (*Schema, error) {
	c := &compiler{ctx: ctx, funcs: l.funcs}
	s := &Schema{}
	declared := make(map[string]hcl.Range)
	var ctorRange *hcl.Range

	for _, pf := range files {
		var root fileRoot
		if diags := gohcl.DecodeBody(pf.file.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", pf.name, diags)
		}

		for _, block := range root.Roles {
			if prev, dup := declared[block.Name]; dup {
				return nil, fmt.Errorf("failed to decode HCL file %s: %w", pf.name, hcl.Diagnostics{{
					Severity: hcl.DiagError,
					Summary:  "Duplicate role",
					Detail:   fmt.Sprintf("Role %q was already declared at %s.", block.Name, prev),
					Subject:  block.DefRange.Ptr(),
				}})
			}
			declared[block.Name] = block.DefRange

			role, diags := c.role(block)
			if diags.HasErrors() {
				return nil, fmt.Errorf("invalid role %q in %s: %w", block.Name, pf.name, diags)
			}
			s.Roles = append(s.Roles, role)
		}

		for _, block := range root.Constructors {
			if ctorRange != nil {
				return nil, fmt.Errorf("failed to decode HCL file %s: %w", pf.name, hcl.Diagnostics{{
					Severity: hcl.DiagError,
					Summary:  "Duplicate \"constructor\" block",
					Detail:   fmt.Sprintf("Only one \"constructor\" block is allowed; the first is at %s.", ctorRange),
					Subject:  block.DefRange.Ptr(),
				}})
			}
			r := block.DefRange
			ctorRange = &r

			fn, diags := c.constructor(block)
			if diags.HasErrors() {
				return nil, fmt.Errorf("invalid constructor in %s: %w", pf.name, diags)
			}
			s.Constructor = fn
			s.Params = append([]string(nil), block.Params...)
		}
		s.Files = append(s.Files, pf.name)
	}

	ctxlog.FromContext(ctx).Debug("Schema loading complete.", "roles", len(s.Roles), "constructor", s.Constructor != nil, "files", len(s.Files))
	return s, nil
}
