// Package seed reads initial records for a list model from YAML or JSON.
//
// A seed file is either a bare sequence of records or a mapping with a
// "records" key holding one. A record is a mapping (named fields) or a
// sequence (positional constructor arguments).
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/listmodel/internal/ctxlog"
	"github.com/vk/listmodel/internal/listmodel"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// Format is a seed file encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// ErrUnknownFormat is returned for files whose extension names no Format.
var ErrUnknownFormat = errors.New("unknown seed format")

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Load reads the records in path.
func Load(ctx context.Context, path string) ([]any, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	records, err := Decode(format, data)
	if err != nil {
		return nil, fmt.Errorf("decoding seed file %s: %w", path, err)
	}
	ctxlog.FromContext(ctx).Debug("Seed file loaded.", "path", path, "format", format, "records", len(records))
	return records, nil
}

// Decode parses records. YAML records come back as map[string]any or []any;
// JSON records come back as cty object or tuple values.
func Decode(format Format, data []byte) ([]any, error) {
	switch format {
	case YAML:
		return decodeYAML(data)
	case JSON:
		return decodeJSON(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func decodeYAML(data []byte) ([]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	var records []any
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&records); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var wrapper struct {
			Records []any `yaml:"records"`
		}
		if err := root.Decode(&wrapper); err != nil {
			return nil, err
		}
		records = wrapper.Records
	default:
		return nil, fmt.Errorf("line %d: expected a sequence of records or a mapping with a records key", root.Line)
	}

	for i, r := range records {
		switch r.(type) {
		case map[string]any, []any:
		default:
			return nil, fmt.Errorf("record %d: expected a mapping or a sequence, got %T", i, r)
		}
	}
	return records, nil
}

func decodeJSON(data []byte) ([]any, error) {
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return nil, err
	}
	v, err := ctyjson.Unmarshal(data, ty)
	if err != nil {
		return nil, err
	}
	if ty.IsObjectType() {
		if !ty.HasAttribute("records") {
			return nil, errors.New(`expected an array of records or an object with a "records" key`)
		}
		v = v.GetAttr("records")
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.Type().IsTupleType() && !v.Type().IsListType() {
		return nil, fmt.Errorf("expected an array of records, got %s", v.Type().FriendlyName())
	}

	records := make([]any, 0, v.LengthInt())
	for i, r := range v.AsValueSlice() {
		t := r.Type()
		if r.IsNull() || !(t.IsObjectType() || t.IsTupleType()) {
			return nil, fmt.Errorf("record %d: expected an object or an array, got %s", i, t.FriendlyName())
		}
		records = append(records, r)
	}
	return records, nil
}

// Apply appends every record to m in order and returns how many were added.
// It stops at the first record the model rejects.
func Apply(m *listmodel.Model, records []any) (int, error) {
	for i, r := range records {
		if err := m.Append(r); err != nil {
			return i, fmt.Errorf("seed record %d: %w", i, err)
		}
	}
	return len(records), nil
}
