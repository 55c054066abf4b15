package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/trinio-labs/bake/config"
)

// FilenameMismatchError fires when a helper or template file's
// declared name doesn't match its filename stem.
type FilenameMismatchError struct {
	Kind     string
	Path     string
	Declared string
}

func (e *FilenameMismatchError) Error() string {
	return fmt.Sprintf("loader: %s file %s declares name %q, which must equal the filename", e.Kind, e.Path, e.Declared)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(strings.TrimSuffix(base, ".yml"), ".yaml")
}

// loadHelpers reads every *.yml/*.yaml file directly under dir
// (.bake/helpers) into a Helper, rejecting a declared name that
// doesn't match the file's stem. A missing directory is not an error —
// most projects declare no custom helpers.
func loadHelpers(dir string) (map[string]config.Helper, error) {
	out := map[string]config.Helper{}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		var raw rawHelperFile
		if err := yaml.UnmarshalWithOptions(b, &raw, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("loader: parse helper %s: %w", path, err)
		}

		if raw.Name != stem(path) {
			return nil, &FilenameMismatchError{Kind: "helper", Path: path, Declared: raw.Name}
		}

		order, err := parameterOrder(b)
		if err != nil {
			return nil, fmt.Errorf("loader: %s: %w", path, err)
		}

		helper := raw.resolve()
		helper.ParamOrder = order
		out[raw.Name] = helper
	}

	return out, nil
}

// parameterOrder re-reads a helper/template file's parameters: key in
// a second, order-preserving pass — a map[string]rawParamSchema has
// already thrown away declaration order by the time rawHelperFile is
// decoded, but positional helper calls ({{name a b}}) need it.
func parameterOrder(b []byte) ([]string, error) {
	var probe struct {
		Parameters yaml.MapSlice `yaml:"parameters"`
	}
	if err := yaml.Unmarshal(b, &probe); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(probe.Parameters))
	for _, item := range probe.Parameters {
		key, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("parameter key %v is not a string", item.Key)
		}
		names = append(names, key)
	}
	return names, nil
}

func isYAMLFile(name string) bool {
	return strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
}
