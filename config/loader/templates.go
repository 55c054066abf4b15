package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/trinio-labs/bake/recipetemplate"
)

// loadTemplates reads every *.yml/*.yaml file directly under dir
// (.bake/templates) into a recipe template. extends chains are
// resolved later, once every template in the project is known —
// loadTemplates only reads and converts.
func loadTemplates(dir string) (map[string]*recipetemplate.Template, error) {
	out := map[string]*recipetemplate.Template{}

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

		var raw rawTemplateFile
		if err := yaml.UnmarshalWithOptions(b, &raw, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("loader: parse template %s: %w", path, err)
		}

		if raw.Name != stem(path) {
			return nil, &FilenameMismatchError{Kind: "template", Path: path, Declared: raw.Name}
		}

		out[raw.Name] = raw.resolve()
	}

	return out, nil
}
