package recipetemplate

// CachePatch is the output/input glob declaration a template body (or
// an override further down the inheritance chain) may contribute.
// Field-wise additive per spec: a child's Inputs/Outputs are appended
// to, not replacing, the parent's.
type CachePatch struct {
	Inputs  []string `yaml:"inputs,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
}

// Body is the template-body shape merged across an inheritance chain
// and, once params are bound, rendered into a concrete recipe body.
// Run/Dependencies/Tags override wholesale when a child sets them (the
// "child's fields override parent's at the top level" rule); Cache,
// Variables, and Environment merge field-wise/key-wise additive.
type Body struct {
	Run          string            `yaml:"run,omitempty"`
	Dependencies []string          `yaml:"dependencies,omitempty"`
	Tags         []string          `yaml:"tags,omitempty"`
	Cache        *CachePatch       `yaml:"cache,omitempty"`
	Variables    map[string]any    `yaml:"variables,omitempty"`
	Environment  []string          `yaml:"environment,omitempty"`
}

// mergeBody layers child onto parent per spec's step 3.
func mergeBody(parent, child Body) Body {
	out := parent

	if child.Run != "" {
		out.Run = child.Run
	}
	if len(child.Dependencies) > 0 {
		out.Dependencies = child.Dependencies
	}
	if len(child.Tags) > 0 {
		out.Tags = child.Tags
	}

	out.Cache = mergeCache(parent.Cache, child.Cache)
	out.Variables = mergeVariables(parent.Variables, child.Variables)
	out.Environment = mergeEnvironment(parent.Environment, child.Environment)

	return out
}

func mergeCache(parent, child *CachePatch) *CachePatch {
	if parent == nil && child == nil {
		return nil
	}
	merged := &CachePatch{}
	if parent != nil {
		merged.Inputs = append(merged.Inputs, parent.Inputs...)
		merged.Outputs = append(merged.Outputs, parent.Outputs...)
	}
	if child != nil {
		merged.Inputs = append(merged.Inputs, child.Inputs...)
		merged.Outputs = append(merged.Outputs, child.Outputs...)
	}
	return merged
}

func mergeVariables(parent, child map[string]any) map[string]any {
	if parent == nil && child == nil {
		return nil
	}
	merged := make(map[string]any, len(parent)+len(child))
	for k, v := range parent {
		merged[k] = v
	}
	for k, v := range child {
		merged[k] = v
	}
	return merged
}

func mergeEnvironment(parent, child []string) []string {
	if len(parent) == 0 {
		return child
	}
	seen := make(map[string]bool, len(parent)+len(child))
	merged := make([]string, 0, len(parent)+len(child))
	for _, name := range parent {
		if !seen[name] {
			seen[name] = true
			merged = append(merged, name)
		}
	}
	for _, name := range child {
		if !seen[name] {
			seen[name] = true
			merged = append(merged, name)
		}
	}
	return merged
}
