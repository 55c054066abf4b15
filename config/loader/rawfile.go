package loader

// The Raw* types mirror the on-disk YAML shapes of bake.yml,
// cookbook.yml, and the .bake/templates and .bake/helpers documents.
// variables: and overrides: are deliberately NOT typed fields here —
// varctx.BuildLayer extracts and renders their raw source text before
// any of it is parsed, so by the time these structs are unmarshaled
// those two keys are consumed separately. They still appear as `any`
// fields purely so yaml.Strict() doesn't reject the document for an
// "unknown field" it never intended to interpret structurally here.

type rawProjectFile struct {
	Name        *string        `yaml:"name"`
	Description *string        `yaml:"description"`
	Variables   any            `yaml:"variables"`
	Overrides   any            `yaml:"overrides"`
	Environment []string       `yaml:"environment"`
	Config      rawToolConfig  `yaml:"config"`
	Cache       rawCacheConfig `yaml:"cache"`
	Update      rawUpdateConfig `yaml:"update"`
}

type rawToolConfig struct {
	MaxParallel      *int    `yaml:"max_parallel"`
	ReservedThreads  *int    `yaml:"reserved_threads"`
	FastFail         *bool   `yaml:"fast_fail"`
	CleanEnvironment *bool   `yaml:"clean_environment"`
	Verbose          *bool   `yaml:"verbose"`
	MinVersion       *string `yaml:"min_version"`
}

type rawCacheConfig struct {
	Mode   *string         `yaml:"mode"`
	Dir    *string         `yaml:"dir"`
	Remote []rawRemoteTier `yaml:"remote"`
}

type rawRemoteTier struct {
	Name    string         `yaml:"name"`
	Driver  string         `yaml:"driver"`
	Bucket  string         `yaml:"bucket"`
	Prefix  string         `yaml:"prefix"`
	Region  string         `yaml:"region"`
	Options map[string]any `yaml:"options"`
}

type rawUpdateConfig struct {
	Enabled *bool   `yaml:"enabled"`
	Channel *string `yaml:"channel"`
}

type rawCookbookFile struct {
	Name        *string             `yaml:"name"`
	Description *string             `yaml:"description"`
	Variables   any                 `yaml:"variables"`
	Overrides   any                 `yaml:"overrides"`
	Environment []string            `yaml:"environment"`
	Recipes     map[string]rawRecipe `yaml:"recipes"`
}

type rawRecipe struct {
	Description  *string          `yaml:"description"`
	Run          *string          `yaml:"run"`
	Template     *rawTemplateRef  `yaml:"template"`
	Dependencies []string         `yaml:"dependencies"`
	Environment  []string         `yaml:"environment"`
	Variables    any              `yaml:"variables"`
	Overrides    any              `yaml:"overrides"`
	Cache        *rawCacheSpec    `yaml:"cache"`
	Tags         []string         `yaml:"tags"`
}

type rawTemplateRef struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

type rawCacheSpec struct {
	Inputs  []string `yaml:"inputs"`
	Outputs []string `yaml:"outputs"`
}

// rawTemplateFile is .bake/templates/<name>.yml. Unlike project and
// cookbook files, its variables/parameters are typed structurally —
// recipe-template bodies reference params.* only, so there is no
// layered self-reference problem requiring raw-text extraction.
type rawTemplateFile struct {
	Name        string                    `yaml:"name"`
	Description *string                   `yaml:"description"`
	Extends     *string                   `yaml:"extends"`
	Parameters  map[string]rawParamSchema `yaml:"parameters"`
	Template    rawTemplateBody           `yaml:"template"`
}

type rawParamSchema struct {
	Type       string                    `yaml:"type"`
	Required   bool                      `yaml:"required"`
	Default    any                       `yaml:"default"`
	Pattern    string                    `yaml:"pattern"`
	Min        *float64                  `yaml:"min"`
	Max        *float64                  `yaml:"max"`
	Items      *rawParamSchema           `yaml:"items"`
	Properties map[string]rawParamSchema `yaml:"properties"`
}

type rawTemplateBody struct {
	Run          string         `yaml:"run"`
	Dependencies []string       `yaml:"dependencies"`
	Tags         []string       `yaml:"tags"`
	Cache        *rawCacheSpec  `yaml:"cache"`
	Variables    map[string]any `yaml:"variables"`
	Environment  []string       `yaml:"environment"`
}

// rawHelperFile is .bake/helpers/<name>.yml.
type rawHelperFile struct {
	Name        string                    `yaml:"name"`
	Description *string                   `yaml:"description"`
	Parameters  map[string]rawParamSchema `yaml:"parameters"`
	Variables   map[string]any            `yaml:"variables"`
	Environment []string                  `yaml:"environment"`
	Returns     string                    `yaml:"returns"`
	Run         string                    `yaml:"run"`
}
