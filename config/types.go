// Package config defines bake's resolved project data model — Project,
// Cookbook, Recipe, and the tool/cache/update configuration blocks.
// The YAML document shapes loader.Load reads them from live in the
// config/loader package (rawfile.go).
package config

import "github.com/trinio-labs/bake/recipetemplate"

// ToolConfig holds the `config:` block of bake.yml.
type ToolConfig struct {
	MaxParallel      int
	ReservedThreads  int
	FastFail         bool
	CleanEnvironment bool
	Verbose          bool
	MinVersion       string
}

// RemoteTier is one configured remote cache tier (S3 or GCS).
type RemoteTier struct {
	Name    string
	Driver  string // "s3" or "gcs"
	Bucket  string
	Prefix  string
	Region  string
	Options map[string]any
}

// CacheConfig holds the `cache:` block of bake.yml. Secret is never
// read from YAML — it only ever comes from BAKE_CACHE_SECRET.
type CacheConfig struct {
	Mode   string
	Dir    string
	Remote []RemoteTier
}

// UpdateConfig holds the `update:` block of bake.yml.
type UpdateConfig struct {
	Enabled bool
	Channel string
}

// Helper is a resolved custom template helper, loaded from
// .bake/helpers/<name>.yml.
type Helper struct {
	Name string
	// ParamOrder preserves the declaration order of Params, which the
	// template engine's positional call args ({{name a b}}) bind to in
	// order — a YAML mapping has no inherent order once decoded into
	// Params, so this is captured separately.
	ParamOrder  []string
	Description string
	Params      map[string]*recipetemplate.ParamSchema
	Variables   map[string]any
	Environment []string
	Returns     string // "string" or "array"
	Run         string
}

// CacheSpec is a recipe's declared input/output glob patterns.
type CacheSpec struct {
	Inputs  []string
	Outputs []string
}

// TemplateRef binds a recipe to a recipe-template by name with
// parameter values supplied by the recipe author.
type TemplateRef struct {
	Name   string
	Params map[string]any
}

// Recipe is the resolved unit of work, identified by FQN
// "cookbook:name". A recipe declares exactly one of Run or Template;
// for a template-backed recipe Run is empty until full loading
// instantiates the template (recipetemplate's job) and fills Run with
// the result, after which Template stays set alongside it.
type Recipe struct {
	Name         string
	Cookbook     string
	Description  string
	Run          string
	Template     *TemplateRef
	Dependencies []string
	Environment  []string
	Variables    map[string]any
	Overrides    map[string]map[string]any
	Cache        *CacheSpec
	Tags         []string
}

// FQN returns the recipe's fully qualified name, "cookbook:name".
func (r *Recipe) FQN() string {
	return r.Cookbook + ":" + r.Name
}

// Cookbook is a directory containing cookbook.yml. Recipes is nil (not
// empty) until the cookbook has been through full loading.
type Cookbook struct {
	Path        string
	Name        string
	Description string
	Environment []string
	Variables   map[string]any
	Overrides   map[string]map[string]any
	Recipes     map[string]*Recipe

	// Loaded is true once the cookbook's recipes have been fully
	// materialized (full mode); discovery mode leaves it false with
	// only RecipeNames populated.
	Loaded      bool
	RecipeNames []string

	// RecipeDependencies and RecipeTags hold each recipe's declared
	// dependency and tag lists as discovery reads them off the raw
	// YAML — both are plain string lists, never templated, so the
	// dependency graph can be built from discovery headers alone
	// (spec's loader step 8) without triggering full loading of every
	// cookbook. Keyed by recipe name, populated for every entry in
	// RecipeNames regardless of Loaded.
	RecipeDependencies map[string][]string
	RecipeTags         map[string][]string

	rawYAML string
}

// SetRawYAML stores the cookbook.yml source text varctx.BuildLayer
// needs to extract this cookbook's and its recipes' variables:/
// overrides: blocks from. Only the loader package calls this.
func (c *Cookbook) SetRawYAML(src string) { c.rawYAML = src }

// RawYAML returns the cookbook.yml source text set by SetRawYAML.
func (c *Cookbook) RawYAML() string { return c.rawYAML }

// Project is the root of the configuration tree, constructed once at
// startup and immutable for the run's duration.
type Project struct {
	Root        string
	Name        string
	Description string
	Variables   map[string]any
	Overrides   map[string]map[string]any
	Environment []string
	Tool        ToolConfig
	Cache       CacheConfig
	Update      UpdateConfig
	Cookbooks   []*Cookbook
	Templates   map[string]*recipetemplate.Template
	Helpers     map[string]Helper

	rawYAML string
}

// SetRawYAML stores the bake.yml source text varctx.BuildLayer needs
// to extract the project's own variables:/overrides: blocks from.
func (p *Project) SetRawYAML(src string) { p.rawYAML = src }

// RawYAML returns the bake.yml source text set by SetRawYAML.
func (p *Project) RawYAML() string { return p.rawYAML }
