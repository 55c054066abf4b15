package config

import "fmt"

// DuplicateCookbookError fires when two cookbooks under the same
// project declare the same name.
type DuplicateCookbookError struct {
	Name  string
	Paths []string
}

func (e *DuplicateCookbookError) Error() string {
	return fmt.Sprintf("config: cookbook name %q is declared more than once (%v)", e.Name, e.Paths)
}

// RunAndTemplateError fires when a recipe sets both run: and
// template: — spec requires exactly one.
type RunAndTemplateError struct {
	Recipe string
}

func (e *RunAndTemplateError) Error() string {
	return fmt.Sprintf("config: recipe %q sets both run and template; exactly one is required", e.Recipe)
}

// NeitherRunNorTemplateError fires when a recipe sets neither.
type NeitherRunNorTemplateError struct {
	Recipe string
}

func (e *NeitherRunNorTemplateError) Error() string {
	return fmt.Sprintf("config: recipe %q declares neither run nor template", e.Recipe)
}

// UnknownDependencyError fires when a recipe depends on an FQN that
// doesn't resolve to any discovered recipe.
type UnknownDependencyError struct {
	Recipe     string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("config: recipe %q depends on unknown recipe %q", e.Recipe, e.Dependency)
}

// SelfDependencyError fires when a recipe lists itself as a dependency.
type SelfDependencyError struct {
	Recipe string
}

func (e *SelfDependencyError) Error() string {
	return fmt.Sprintf("config: recipe %q depends on itself", e.Recipe)
}

// VersionMismatchError fires when config.min_version exceeds the
// running binary's version and --force-version-override wasn't given.
type VersionMismatchError struct {
	Required string
	Actual   string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("config: project requires bake >= %s, running %s", e.Required, e.Actual)
}
