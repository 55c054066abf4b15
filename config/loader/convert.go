package loader

import (
	"github.com/trinio-labs/bake/config"
	"github.com/trinio-labs/bake/recipetemplate"
)

func (r rawParamSchema) resolve() *recipetemplate.ParamSchema {
	p := &recipetemplate.ParamSchema{
		Type:     recipetemplate.ParamType(r.Type),
		Required: r.Required,
		Default:  r.Default,
		Pattern:  r.Pattern,
		Min:      r.Min,
		Max:      r.Max,
	}
	if r.Items != nil {
		p.Items = r.Items.resolve()
	}
	if len(r.Properties) > 0 {
		p.Properties = make(map[string]*recipetemplate.ParamSchema, len(r.Properties))
		for name, sub := range r.Properties {
			p.Properties[name] = sub.resolve()
		}
	}
	return p
}

func resolveParamSchemas(raw map[string]rawParamSchema) map[string]*recipetemplate.ParamSchema {
	out := make(map[string]*recipetemplate.ParamSchema, len(raw))
	for name, p := range raw {
		out[name] = p.resolve()
	}
	return out
}

func (b rawTemplateBody) resolve() recipetemplate.Body {
	body := recipetemplate.Body{
		Run:          b.Run,
		Dependencies: b.Dependencies,
		Tags:         b.Tags,
		Variables:    b.Variables,
		Environment:  b.Environment,
	}
	if b.Cache != nil {
		body.Cache = &recipetemplate.CachePatch{Inputs: b.Cache.Inputs, Outputs: b.Cache.Outputs}
	}
	return body
}

func (f rawTemplateFile) resolve() *recipetemplate.Template {
	t := &recipetemplate.Template{
		Name:   f.Name,
		Params: resolveParamSchemas(f.Parameters),
		Body:   f.Template.resolve(),
	}
	if f.Extends != nil {
		t.Extends = *f.Extends
	}
	return t
}

func (f rawHelperFile) resolve() config.Helper {
	return config.Helper{
		Name:        f.Name,
		Description: derefStr(f.Description),
		Params:      resolveParamSchemas(f.Parameters),
		Variables:   f.Variables,
		Environment: f.Environment,
		Returns:     f.Returns,
		Run:         f.Run,
	}
}

func (rr rawRecipe) resolve(name, cookbook string) *config.Recipe {
	r := &config.Recipe{
		Name:         name,
		Cookbook:     cookbook,
		Description:  derefStr(rr.Description),
		Dependencies: rr.Dependencies,
		Environment:  rr.Environment,
		Tags:         rr.Tags,
	}
	if rr.Run != nil {
		r.Run = *rr.Run
	}
	if rr.Template != nil {
		r.Template = &config.TemplateRef{Name: rr.Template.Name, Params: rr.Template.Params}
	}
	if rr.Cache != nil {
		r.Cache = &config.CacheSpec{Inputs: rr.Cache.Inputs, Outputs: rr.Cache.Outputs}
	}
	return r
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

func derefInt(i *int, fallback int) int {
	if i == nil {
		return fallback
	}
	return *i
}
