// Package template implements bake's logic-enabled string template
// engine: {{ns.name}} expressions, {{#if}}/{{#unless}}/{{#each}} blocks,
// and registered helpers invoked as {{name arg1 arg2 key=value}}. The
// expression grammar and its rune-by-rune recursive-descent parser are
// modeled on heph's $(...) build-expression language, generalized to
// Handlebars-style {{ }} delimiters and block structures.
package template

// Node is one piece of a parsed template: either literal text or a
// construct that renders to text given a Context.
type Node interface {
	render(ctx *renderState) (string, error)
}

// TextNode is a run of literal, unescaped template source.
type TextNode struct {
	Text string
}

// ExprNode is a bare {{ expr }} substitution.
type ExprNode struct {
	Expr Expr
}

// IfNode is {{#if cond}}Body{{else}}Else{{/if}}.
type IfNode struct {
	Cond     Expr
	Body     []Node
	Else     []Node
	Negate   bool // true for {{#unless}}
}

// EachNode is {{#each collectionExpr}}Body{{/each}}. Within Body, `this`
// resolves to the current element and `@index` to its position.
type EachNode struct {
	Collection Expr
	Body       []Node
}

// Template is a parsed template ready to render against any Context.
type Template struct {
	nodes []Node
}
