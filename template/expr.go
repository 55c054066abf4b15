package template

// exprKind discriminates the shapes an Expr can take.
type exprKind int

const (
	exprPath exprKind = iota
	exprString
	exprNumber
	exprBool
	exprCall
)

// Expr is a parsed expression: a variable path (ns.name), a literal, or
// a helper call with positional and named arguments. Call arguments are
// themselves Exprs, so a parenthesized subexpression nests arbitrarily
// deep — the same shape heph's Expr gives $(...) build expressions.
type Expr struct {
	Kind exprKind

	Path string
	Str  string
	Num  string
	Bool bool

	Function  string
	PosArgs   []Expr
	NamedArgs map[string]Expr
}

func pathExpr(p string) Expr   { return Expr{Kind: exprPath, Path: p} }
func stringExpr(s string) Expr { return Expr{Kind: exprString, Str: s} }
func numberExpr(n string) Expr { return Expr{Kind: exprNumber, Num: n} }
func boolExpr(b bool) Expr     { return Expr{Kind: exprBool, Bool: b} }
