package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlainTextHasNoTags(t *testing.T) {
	tmpl, err := Parse("hello world")
	require.NoError(t, err)
	require.Len(t, tmpl.nodes, 1)
	assert.Equal(t, TextNode{Text: "hello world"}, tmpl.nodes[0])
}

func TestParseExprTagProducesExprNode(t *testing.T) {
	tmpl, err := Parse("hello {{var.name}}!")
	require.NoError(t, err)
	require.Len(t, tmpl.nodes, 3)
	assert.Equal(t, TextNode{Text: "hello "}, tmpl.nodes[0])
	assert.Equal(t, ExprNode{Expr: pathExpr("var.name")}, tmpl.nodes[1])
	assert.Equal(t, TextNode{Text: "!"}, tmpl.nodes[2])
}

func TestParseIfElseBlock(t *testing.T) {
	tmpl, err := Parse("{{#if var.debug}}DEBUG{{else}}RELEASE{{/if}}")
	require.NoError(t, err)
	require.Len(t, tmpl.nodes, 1)

	ifNode, ok := tmpl.nodes[0].(IfNode)
	require.True(t, ok)
	assert.Equal(t, pathExpr("var.debug"), ifNode.Cond)
	assert.Equal(t, []Node{TextNode{Text: "DEBUG"}}, ifNode.Body)
	assert.Equal(t, []Node{TextNode{Text: "RELEASE"}}, ifNode.Else)
	assert.False(t, ifNode.Negate)
}

func TestParseUnlessBlockWithoutElse(t *testing.T) {
	tmpl, err := Parse("{{#unless var.skip}}run{{/unless}}")
	require.NoError(t, err)
	require.Len(t, tmpl.nodes, 1)

	node, ok := tmpl.nodes[0].(IfNode)
	require.True(t, ok)
	assert.True(t, node.Negate)
	assert.Nil(t, node.Else)
}

func TestParseEachBlock(t *testing.T) {
	tmpl, err := Parse("{{#each var.targets}}{{this}},{{/each}}")
	require.NoError(t, err)
	require.Len(t, tmpl.nodes, 1)

	node, ok := tmpl.nodes[0].(EachNode)
	require.True(t, ok)
	assert.Equal(t, pathExpr("var.targets"), node.Collection)
	require.Len(t, node.Body, 2)
}

func TestParseHelperCallWithPositionalAndNamedArgs(t *testing.T) {
	tmpl, err := Parse(`{{eq var.mode "release" exact=true}}`)
	require.NoError(t, err)
	require.Len(t, tmpl.nodes, 1)

	exprNode, ok := tmpl.nodes[0].(ExprNode)
	require.True(t, ok)
	assert.Equal(t, "eq", exprNode.Expr.Function)
	require.Len(t, exprNode.Expr.PosArgs, 2)
	assert.Equal(t, pathExpr("var.mode"), exprNode.Expr.PosArgs[0])
	assert.Equal(t, stringExpr("release"), exprNode.Expr.PosArgs[1])
	assert.Equal(t, boolExpr(true), exprNode.Expr.NamedArgs["exact"])
}

func TestParseNestedSubexpression(t *testing.T) {
	tmpl, err := Parse(`{{and (eq var.a "x") (eq var.b "y")}}`)
	require.NoError(t, err)
	exprNode := tmpl.nodes[0].(ExprNode)
	assert.Equal(t, "and", exprNode.Expr.Function)
	require.Len(t, exprNode.Expr.PosArgs, 2)
	assert.Equal(t, "eq", exprNode.Expr.PosArgs[0].Function)
}

func TestParseCommentTagIsDropped(t *testing.T) {
	tmpl, err := Parse("a{{!-- note --}}b")
	require.NoError(t, err)
	require.Len(t, tmpl.nodes, 2)
	assert.Equal(t, TextNode{Text: "a"}, tmpl.nodes[0])
	assert.Equal(t, TextNode{Text: "b"}, tmpl.nodes[1])
}

func TestParseUnterminatedTagErrors(t *testing.T) {
	_, err := Parse("hello {{var.name")
	require.Error(t, err)
}

func TestParseMismatchedCloseTagErrors(t *testing.T) {
	_, err := Parse("{{#if var.x}}body{{/each}}")
	require.Error(t, err)
}
