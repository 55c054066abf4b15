package template

import (
	"fmt"
	"strings"
)

// Parse compiles template source into a Template ready for repeated
// rendering against different contexts.
func Parse(src string) (*Template, error) {
	p := &tagParser{src: src}
	nodes, tag, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	if tag != "" {
		return nil, fmt.Errorf("template: unmatched closing tag %q", tag)
	}
	return &Template{nodes: nodes}, nil
}

// tagParser splits template source into TextNodes and tags ({{...}}),
// recursing into block bodies. It is a thin layer above exprScanner: tag
// boundaries are found by literal "{{"/"}}" search, so a tag ends at its
// first "}}" even when that "}}" sits inside a string literal; the tag
// body up to that point is then handed to parseExprSource.
type tagParser struct {
	src string
	pos int
}

// parseNodes reads nodes until EOF or a block-closing/else tag, which it
// returns (without consuming it from the node list) so the caller can
// recognize which block ended.
func (p *tagParser) parseNodes() ([]Node, string, error) {
	var nodes []Node

	for {
		start := p.pos
		open := strings.Index(p.src[p.pos:], "{{")
		if open < 0 {
			if p.pos < len(p.src) {
				nodes = append(nodes, TextNode{Text: p.src[p.pos:]})
			}
			p.pos = len(p.src)
			return nodes, "", nil
		}

		if open > 0 {
			nodes = append(nodes, TextNode{Text: p.src[start : start+open]})
		}
		p.pos = start + open + 2

		close := strings.Index(p.src[p.pos:], "}}")
		if close < 0 {
			return nil, "", fmt.Errorf("template: unterminated tag at offset %d", start+open)
		}
		body := strings.TrimSpace(p.src[p.pos : p.pos+close])
		p.pos += close + 2

		if strings.HasPrefix(body, "!--") {
			continue
		}

		switch {
		case body == "else", body == "/if", body == "/unless", body == "/each":
			return nodes, body, nil

		case strings.HasPrefix(body, "#if "):
			node, err := p.parseIf(strings.TrimSpace(body[len("#if "):]), false)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node)

		case strings.HasPrefix(body, "#unless "):
			node, err := p.parseIf(strings.TrimSpace(body[len("#unless "):]), true)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node)

		case strings.HasPrefix(body, "#each "):
			node, err := p.parseEach(strings.TrimSpace(body[len("#each "):]))
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node)

		default:
			e, err := parseExprSource(body)
			if err != nil {
				return nil, "", fmt.Errorf("template: %w", err)
			}
			nodes = append(nodes, ExprNode{Expr: e})
		}
	}
}

func (p *tagParser) parseIf(condSrc string, negate bool) (Node, error) {
	cond, err := parseExprSource(condSrc)
	if err != nil {
		return nil, fmt.Errorf("template: if condition: %w", err)
	}

	body, tag, err := p.parseNodes()
	if err != nil {
		return nil, err
	}

	var elseBody []Node
	wantClose := "/if"
	if negate {
		wantClose = "/unless"
	}

	if tag == "else" {
		elseBody, tag, err = p.parseNodes()
		if err != nil {
			return nil, err
		}
	}
	if tag != wantClose {
		return nil, fmt.Errorf("template: expected %q, got %q", wantClose, tag)
	}

	return IfNode{Cond: cond, Body: body, Else: elseBody, Negate: negate}, nil
}

func (p *tagParser) parseEach(collSrc string) (Node, error) {
	coll, err := parseExprSource(collSrc)
	if err != nil {
		return nil, fmt.Errorf("template: each collection: %w", err)
	}

	body, tag, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	if tag != "/each" {
		return nil, fmt.Errorf("template: expected %q, got %q", "/each", tag)
	}

	return EachNode{Collection: coll, Body: body}, nil
}
