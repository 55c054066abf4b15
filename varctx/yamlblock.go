package varctx

import "strings"

// extractYAMLBlock pulls the raw source text of a top-level YAML
// mapping key (variables:, overrides:) out of a config document,
// dedented into a standalone mapping document of its own. This is the
// "raw YAML text, before structural parsing" step of the layered
// variable evaluation: the block is rendered as a template against the
// parent scope before it is ever handed to a YAML parser, so a variable
// can reference another variable from an outer scope even though both
// live inside the same structurally-unparsed document.
func extractYAMLBlock(src, key string) (string, bool) {
	lines := strings.Split(src, "\n")

	for i, line := range lines {
		if leadingSpaces(line) != 0 {
			continue
		}
		trimmed := strings.TrimRight(line, " \t")
		if trimmed != key+":" && !strings.HasPrefix(trimmed, key+": ") {
			continue
		}

		inline := strings.TrimSpace(strings.TrimPrefix(trimmed, key+":"))
		if inline != "" && inline != "|" && inline != ">" {
			return inline, true
		}

		var block []string
		for j := i + 1; j < len(lines); j++ {
			l := lines[j]
			if strings.TrimSpace(l) == "" {
				block = append(block, "")
				continue
			}
			if leadingSpaces(l) == 0 {
				break
			}
			block = append(block, l)
		}
		for len(block) > 0 && block[len(block)-1] == "" {
			block = block[:len(block)-1]
		}

		return dedent(block), true
	}

	return "", false
}

// ExtractNestedBlock drills into a YAML document through a path of
// top-level keys, dedenting at each step, and returns the final key's
// raw block text. A recipe's variables:/overrides: blocks live nested
// under recipes.<name>. in the owning cookbook's document; this lets
// BuildLayer be handed that recipe's own subtree as if it were a
// standalone document with variables:/overrides: at the top level.
func ExtractNestedBlock(src string, path ...string) (string, bool) {
	cur := src
	for _, key := range path {
		block, ok := extractYAMLBlock(cur, key)
		if !ok {
			return "", false
		}
		cur = block
	}
	return cur, true
}

func leadingSpaces(line string) int {
	n := 0
	for _, r := range line {
		if r != ' ' {
			break
		}
		n++
	}
	return n
}

func dedent(lines []string) string {
	min := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := leadingSpaces(l)
		if min < 0 || n < min {
			min = n
		}
	}
	if min <= 0 {
		return strings.Join(lines, "\n")
	}

	out := make([]string, len(lines))
	for i, l := range lines {
		if len(l) >= min {
			out[i] = l[min:]
		} else {
			out[i] = l
		}
	}
	return strings.Join(out, "\n")
}
