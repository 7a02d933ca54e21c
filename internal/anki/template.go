package anki

import (
	"strings"
)

// Anki note templates mix literal HTML with {{Field}} references and
// Mustache-style conditional blocks ({{#Field}}...{{/Field}} shown when
// the field is non-empty, {{^Field}}...{{/Field}} when it is empty).
// Rendering goes through a small token tree instead of chained regex
// replacement, so nested blocks and replacement order are handled
// predictably.

type nodeKind int

const (
	nodeLiteral nodeKind = iota
	nodeFieldRef
	nodeCondPositive
	nodeCondNegative
)

type templateNode struct {
	kind     nodeKind
	text     string // literal text or field name
	children []templateNode
}

// Template is a parsed Anki card template.
type Template struct {
	nodes []templateNode
}

// ParseTemplate tokenizes a template string into a node tree. Unclosed
// conditional blocks swallow the remainder of the template; stray close
// tags are ignored.
func ParseTemplate(source string) *Template {
	nodes, _ := parseNodes(source, 0, "")
	return &Template{nodes: nodes}
}

// parseNodes consumes tokens until the close tag for openField (or end of
// input) and returns the parsed nodes plus the resume position.
func parseNodes(source string, pos int, openField string) ([]templateNode, int) {
	var nodes []templateNode

	for pos < len(source) {
		start := strings.Index(source[pos:], "{{")
		if start < 0 {
			nodes = append(nodes, templateNode{kind: nodeLiteral, text: source[pos:]})
			return nodes, len(source)
		}
		start += pos

		if start > pos {
			nodes = append(nodes, templateNode{kind: nodeLiteral, text: source[pos:start]})
		}

		end := strings.Index(source[start+2:], "}}")
		if end < 0 {
			// Dangling braces: treat the rest as literal.
			nodes = append(nodes, templateNode{kind: nodeLiteral, text: source[start:]})
			return nodes, len(source)
		}
		end += start + 2

		tag := strings.TrimSpace(source[start+2 : end])
		pos = end + 2

		switch {
		case strings.HasPrefix(tag, "#"):
			field := strings.TrimSpace(tag[1:])
			children, next := parseNodes(source, pos, field)
			nodes = append(nodes, templateNode{kind: nodeCondPositive, text: field, children: children})
			pos = next
		case strings.HasPrefix(tag, "^"):
			field := strings.TrimSpace(tag[1:])
			children, next := parseNodes(source, pos, field)
			nodes = append(nodes, templateNode{kind: nodeCondNegative, text: field, children: children})
			pos = next
		case strings.HasPrefix(tag, "/"):
			field := strings.TrimSpace(tag[1:])
			if field == openField {
				return nodes, pos
			}
			// Stray close tag: drop it.
		default:
			nodes = append(nodes, templateNode{kind: nodeFieldRef, text: tag})
		}
	}

	return nodes, pos
}

// Render evaluates the template against a field map. A conditional is
// truthy when the named field exists and is non-empty after trimming.
func (t *Template) Render(fields map[string]string) string {
	var sb strings.Builder
	renderNodes(&sb, t.nodes, fields)
	return sb.String()
}

func renderNodes(sb *strings.Builder, nodes []templateNode, fields map[string]string) {
	for _, node := range nodes {
		switch node.kind {
		case nodeLiteral:
			sb.WriteString(node.text)
		case nodeFieldRef:
			sb.WriteString(resolveField(node.text, fields))
		case nodeCondPositive:
			if fieldTruthy(node.text, fields) {
				renderNodes(sb, node.children, fields)
			}
		case nodeCondNegative:
			if !fieldTruthy(node.text, fields) {
				renderNodes(sb, node.children, fields)
			}
		}
	}
}

// resolveField looks up a field reference, tolerating Anki filter
// prefixes such as {{cloze:Text}} or {{text:Front}}: the field name is
// the segment after the last colon that is not part of a filter chain.
func resolveField(ref string, fields map[string]string) string {
	name := ref
	if idx := strings.LastIndex(ref, ":"); idx >= 0 {
		name = strings.TrimSpace(ref[idx+1:])
	}
	if value, ok := fields[name]; ok {
		return value
	}
	return ""
}

func fieldTruthy(name string, fields map[string]string) bool {
	return strings.TrimSpace(fields[name]) != ""
}
