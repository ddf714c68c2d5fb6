package qb

import "strings"

const (
	glueAnd = "AND"
	glueOr  = "OR"
)

// predNode is one node of the condition tree: a rendered leaf, or an
// AND/OR group of child nodes. glue joins the node to its previous sibling.
type predNode struct {
	glue     string
	expr     string
	values   []any
	group    bool
	children []*predNode
}

// predicateTree accumulates WHERE conditions across fluent calls. Groups
// opened with open must be closed before rendering; balance is checked at
// assembly.
type predicateTree struct {
	root  predNode
	stack []*predNode
}

func (p *predicateTree) current() *predNode {
	if len(p.stack) == 0 {
		return &p.root
	}
	return p.stack[len(p.stack)-1]
}

func (p *predicateTree) leaf(glue, expr string, values []any) {
	n := &predNode{glue: glue, expr: expr, values: values}
	cur := p.current()
	cur.children = append(cur.children, n)
}

func (p *predicateTree) open(glue string) {
	n := &predNode{glue: glue, group: true}
	cur := p.current()
	cur.children = append(cur.children, n)
	p.stack = append(p.stack, n)
}

func (p *predicateTree) close() error {
	if len(p.stack) == 0 {
		return errStatement("where_end(): no open AND/OR block to close")
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

func (p *predicateTree) empty() bool { return len(p.root.children) == 0 }

func (p *predicateTree) balanced() bool { return len(p.stack) == 0 }

// render writes the tree, appending bind values in emission order. Leaves
// are individually parenthesized; groups wrap their children in one more
// level of parenthesis.
func (p *predicateTree) render(sb *strings.Builder, values *[]any) {
	renderNodes(&p.root, sb, values)
}

func renderNodes(n *predNode, sb *strings.Builder, values *[]any) {
	for i, child := range n.children {
		if i > 0 {
			sb.WriteString(" " + child.glue + " ")
		}
		if child.group {
			sb.WriteString("(")
			renderNodes(child, sb, values)
			sb.WriteString(")")
			continue
		}
		sb.WriteString("(" + child.expr + ")")
		*values = append(*values, child.values...)
	}
}
