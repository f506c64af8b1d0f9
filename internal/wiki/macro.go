package wiki

import "strings"

// bodyKind describes what a macro's body holds and therefore whether the
// children are converted recursively or emitted as raw text.
type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyPlain
	bodyRich
)

// macroDef is one entry of the closed macro table.
type macroDef struct {
	Inline bool
	Wrap   bool // body wrapped between open and close tags on their own lines
	Indent bool // body indented by macro-nesting depth
	Body   bodyKind
}

// macroDefs is the closed table of macro kinds the converter understands.
// Unknown macro names degrade to their children's text.
var macroDefs = map[string]macroDef{
	"code":     {Wrap: true, Indent: true, Body: bodyPlain},
	"noformat": {Wrap: true, Body: bodyPlain},
	"quote":    {Wrap: true, Body: bodyRich},
	"panel":    {Wrap: true, Body: bodyRich},
	"color":    {Inline: true, Body: bodyRich},
	"anchor":   {Inline: true},
	"toc":      {},
}

// macro renders a macro node against the closed macro table. The body is
// recursively converted only when the macro declares a rich body; plain
// bodies emit the raw text of their leaves. Indentation derives from the
// macro nesting depth.
func (c *converter) macro(n *Node, cx walkCtx) {
	name := n.attr("name")
	def, ok := macroDefs[name]
	if !ok {
		c.children(n, cx.lists)
		return
	}

	tag := "{" + name
	if params := n.attr("params"); params != "" {
		tag += ":" + params
	}
	tag += "}"

	if !def.Inline {
		c.blockLead(cx)
	}

	indent := ""
	if def.Indent && c.macroDepth > 0 {
		indent = strings.Repeat("  ", c.macroDepth)
	}

	c.b.WriteString(indent)
	c.b.WriteString(tag)

	if def.Body == bodyNone {
		return
	}

	if def.Wrap {
		c.b.WriteString("\n")
	}

	switch def.Body {
	case bodyPlain:
		body := rawText(n)
		if indent != "" {
			body = indentLines(body, indent)
		}
		c.b.WriteString(body)
	case bodyRich:
		c.macroDepth++
		c.children(n, cx.lists)
		c.macroDepth--
	}

	if def.Wrap {
		c.b.WriteString("\n")
	}
	c.b.WriteString(indent)
	c.b.WriteString("{" + name + "}")
}

// rawText collects the literal text content of a subtree without markup.
func rawText(n *Node) string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Kind == KindText {
			b.WriteString(n.Content)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimRight(b.String(), "\n")
}

func indentLines(s, indent string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}
