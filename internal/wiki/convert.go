package wiki

import (
	"strings"
)

// Convert renders a document tree as Jira wiki markup. Conversion never
// fails: unknown constructs render their children's text with no wrapper.
func Convert(doc *Node) string {
	if doc == nil {
		return ""
	}
	c := &converter{}
	c.node(doc, walkCtx{})
	return c.b.String()
}

// walkCtx carries the ancestor context a node needs to pick its production
// rule: the parent node, the node's index among its siblings, and the chain
// of enclosing list kinds (outermost first).
type walkCtx struct {
	parent *Node
	index  int
	lists  []Kind
}

func (cx walkCtx) parentKind() Kind {
	if cx.parent == nil {
		return KindDocument
	}
	return cx.parent.Kind
}

func (cx walkCtx) siblings() []*Node {
	if cx.parent == nil {
		return nil
	}
	return cx.parent.Children
}

// prevSibling returns the immediately preceding sibling, or nil.
func (cx walkCtx) prevSibling() *Node {
	sibs := cx.siblings()
	if cx.index == 0 || cx.index > len(sibs)-1 {
		return nil
	}
	return sibs[cx.index-1]
}

func (cx walkCtx) isFirst() bool { return cx.index == 0 }

func (cx walkCtx) isLast() bool {
	sibs := cx.siblings()
	return len(sibs) == 0 || cx.index == len(sibs)-1
}

type converter struct {
	b          strings.Builder
	macroDepth int
}

func (c *converter) node(n *Node, cx walkCtx) {
	switch n.Kind {
	case KindDocument:
		c.children(n, cx.lists)
	case KindParagraph:
		c.paragraph(n, cx)
	case KindHeading:
		c.heading(n, cx)
	case KindText:
		c.text(n, cx)
	case KindEmphasis:
		c.inlineWrap(n, cx, "_")
	case KindStrong:
		c.inlineWrap(n, cx, "*")
	case KindCode:
		c.b.WriteString("{{")
		c.b.WriteString(n.Content)
		c.children(n, cx.lists)
		c.b.WriteString("}}")
	case KindBlockQuote:
		c.blockLead(cx)
		c.b.WriteString("{quote}\n")
		c.children(n, cx.lists)
		c.b.WriteString("\n{quote}")
	case KindOrderedList, KindBulletList:
		c.children(n, append(cx.lists, n.Kind))
	case KindListItem:
		c.listItem(n, cx)
	case KindTable:
		c.children(n, cx.lists)
	case KindTableRow:
		c.tableRow(n)
	case KindTableCell:
		c.children(n, cx.lists)
	case KindLink:
		c.link(n, cx)
	case KindLineBreak:
		c.b.WriteString("\n")
	case KindRule:
		c.blockLead(cx)
		c.b.WriteString("----")
	case KindMacro:
		c.macro(n, cx)
	case KindEmoticon:
		c.b.WriteString(emoticonGlyph(n.attr("name")))
	default:
		// Unknown kinds degrade to their children's text.
		c.children(n, cx.lists)
	}
}

// children converts n's children in order, threading the list ancestry.
func (c *converter) children(n *Node, lists []Kind) {
	for i, child := range n.Children {
		c.node(child, walkCtx{parent: n, index: i, lists: lists})
	}
}

// blockLead emits the separating newline before a block node unless the
// node opens its container (first child of the document, a list item, or a
// table cell), which would otherwise produce a spurious blank line.
func (c *converter) blockLead(cx walkCtx) {
	if cx.isFirst() {
		switch cx.parentKind() {
		case KindDocument, KindListItem, KindTableCell, KindBlockQuote, KindMacro:
			return
		}
	}
	c.b.WriteString("\n")
}

// paragraph emits its children inline. Inside constrained containers (table
// cells, list items) paragraphs are separated by explicit double breaks
// rather than newlines, which would end the cell or item.
func (c *converter) paragraph(n *Node, cx walkCtx) {
	constrained := cx.parentKind() == KindTableCell || cx.parentKind() == KindListItem

	if !constrained {
		c.blockLead(cx)
	}

	c.children(n, cx.lists)

	if constrained && !cx.isLast() {
		c.b.WriteString(` \\ \\ `)
	}
}

func (c *converter) heading(n *Node, cx walkCtx) {
	c.blockLead(cx)
	level := n.attr("level")
	if level == "" {
		level = "1"
	}
	c.b.WriteString("h" + level + ". ")
	c.children(n, cx.lists)
}

// text emits a text leaf with whitespace normalized against block
// boundaries: runs collapse to one space, and the space survives only when
// the node is not flush against a boundary.
func (c *converter) text(n *Node, cx walkCtx) {
	atStart := cx.isFirst() || blockNeighbor(cx.prevSibling())
	atEnd := cx.isLast() || blockNeighbor(cx.siblingAt(cx.index+1))
	c.b.WriteString(normalizeText(n.Content, atStart, atEnd))
}

func (cx walkCtx) siblingAt(i int) *Node {
	sibs := cx.siblings()
	if i < 0 || i >= len(sibs) {
		return nil
	}
	return sibs[i]
}

func blockNeighbor(n *Node) bool {
	return n != nil && n.isBlock()
}

// normalizeText collapses whitespace runs to single spaces and strips the
// boundary-adjacent ones.
func normalizeText(s string, atStart, atEnd bool) string {
	out := strings.Join(strings.Fields(s), " ")
	if out == "" {
		// A whitespace-only node between inline siblings keeps one space.
		if !atStart && !atEnd && s != "" {
			return " "
		}
		return ""
	}
	if !atStart && startsWithSpace(s) {
		out = " " + out
	}
	if !atEnd && endsWithSpace(s) {
		out = out + " "
	}
	return out
}

func startsWithSpace(s string) bool {
	return s != "" && (s[0] == ' ' || s[0] == '\t' || s[0] == '\n' || s[0] == '\r')
}

func endsWithSpace(s string) bool {
	if s == "" {
		return false
	}
	b := s[len(s)-1]
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// inlineWrap emits an emphasis-style span. When the marker would glue onto
// trailing non-whitespace of the preceding text (mid-word emphasis), the
// opening marker uses the braced form to keep the markup unambiguous.
func (c *converter) inlineWrap(n *Node, cx walkCtx, marker string) {
	open := marker
	if prev := cx.prevSibling(); prev != nil && prev.Kind == KindText {
		if t := prev.Content; t != "" && !endsWithSpace(t) {
			open = "{" + marker + "}"
		}
	}
	c.b.WriteString(open)
	c.children(n, cx.lists)
	c.b.WriteString(marker)
}

// listItem derives its marker prefix by walking the chain of ancestor list
// nodes: one marker character per ancestor, so an unordered item nested in
// an ordered list renders as "#*".
func (c *converter) listItem(n *Node, cx walkCtx) {
	var markers strings.Builder
	for _, k := range cx.lists {
		if k == KindOrderedList {
			markers.WriteByte('#')
		} else {
			markers.WriteByte('*')
		}
	}
	c.b.WriteString("\n")
	c.b.WriteString(markers.String())
	c.b.WriteString(" ")
	c.children(n, cx.lists)
}

// tableRow emits cells with positional delimiters: the row-start pipe comes
// from the first cell only, and header cells double the pipes.
func (c *converter) tableRow(n *Node) {
	c.b.WriteString("\n")
	delim := "|"
	for i, cell := range n.Children {
		delim = "|"
		if cell.attr("header") == "true" {
			delim = "||"
		}
		c.b.WriteString(delim)
		c.node(cell, walkCtx{parent: n, index: i})
	}
	c.b.WriteString(delim)
}

// link emits one of the four link productions keyed by the target kind.
func (c *converter) link(n *Node, cx walkCtx) {
	href := n.attr("href")

	switch n.attr("kind") {
	case LinkUser:
		c.b.WriteString("[~" + n.attr("username") + "]")
	case LinkAttachment:
		name := n.attr("filename")
		if name == "" {
			name = pathBase(href)
		}
		c.b.WriteString("[^" + name + "]")
	case LinkPage:
		space, page := pageRef(n)
		if space != "" {
			c.b.WriteString("[" + space + ":" + page + "]")
		} else {
			c.b.WriteString("[" + page + "]")
		}
	default:
		text := convertInline(n.Children)
		if text == "" || text == href {
			c.b.WriteString("[" + href + "]")
		} else {
			c.b.WriteString("[" + text + "|" + href + "]")
		}
	}
}

// pageRef extracts the space qualifier and page title of an internal page
// link, preferring explicit attributes over href parsing.
func pageRef(n *Node) (space, page string) {
	space = n.attr("space")
	page = n.attr("page")
	if page != "" {
		return space, page
	}

	href := strings.Trim(n.attr("href"), "/")
	parts := strings.Split(href, "/")
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", unescapeTitle(parts[0])
	default:
		return parts[len(parts)-2], unescapeTitle(parts[len(parts)-1])
	}
}

func unescapeTitle(s string) string {
	return strings.ReplaceAll(s, "+", " ")
}

func pathBase(href string) string {
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}

// convertInline renders a slice of nodes with no enclosing context, used
// for link texts and similar captured spans.
func convertInline(nodes []*Node) string {
	c := &converter{}
	holder := &Node{Kind: KindParagraph, Children: nodes}
	c.children(holder, nil)
	return c.b.String()
}
