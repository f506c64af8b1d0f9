// Package wiki converts rich-text document trees into Jira wiki markup.
// Trees are built from the source dialect (see markdown.go), converted
// top-down by convert.go, and discarded.
package wiki

// Kind identifies a node variant. The set is closed: the converter
// dispatches exhaustively over it, and anything unrecognized degrades to
// rendering its children with no markup wrapper.
type Kind int

const (
	KindDocument Kind = iota
	KindParagraph
	KindHeading
	KindText
	KindEmphasis
	KindStrong
	KindCode
	KindBlockQuote
	KindOrderedList
	KindBulletList
	KindListItem
	KindTable
	KindTableRow
	KindTableCell
	KindLink
	KindLineBreak
	KindRule
	KindMacro
	KindEmoticon
	KindUnknown
)

// Link target kinds, stored in the "kind" attribute of KindLink nodes.
const (
	LinkWeb        = "web"
	LinkPage       = "page"
	LinkUser       = "user"
	LinkAttachment = "attachment"
)

// Node is one vertex of a rich-text document tree. Built once per field,
// immutable, finite and acyclic: children are only ever descendants.
type Node struct {
	Kind     Kind
	Attr     map[string]string
	Content  string
	Children []*Node
}

// NewNode returns a node of the given kind with the given children.
func NewNode(kind Kind, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

// Text returns a text leaf.
func Text(content string) *Node {
	return &Node{Kind: KindText, Content: content}
}

// attr returns the named attribute or "".
func (n *Node) attr(name string) string {
	if n.Attr == nil {
		return ""
	}
	return n.Attr[name]
}

// SetAttr sets one attribute, allocating the map on first use.
func (n *Node) SetAttr(name, value string) *Node {
	if n.Attr == nil {
		n.Attr = make(map[string]string)
	}
	n.Attr[name] = value
	return n
}

// isBlock reports whether the node renders as a block-level construct.
// Text adjacent to block boundaries is subject to whitespace stripping.
func (n *Node) isBlock() bool {
	switch n.Kind {
	case KindParagraph, KindHeading, KindBlockQuote, KindOrderedList,
		KindBulletList, KindListItem, KindTable, KindTableRow,
		KindTableCell, KindLineBreak, KindRule:
		return true
	case KindMacro:
		def, ok := macroDefs[n.attr("name")]
		return ok && !def.Inline
	}
	return false
}
