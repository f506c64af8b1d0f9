package wiki

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// markdown is the shared parser instance. Tables are the only extension the
// source dialect needs beyond CommonMark.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// ParseMarkdown builds a rich-text tree from source-dialect markdown. The
// resulting tree is what Convert consumes; parse and convert are kept
// separate so the converter stays a pure function over trees.
func ParseMarkdown(src string) *Node {
	source := []byte(src)
	root := markdown.Parser().Parse(text.NewReader(source))
	return buildNode(source, root)
}

// MarkdownToWiki is the composed conversion used by the assembler.
func MarkdownToWiki(src string) string {
	if src == "" {
		return ""
	}
	return Convert(ParseMarkdown(src))
}

func buildNode(src []byte, n ast.Node) *Node {
	switch t := n.(type) {
	case *ast.Document:
		return NewNode(KindDocument, buildChildren(src, n)...)
	case *ast.Paragraph, *ast.TextBlock:
		return NewNode(KindParagraph, buildChildren(src, n)...)
	case *ast.Heading:
		node := NewNode(KindHeading, buildChildren(src, n)...)
		node.SetAttr("level", strconv.Itoa(t.Level))
		return node
	case *ast.Text:
		content := string(t.Segment.Value(src))
		if t.SoftLineBreak() {
			content += " "
		}
		node := Text(content)
		if t.HardLineBreak() {
			return NewNode(KindUnknown, node, NewNode(KindLineBreak))
		}
		return node
	case *ast.String:
		return Text(string(t.Value))
	case *ast.Emphasis:
		kind := KindEmphasis
		if t.Level >= 2 {
			kind = KindStrong
		}
		return NewNode(kind, buildChildren(src, n)...)
	case *ast.CodeSpan:
		return &Node{Kind: KindCode, Content: nodeText(src, n)}
	case *ast.Link:
		node := NewNode(KindLink, buildChildren(src, n)...)
		setLinkTarget(node, string(t.Destination))
		return node
	case *ast.AutoLink:
		node := NewNode(KindLink)
		node.SetAttr("kind", LinkWeb)
		node.SetAttr("href", string(t.URL(src)))
		return node
	case *ast.Image:
		// Images have no wiki tree kind of their own; reference them as
		// attachments when local, plain links otherwise.
		node := NewNode(KindLink)
		setLinkTarget(node, string(t.Destination))
		return node
	case *ast.List:
		kind := KindBulletList
		if t.IsOrdered() {
			kind = KindOrderedList
		}
		return NewNode(kind, buildChildren(src, n)...)
	case *ast.ListItem:
		return NewNode(KindListItem, buildChildren(src, n)...)
	case *ast.FencedCodeBlock:
		node := NewNode(KindMacro, Text(blockLines(src, n)))
		node.SetAttr("name", "code")
		if lang := t.Language(src); len(lang) > 0 {
			node.SetAttr("params", string(lang))
		}
		return node
	case *ast.CodeBlock:
		node := NewNode(KindMacro, Text(blockLines(src, n)))
		node.SetAttr("name", "code")
		return node
	case *ast.Blockquote:
		return NewNode(KindBlockQuote, buildChildren(src, n)...)
	case *ast.ThematicBreak:
		return NewNode(KindRule)
	case *east.Table:
		return NewNode(KindTable, buildChildren(src, n)...)
	case *east.TableHeader:
		row := NewNode(KindTableRow, buildChildren(src, n)...)
		for _, cell := range row.Children {
			cell.SetAttr("header", "true")
		}
		return row
	case *east.TableRow:
		return NewNode(KindTableRow, buildChildren(src, n)...)
	case *east.TableCell:
		return NewNode(KindTableCell, buildChildren(src, n)...)
	default:
		return NewNode(KindUnknown, buildChildren(src, n)...)
	}
}

func buildChildren(src []byte, n ast.Node) []*Node {
	var children []*Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		children = append(children, buildNode(src, c))
	}
	return children
}

// nodeText concatenates the raw text segments beneath an inline node.
func nodeText(src []byte, n ast.Node) string {
	var b bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(src))
		}
	}
	return b.String()
}

// blockLines concatenates the source lines of a block-level node, used for
// code block bodies.
func blockLines(src []byte, n ast.Node) string {
	var b bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimRight(b.String(), "\n")
}

// setLinkTarget classifies a destination onto the node, filling the
// per-kind attributes the converter productions read.
func setLinkTarget(node *Node, href string) {
	kind := linkKind(href)
	node.SetAttr("kind", kind)
	node.SetAttr("href", href)
	switch kind {
	case LinkUser:
		node.SetAttr("username", href[strings.LastIndex(href, "/")+1:])
	case LinkAttachment:
		node.SetAttr("filename", href)
	}
}

// linkKind classifies a destination: scheme-less targets are attachment
// references, user profile paths are user references, everything else is a
// plain web link.
func linkKind(href string) string {
	if strings.Contains(href, "://") || strings.HasPrefix(href, "mailto:") {
		return LinkWeb
	}
	if strings.HasPrefix(href, "/users/") || strings.HasPrefix(href, "users/") {
		return LinkUser
	}
	if href != "" && !strings.HasPrefix(href, "/") && !strings.Contains(href, "/") {
		return LinkAttachment
	}
	return LinkWeb
}
