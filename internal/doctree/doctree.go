package doctree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

// ErrEmptyDocument is returned when a document has no root element.
var ErrEmptyDocument = errors.New("document has no root element")

// Node is one element of a parsed definition document.
type Node struct {
	// Tag is the local element name.
	Tag string
	// Text is the raw character data directly inside the element.
	Text string
	// Children are the child elements in document order.
	Children []*Node
	// Comments are the comments between the previous sibling element (or the
	// parent's start tag) and this element, in document order.
	Comments []string
}

// Child returns the first direct child with the given tag, or nil.
func (n *Node) Child(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// TrimmedText returns Text with surrounding whitespace removed.
func (n *Node) TrimmedText() string {
	return strings.TrimSpace(n.Text)
}

// Parse reads an XML document and converts it into a Node tree.
func Parse(r io.Reader) (*Node, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	return FromDocument(doc)
}

// ParseFile reads and converts the XML file at path.
func ParseFile(path string) (*Node, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return FromDocument(doc)
}

// FromDocument converts an already parsed etree document.
func FromDocument(doc *etree.Document) (*Node, error) {
	root := doc.Root()
	if root == nil {
		return nil, ErrEmptyDocument
	}
	return convert(root, nil), nil
}

func convert(el *etree.Element, comments []string) *Node {
	n := &Node{
		Tag:      el.Tag,
		Comments: comments,
	}

	var text strings.Builder
	var pending []string
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			// Only text before the first child element counts as node text.
			if len(n.Children) == 0 {
				text.WriteString(t.Data)
			}
		case *etree.Comment:
			pending = append(pending, strings.TrimSpace(t.Data))
		case *etree.Element:
			n.Children = append(n.Children, convert(t, pending))
			pending = nil
		}
	}
	n.Text = text.String()
	return n
}
