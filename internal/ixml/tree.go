package ixml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Node is a generic, order-preserving XML element. The iXML codec parses
// into this tree rather than a fixed struct so that elements it does not
// know about survive a parse/synthesize round trip verbatim, per the
// mixer-state and custom-metadata passthrough requirements.
type Node struct {
	Name     string
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

// child returns the first direct child named name, or nil.
func (n *Node) child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}

	return nil
}

// childrenNamed returns every direct child named name.
func (n *Node) childrenNamed(name string) []*Node {
	var out []*Node

	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}

	return out
}

// at walks a dotted path of element names from n, returning the node found
// or nil if any segment is missing.
func (n *Node) at(path ...string) *Node {
	cur := n
	for _, seg := range path {
		cur = cur.child(seg)
		if cur == nil {
			return nil
		}
	}

	return cur
}

// ensure walks/creates a dotted path of singleton children under n.
func (n *Node) ensure(path ...string) *Node {
	cur := n
	for _, seg := range path {
		next := cur.child(seg)
		if next == nil {
			next = &Node{Name: seg}
			cur.Children = append(cur.Children, next)
		}

		cur = next
	}

	return cur
}

// setText sets Text on the direct child named name, creating it if absent.
// A zero-value value removes the child instead, so optional fields don't
// litter synthesized documents with empty elements.
func (n *Node) setText(name, value string) {
	if value == "" {
		n.removeChild(name)
		return
	}

	n.ensure(name).Text = value
}

func (n *Node) removeChild(name string) {
	out := n.Children[:0]

	for _, c := range n.Children {
		if c.Name != name {
			out = append(out, c)
		}
	}

	n.Children = out
}

// parseTree tolerantly parses an XML document into a Node tree rooted at
// the first start element found. It accepts a missing XML declaration,
// single-line documents, and trailing NUL padding. It does not require the
// document to be fully closed: if the input ends mid-element (for example
// a truncated "</BWFXML>"), parseTree returns everything decoded so far and
// reports complete=false rather than failing outright — the tolerant
// behavior spec.md's iXML codec calls for.
func parseTree(data []byte) (root *Node, complete bool, err error) {
	data = bytes.TrimRight(data, "\x00")
	data = bytes.TrimSpace(data)

	if len(data) == 0 {
		return nil, false, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var stack []*Node

	for {
		tok, tokErr := dec.Token()
		if tokErr != nil {
			if tokErr == io.EOF {
				break
			}

			if root == nil {
				return nil, false, fmt.Errorf("%w: %v", ErrMalformed, tokErr)
			}

			// A parse error after we already have a root is treated as a
			// truncated/malformed tail: keep what decoded cleanly.
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local, Attrs: append([]xml.Attr(nil), t.Attr...)}

			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.Children = append(top.Children, node)
			} else if root == nil {
				root = node
			}

			stack = append(stack, node)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, false, fmt.Errorf("%w: no root element found", ErrMalformed)
	}

	trimText(root)

	return root, len(stack) == 0, nil
}

func trimText(n *Node) {
	n.Text = strings.TrimSpace(n.Text)
	for _, c := range n.Children {
		trimText(c)
	}
}

// serialize renders the tree back to an XML document with an explicit
// declaration, the shape every iXML chunk in the wild carries.
func serialize(root *Node) string {
	var buf bytes.Buffer

	buf.WriteString(xml.Header)
	writeNode(&buf, root, 0)
	buf.WriteByte('\n')

	return buf.String()
}

func writeNode(buf *bytes.Buffer, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	buf.WriteString(indent)
	buf.WriteByte('<')
	buf.WriteString(n.Name)

	for _, a := range n.Attrs {
		fmt.Fprintf(buf, ` %s="%s"`, a.Name.Local, xmlEscape(a.Value))
	}

	if len(n.Children) == 0 && n.Text == "" {
		buf.WriteString("/>\n")
		return
	}

	buf.WriteByte('>')

	if len(n.Children) == 0 {
		buf.WriteString(xmlEscape(n.Text))
	} else {
		buf.WriteByte('\n')

		for _, c := range n.Children {
			writeNode(buf, c, depth+1)
		}

		buf.WriteString(indent)
	}

	buf.WriteString("</")
	buf.WriteString(n.Name)
	buf.WriteString(">\n")
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))

	return buf.String()
}
