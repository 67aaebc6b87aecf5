// Package xmltree holds a mutable, namespace-aware XML document as an arena
// of nodes addressed by handles.
package xmltree

import "slices"

// Handle addresses a node inside its Document. Handles stay valid for the
// lifetime of the Document, including after the node is detached.
type Handle int32

// Nil is the null handle.
const Nil Handle = -1

// documentNode is the handle of the synthetic node above the root element.
const documentNode Handle = 0

// Kind classifies a node.
type Kind uint8

const (
	DocumentNode Kind = iota
	ElementNode
	TextNode
	CommentNode
	ProcInstNode
	DirectiveNode
)

const (
	xmlNamespace   = "http://www.w3.org/XML/1998/namespace"
	xmlnsNamespace = "http://www.w3.org/2000/xmlns/"
)

// Name is a qualified name. Space is the resolved namespace URI; Prefix is
// kept so the document serializes the way it was written.
type Name struct {
	Space  string
	Local  string
	Prefix string
}

// Qualified returns prefix:local, or local when there is no prefix.
func (n Name) Qualified() string {
	if n.Prefix == "" {
		return n.Local
	}
	return n.Prefix + ":" + n.Local
}

// Attr is an element attribute. Namespace declarations are kept as
// attributes in the xmlns namespace.
type Attr struct {
	Name  Name
	Value string
}

// IsNamespaceDecl reports whether the attribute declares a namespace.
func (a Attr) IsNamespaceDecl() bool {
	return a.Name.Space == xmlnsNamespace
}

type node struct {
	kind     Kind
	name     Name
	attrs    []Attr
	data     string
	target   string
	parent   Handle
	children []Handle
}

// Document is an ordered, rooted tree. It exclusively owns every node.
type Document struct {
	nodes []node
}

// New returns an empty document.
func New() *Document {
	d := &Document{}
	d.alloc(node{kind: DocumentNode, parent: Nil})
	return d
}

func (d *Document) alloc(n node) Handle {
	d.nodes = append(d.nodes, n)
	return Handle(len(d.nodes) - 1)
}

func (d *Document) valid(h Handle) bool {
	return h >= 0 && int(h) < len(d.nodes)
}

// Root returns the document element, or Nil for an empty document.
func (d *Document) Root() Handle {
	for _, c := range d.nodes[documentNode].children {
		if d.nodes[c].kind == ElementNode {
			return c
		}
	}
	return Nil
}

// Kind returns the node kind.
func (d *Document) Kind(h Handle) Kind {
	return d.nodes[h].kind
}

// Name returns the element name. It is the zero Name for non-elements.
func (d *Document) Name(h Handle) Name {
	return d.nodes[h].name
}

// Parent returns the parent handle. The root element's parent is the
// document node; detached nodes and the document node return Nil.
func (d *Document) Parent(h Handle) Handle {
	if !d.valid(h) {
		return Nil
	}
	return d.nodes[h].parent
}

// Children returns a copy of the ordered child handles.
func (d *Document) Children(h Handle) []Handle {
	return slices.Clone(d.nodes[h].children)
}

// Attrs returns a copy of the element's attributes in document order.
func (d *Document) Attrs(h Handle) []Attr {
	return slices.Clone(d.nodes[h].attrs)
}

// Attr returns the value of the unqualified attribute local.
func (d *Document) Attr(h Handle, local string) (string, bool) {
	if !d.valid(h) {
		return "", false
	}
	for _, a := range d.nodes[h].attrs {
		if a.Name.Space == "" && a.Name.Prefix == "" && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Text returns the concatenated character data of h and its descendants,
// in document order. Comments and processing instructions are skipped.
func (d *Document) Text(h Handle) string {
	n := d.nodes[h]
	switch n.kind {
	case TextNode:
		return n.data
	case ElementNode, DocumentNode:
	default:
		return ""
	}
	var buf []byte
	d.appendText(&buf, h)
	return string(buf)
}

func (d *Document) appendText(buf *[]byte, h Handle) {
	for _, c := range d.nodes[h].children {
		switch d.nodes[c].kind {
		case TextNode:
			*buf = append(*buf, d.nodes[c].data...)
		case ElementNode:
			d.appendText(buf, c)
		}
	}
}

// SetText replaces the children of h with a single text node holding s.
// An empty s leaves h without children.
func (d *Document) SetText(h Handle, s string) {
	for _, c := range d.nodes[h].children {
		d.nodes[c].parent = Nil
	}
	d.nodes[h].children = nil
	if s == "" {
		return
	}
	t := d.alloc(node{kind: TextNode, data: s, parent: Nil})
	d.AppendChild(h, t)
}

// NewElement allocates a detached element.
func (d *Document) NewElement(name Name) Handle {
	return d.alloc(node{kind: ElementNode, name: name, parent: Nil})
}

// AppendChild attaches child as the last child of parent, detaching it
// from its previous position first.
func (d *Document) AppendChild(parent, child Handle) {
	d.Detach(child)
	d.nodes[parent].children = append(d.nodes[parent].children, child)
	d.nodes[child].parent = parent
}

// InsertBefore attaches child immediately before ref, which must be a child
// of parent. When ref is Nil or not found, child is appended.
func (d *Document) InsertBefore(parent, child, ref Handle) {
	d.Detach(child)
	children := d.nodes[parent].children
	i := slices.Index(children, ref)
	if ref == Nil || i < 0 {
		d.nodes[parent].children = append(children, child)
	} else {
		d.nodes[parent].children = slices.Insert(children, i, child)
	}
	d.nodes[child].parent = parent
}

// Detach removes h from its parent. The subtree under h is left intact and
// unreachable from the document. It reports whether h had a parent.
func (d *Document) Detach(h Handle) bool {
	p := d.nodes[h].parent
	if p == Nil {
		return false
	}
	siblings := d.nodes[p].children
	if i := slices.Index(siblings, h); i >= 0 {
		d.nodes[p].children = slices.Delete(siblings, i, i+1)
	}
	d.nodes[h].parent = Nil
	return true
}

// Attached reports whether h is still reachable from the document node.
func (d *Document) Attached(h Handle) bool {
	for cur := h; d.valid(cur); cur = d.nodes[cur].parent {
		if cur == documentNode {
			return true
		}
	}
	return false
}

// Elements returns every attached element in document order.
func (d *Document) Elements() []Handle {
	var out []Handle
	d.walk(documentNode, func(h Handle) {
		if d.nodes[h].kind == ElementNode {
			out = append(out, h)
		}
	})
	return out
}

// ElementsByName returns attached elements with the given namespace and
// local name, in document order.
func (d *Document) ElementsByName(space, local string) []Handle {
	var out []Handle
	d.walk(documentNode, func(h Handle) {
		n := d.nodes[h]
		if n.kind == ElementNode && n.name.Local == local && n.name.Space == space {
			out = append(out, h)
		}
	})
	return out
}

func (d *Document) walk(h Handle, fn func(Handle)) {
	fn(h)
	for _, c := range d.nodes[h].children {
		d.walk(c, fn)
	}
}
