package xmltree

import (
	"bytes"
	"regexp"
	"strings"
)

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\r", "&#xD;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		`"`, "&quot;",
		"\t", "&#x9;",
		"\n", "&#xA;",
		"\r", "&#xD;",
	)
	encodingDecl = regexp.MustCompile(`encoding\s*=\s*("[^"]*"|'[^']*')`)
)

// Bytes serializes the attached tree. Output is always UTF-8.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	for _, c := range d.nodes[documentNode].children {
		d.encode(&buf, c, false)
	}
	return buf.Bytes()
}

// Render serializes the subtree rooted at h. Namespace declarations made
// on ancestors of h are not repeated.
func (d *Document) Render(h Handle) string {
	var buf bytes.Buffer
	d.encode(&buf, h, false)
	return buf.String()
}

// RenderFragment is Render without any namespace declaration attributes.
// Character data is written unchanged.
func (d *Document) RenderFragment(h Handle) string {
	var buf bytes.Buffer
	d.encode(&buf, h, true)
	return buf.String()
}

func (d *Document) encode(buf *bytes.Buffer, h Handle, omitDecls bool) {
	n := &d.nodes[h]
	switch n.kind {
	case DocumentNode:
		for _, c := range n.children {
			d.encode(buf, c, omitDecls)
		}
	case TextNode:
		textEscaper.WriteString(buf, n.data)
	case CommentNode:
		buf.WriteString("<!--")
		buf.WriteString(n.data)
		buf.WriteString("-->")
	case ProcInstNode:
		inst := n.data
		if n.target == "xml" {
			inst = encodingDecl.ReplaceAllString(inst, `encoding="UTF-8"`)
		}
		buf.WriteString("<?")
		buf.WriteString(n.target)
		if inst != "" {
			buf.WriteByte(' ')
			buf.WriteString(inst)
		}
		buf.WriteString("?>")
	case DirectiveNode:
		buf.WriteString("<!")
		buf.WriteString(n.data)
		buf.WriteByte('>')
	case ElementNode:
		qname := n.name.Qualified()
		buf.WriteByte('<')
		buf.WriteString(qname)
		for _, a := range n.attrs {
			if omitDecls && a.IsNamespaceDecl() {
				continue
			}
			buf.WriteByte(' ')
			buf.WriteString(a.Name.Qualified())
			buf.WriteString(`="`)
			attrEscaper.WriteString(buf, a.Value)
			buf.WriteByte('"')
		}
		if len(n.children) == 0 {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for _, c := range n.children {
			d.encode(buf, c, omitDecls)
		}
		buf.WriteString("</")
		buf.WriteString(qname)
		buf.WriteByte('>')
	}
}
