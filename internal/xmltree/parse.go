package xmltree

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrParse wraps every failure to read a document.
var ErrParse = errors.New("parse xml")

type scope struct {
	parent *scope
	decls  map[string]string
}

func (s *scope) lookup(prefix string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if uri, ok := cur.decls[prefix]; ok {
			return uri, true
		}
	}
	return "", false
}

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// decodeBOM strips a leading byte-order mark. A UTF-16 mark also converts the
// input to UTF-8, in which case the prolog's encoding label no longer applies.
func decodeBOM(r io.Reader) (io.Reader, bool) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(2)
	utf16 := bytes.Equal(head, bomUTF16BE) || bytes.Equal(head, bomUTF16LE)
	return transform.NewReader(br, unicode.BOMOverride(transform.Nop)), utf16
}

// Parse reads a complete document from r.
func Parse(r io.Reader) (*Document, error) {
	in, converted := decodeBOM(r)
	dec := xml.NewDecoder(in)
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel
	if converted {
		dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	}

	doc := New()
	cur := documentNode
	sc := &scope{decls: map[string]string{"xml": xmlNamespace, "": ""}}
	var open []xml.Name

	fail := func(format string, args ...any) (*Document, error) {
		line, col := dec.InputPos()
		return nil, fmt.Errorf("%w: line %d, column %d: %s", ErrParse, line, col, fmt.Sprintf(format, args...))
	}

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if cur == documentNode && doc.Root() != Nil {
				return fail("multiple root elements")
			}
			sc = &scope{parent: sc, decls: map[string]string{}}
			for _, a := range t.Attr {
				switch {
				case a.Name.Space == "xmlns":
					sc.decls[a.Name.Local] = a.Value
				case a.Name.Space == "" && a.Name.Local == "xmlns":
					sc.decls[""] = a.Value
				}
			}

			space, ok := sc.lookup(t.Name.Space)
			if !ok {
				return fail("unbound prefix %q", t.Name.Space)
			}
			n := node{
				kind:   ElementNode,
				name:   Name{Space: space, Local: t.Name.Local, Prefix: t.Name.Space},
				parent: Nil,
			}
			for _, a := range t.Attr {
				attr, err := resolveAttr(sc, a)
				if err != nil {
					return fail("%v", err)
				}
				n.attrs = append(n.attrs, attr)
			}
			h := doc.alloc(n)
			doc.AppendChild(cur, h)
			cur = h
			open = append(open, t.Name)

		case xml.EndElement:
			if len(open) == 0 {
				return fail("unexpected end element </%s>", rawQualified(t.Name))
			}
			top := open[len(open)-1]
			if top != t.Name {
				return fail("element <%s> closed by </%s>", rawQualified(top), rawQualified(t.Name))
			}
			open = open[:len(open)-1]
			sc = sc.parent
			cur = doc.nodes[cur].parent

		case xml.CharData:
			if cur == documentNode && strings.TrimSpace(string(t)) != "" {
				return fail("character data outside the root element")
			}
			doc.appendLeaf(cur, node{kind: TextNode, data: string(t)})

		case xml.Comment:
			doc.appendLeaf(cur, node{kind: CommentNode, data: string(t)})

		case xml.ProcInst:
			doc.appendLeaf(cur, node{kind: ProcInstNode, target: t.Target, data: string(t.Inst)})

		case xml.Directive:
			doc.appendLeaf(cur, node{kind: DirectiveNode, data: string(t)})
		}
	}

	if len(open) > 0 {
		return fail("unexpected end of input inside <%s>", rawQualified(open[len(open)-1]))
	}
	if doc.Root() == Nil {
		return fail("no root element")
	}
	return doc, nil
}

func (d *Document) appendLeaf(parent Handle, n node) {
	n.parent = Nil
	d.AppendChild(parent, d.alloc(n))
}

func resolveAttr(sc *scope, a xml.Attr) (Attr, error) {
	name := Name{Local: a.Name.Local, Prefix: a.Name.Space}
	switch {
	case a.Name.Space == "xmlns", a.Name.Space == "" && a.Name.Local == "xmlns":
		name.Space = xmlnsNamespace
	case a.Name.Space != "":
		uri, ok := sc.lookup(a.Name.Space)
		if !ok || uri == "" {
			return Attr{}, fmt.Errorf("unbound attribute prefix %q", a.Name.Space)
		}
		name.Space = uri
	}
	return Attr{Name: name, Value: a.Value}, nil
}

func rawQualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
