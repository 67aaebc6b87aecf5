package reqif

import (
	"errors"
	"slices"
	"strings"

	"github.com/suykerbuyk/reqifclean/internal/xmltree"
)

// ErrNoHeader is returned when a document has no REQ-IF-HEADER.
var ErrNoHeader = errors.New("document has no " + HeaderElement)

// EnsureRepositoryID fills an empty REPOSITORY-ID in the document header with
// the IDENTIFIERs of all SPECIFICATION elements, concatenated in document
// order. The element is created when missing. A populated identifier is
// never touched. It reports whether the tree changed.
func EnsureRepositoryID(doc *xmltree.Document) (bool, error) {
	headers := doc.ElementsByName(Namespace, HeaderElement)
	if len(headers) == 0 {
		return false, ErrNoHeader
	}
	header := headers[0]

	repoID := firstChildNamed(doc, header, RepositoryID)
	if repoID == xmltree.Nil {
		hn := doc.Name(header)
		repoID = doc.NewElement(xmltree.Name{Space: hn.Space, Local: RepositoryID, Prefix: hn.Prefix})
		doc.InsertBefore(header, repoID, firstChildNamed(doc, header, repositoryIDFollowers...))
	}

	if doc.Text(repoID) != "" {
		return false, nil
	}
	doc.SetText(repoID, SpecificationIDs(doc))
	return true, nil
}

// SpecificationIDs concatenates the IDENTIFIER of every SPECIFICATION in the
// document, without separators.
func SpecificationIDs(doc *xmltree.Document) string {
	var b strings.Builder
	for _, spec := range doc.ElementsByName(Namespace, SpecificationElement) {
		id, _ := doc.Attr(spec, AttrIdentifier)
		b.WriteString(id)
	}
	return b.String()
}

func firstChildNamed(doc *xmltree.Document, parent xmltree.Handle, locals ...string) xmltree.Handle {
	space := doc.Name(parent).Space
	for _, c := range doc.Children(parent) {
		if doc.Kind(c) != xmltree.ElementNode {
			continue
		}
		n := doc.Name(c)
		if n.Space == space && slices.Contains(locals, n.Local) {
			return c
		}
	}
	return xmltree.Nil
}
