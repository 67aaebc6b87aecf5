package reqif

import (
	"log/slog"
	"strings"

	"github.com/suykerbuyk/reqifclean/internal/xmltree"
)

// Loss records a data-bearing node that was removed.
type Loss struct {
	Entity   string
	Element  string
	Fragment string
}

// Unexpected records a foreign-tagged node that was left in place.
type Unexpected struct {
	Element  string
	Fragment string
}

// Result summarizes one cleanup pass over a document.
type Result struct {
	Scanned    int
	Candidates int
	// Removed counts every candidate handled in the pass, including those
	// that went away with an already removed ancestor.
	Removed    int
	Detached   int
	DataLoss   []Loss
	Unexpected []Unexpected
}

// Changed reports whether the pass modified the tree.
func (r Result) Changed() bool {
	return r.Removed > 0
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithForeignPrefix overrides the identifier prefix that marks foreign nodes.
func WithForeignPrefix(prefix string) Option {
	return func(c *Cleaner) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// Cleaner finds and removes nodes tagged with a foreign identifier. It keeps
// no per-document state and may be reused across documents.
type Cleaner struct {
	prefix string
	logger *slog.Logger
}

// NewCleaner returns a Cleaner that reports to logger.
func NewCleaner(logger *slog.Logger, opts ...Option) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cleaner{prefix: DefaultForeignPrefix, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean runs discovery and removal over doc.
func (c *Cleaner) Clean(doc *xmltree.Document) Result {
	candidates, scanned := c.findCandidates(doc)
	res := c.Remove(doc, candidates)
	res.Scanned = scanned
	return res
}

// FindCandidates returns, in document order, every element whose
// IDENTIFIER has the foreign prefix, and the grandparent of every attribute
// definition reference whose target has it.
func (c *Cleaner) FindCandidates(doc *xmltree.Document) []xmltree.Handle {
	candidates, _ := c.findCandidates(doc)
	return candidates
}

func (c *Cleaner) findCandidates(doc *xmltree.Document) ([]xmltree.Handle, int) {
	elements := doc.Elements()
	var candidates []xmltree.Handle
	for _, el := range elements {
		if id, ok := doc.Attr(el, AttrIdentifier); ok && strings.HasPrefix(id, c.prefix) {
			candidates = append(candidates, el)
		}
		if isDefinitionRef(doc.Name(el).Local) && strings.HasPrefix(doc.Text(el), c.prefix) {
			// The reference sits in <DEFINITION> inside the value it taints.
			if gp := grandparent(doc, el); gp != xmltree.Nil && doc.Kind(gp) == xmltree.ElementNode {
				candidates = append(candidates, gp)
			}
		}
	}
	c.logger.Info("scanned document", "elements", len(elements), "candidates", len(candidates))
	return candidates, len(elements)
}

// Remove detaches the configuration and data traces among candidates, in
// order, skipping nodes whose removal an ancestor already covered.
func (c *Cleaner) Remove(doc *xmltree.Document, candidates []xmltree.Handle) Result {
	res := Result{Candidates: len(candidates)}
	removed := make(map[xmltree.Handle]struct{}, len(candidates))

	for _, h := range candidates {
		if handledByAncestor(doc, removed, h) {
			removed[h] = struct{}{}
			continue
		}

		name := doc.Name(h).Qualified()
		switch Classify(doc, h) {
		case DataTrace:
			loss := Loss{
				Entity:   entityIdentifier(doc, h),
				Element:  name,
				Fragment: doc.RenderFragment(h),
			}
			c.logger.Warn("removing data", "entity", loss.Entity, "element", loss.Element, "fragment", loss.Fragment)
			res.DataLoss = append(res.DataLoss, loss)
			fallthrough
		case ConfigurationTrace:
			doc.Detach(h)
			removed[h] = struct{}{}
			res.Detached++
		default:
			if doc.Name(h).Local == HeaderElement {
				continue
			}
			u := Unexpected{Element: name, Fragment: doc.RenderFragment(h)}
			c.logger.Warn("unexpected element with foreign identifier not removed", "element", u.Element, "fragment", u.Fragment)
			res.Unexpected = append(res.Unexpected, u)
		}
	}

	res.Removed = len(removed)
	c.logger.Info("removed elements", "removed", res.Removed, "detached", res.Detached)
	return res
}

// handledByAncestor reports whether h is already gone: removed itself,
// under a parent or grandparent removed earlier in the pass, or cut off
// from the document by a removal further up.
func handledByAncestor(doc *xmltree.Document, removed map[xmltree.Handle]struct{}, h xmltree.Handle) bool {
	if _, ok := removed[h]; ok {
		return true
	}
	if p := doc.Parent(h); p != xmltree.Nil {
		if _, ok := removed[p]; ok {
			return true
		}
		if gp := doc.Parent(p); gp != xmltree.Nil {
			if _, ok := removed[gp]; ok {
				return true
			}
		}
	}
	return !doc.Attached(h)
}

func grandparent(doc *xmltree.Document, h xmltree.Handle) xmltree.Handle {
	p := doc.Parent(h)
	if p == xmltree.Nil {
		return xmltree.Nil
	}
	return doc.Parent(p)
}

// entityIdentifier names the owner of a removed node: the IDENTIFIER two
// levels up, or UnknownEntity.
func entityIdentifier(doc *xmltree.Document, h xmltree.Handle) string {
	gp := grandparent(doc, h)
	if gp == xmltree.Nil {
		return UnknownEntity
	}
	if id, ok := doc.Attr(gp, AttrIdentifier); ok && id != "" {
		return id
	}
	return UnknownEntity
}
