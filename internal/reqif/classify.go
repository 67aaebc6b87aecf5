package reqif

import (
	"strings"

	"github.com/suykerbuyk/reqifclean/internal/xmltree"
)

// Classification is the role of a node carrying a foreign identifier.
type Classification int

const (
	// Neither is a node that matches no known trace pattern.
	Neither Classification = iota
	// ConfigurationTrace is a type or definition node; dropping it loses no
	// requirement content.
	ConfigurationTrace
	// DataTrace is a node that carries or references requirement content.
	DataTrace
)

func (c Classification) String() string {
	switch c {
	case ConfigurationTrace:
		return "configuration"
	case DataTrace:
		return "data"
	default:
		return "neither"
	}
}

// IsConfigurationTrace reports whether h is a datatype, spec object type or
// attribute definition.
func IsConfigurationTrace(doc *xmltree.Document, h xmltree.Handle) bool {
	name := doc.Name(h).Local
	return strings.HasPrefix(name, DatatypeDefinitionPrefix) ||
		name == SpecObjectType ||
		strings.HasPrefix(name, AttributeDefinitionPrefix)
}

// IsDataTrace reports whether h is a spec object, a hierarchy node, or an
// attribute value that is not a definition's default.
func IsDataTrace(doc *xmltree.Document, h xmltree.Handle) bool {
	name := doc.Name(h).Local
	switch {
	case name == SpecObject, name == SpecHierarchy:
		return true
	case strings.HasPrefix(name, AttributeValuePrefix):
		return !underDefaultValue(doc, h)
	default:
		return false
	}
}

func underDefaultValue(doc *xmltree.Document, h xmltree.Handle) bool {
	p := doc.Parent(h)
	if p == xmltree.Nil || doc.Kind(p) != xmltree.ElementNode {
		return false
	}
	return doc.Name(p).Local == DefaultValue
}

// Classify returns the role of h. Configuration is checked first.
func Classify(doc *xmltree.Document, h xmltree.Handle) Classification {
	switch {
	case IsConfigurationTrace(doc, h):
		return ConfigurationTrace
	case IsDataTrace(doc, h):
		return DataTrace
	default:
		return Neither
	}
}

func isDefinitionRef(name string) bool {
	return strings.HasPrefix(name, AttributeDefinitionPrefix) && strings.HasSuffix(name, ReferenceSuffix)
}
