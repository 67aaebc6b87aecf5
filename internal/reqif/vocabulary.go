// Package reqif removes foreign tool traces from ReqIF documents and fills
// in the repository identifier of the document header.
package reqif

// Namespace is the ReqIF 1.0 target namespace.
const Namespace = "http://www.omg.org/spec/ReqIF/20110401/reqif.xsd"

// DefaultForeignPrefix marks identifiers assigned by codeBeamer.
const DefaultForeignPrefix = "CB-"

// AttrIdentifier is the identifier-bearing attribute of identifiable elements.
const AttrIdentifier = "IDENTIFIER"

// UnknownEntity is reported when a removed node has no identifiable owner.
const UnknownEntity = "UNKNOWN"

// Element names and name patterns of the ReqIF vocabulary.
const (
	DatatypeDefinitionPrefix  = "DATATYPE-DEFINITION-"
	AttributeDefinitionPrefix = "ATTRIBUTE-DEFINITION-"
	AttributeValuePrefix      = "ATTRIBUTE-VALUE-"
	ReferenceSuffix           = "-REF"

	SpecObjectType       = "SPEC-OBJECT-TYPE"
	SpecObject           = "SPEC-OBJECT"
	SpecHierarchy        = "SPEC-HIERARCHY"
	DefaultValue         = "DEFAULT-VALUE"
	HeaderElement        = "REQ-IF-HEADER"
	RepositoryID         = "REPOSITORY-ID"
	SpecificationElement = "SPECIFICATION"
)

// repositoryIDFollowers are the header children that come after
// REPOSITORY-ID in the header sequence.
var repositoryIDFollowers = []string{"REQ-IF-TOOL-ID", "REQ-IF-VERSION", "SOURCE-TOOL-ID", "TITLE"}
