package reqif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureRepositoryIDCreatesElement(t *testing.T) {
	doc := parseDoc(t, exportedDoc)

	changed, err := EnsureRepositoryID(doc)
	require.NoError(t, err)
	assert.True(t, changed)

	repo := first(t, doc, RepositoryID)
	assert.Equal(t, "REQ-1REQ-2", doc.Text(repo))
	assert.Equal(t, first(t, doc, HeaderElement), doc.Parent(repo))
	assert.Contains(t, string(doc.Bytes()),
		`<REPOSITORY-ID>REQ-1REQ-2</REPOSITORY-ID><REQ-IF-TOOL-ID>codeBeamer</REQ-IF-TOOL-ID>`)
}

func TestEnsureRepositoryIDIsIdempotent(t *testing.T) {
	doc := parseDoc(t, exportedDoc)

	changed, err := EnsureRepositoryID(doc)
	require.NoError(t, err)
	require.True(t, changed)
	before := string(doc.Bytes())

	changed, err = EnsureRepositoryID(doc)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, string(doc.Bytes()))
	assert.Len(t, doc.ElementsByName(Namespace, RepositoryID), 1)
}

func TestEnsureRepositoryIDKeepsPopulatedValue(t *testing.T) {
	doc := parseDoc(t, `<REQ-IF xmlns="`+Namespace+`"><THE-HEADER><REQ-IF-HEADER IDENTIFIER="H">`+
		`<REPOSITORY-ID>repo-0</REPOSITORY-ID></REQ-IF-HEADER></THE-HEADER>`+
		`<CORE-CONTENT><REQ-IF-CONTENT><SPECIFICATIONS><SPECIFICATION IDENTIFIER="S1"/>`+
		`</SPECIFICATIONS></REQ-IF-CONTENT></CORE-CONTENT></REQ-IF>`)

	changed, err := EnsureRepositoryID(doc)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "repo-0", doc.Text(first(t, doc, RepositoryID)))
}

func TestEnsureRepositoryIDFillsEmptyElement(t *testing.T) {
	doc := parseDoc(t, `<REQ-IF xmlns="`+Namespace+`"><THE-HEADER><REQ-IF-HEADER IDENTIFIER="H">`+
		`<REPOSITORY-ID></REPOSITORY-ID><TITLE>t</TITLE></REQ-IF-HEADER></THE-HEADER>`+
		`<CORE-CONTENT><REQ-IF-CONTENT><SPECIFICATIONS><SPECIFICATION IDENTIFIER="S1"/>`+
		`<SPECIFICATION IDENTIFIER="S2"/><SPECIFICATION IDENTIFIER="S3"/>`+
		`</SPECIFICATIONS></REQ-IF-CONTENT></CORE-CONTENT></REQ-IF>`)

	changed, err := EnsureRepositoryID(doc)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "S1S2S3", doc.Text(first(t, doc, RepositoryID)))
	assert.Len(t, doc.ElementsByName(Namespace, RepositoryID), 1)
}

func TestEnsureRepositoryIDUsesSurvivingSpecifications(t *testing.T) {
	doc := parseDoc(t, exportedDoc)
	specs := doc.ElementsByName(Namespace, SpecificationElement)
	require.Len(t, specs, 2)
	doc.Detach(specs[0])

	_, err := EnsureRepositoryID(doc)
	require.NoError(t, err)
	assert.Equal(t, "REQ-2", doc.Text(first(t, doc, RepositoryID)))
}

func TestEnsureRepositoryIDPrefixedDocument(t *testing.T) {
	doc := parseDoc(t, `<r:REQ-IF xmlns:r="`+Namespace+`"><r:THE-HEADER><r:REQ-IF-HEADER IDENTIFIER="H"/>`+
		`</r:THE-HEADER><r:CORE-CONTENT><r:REQ-IF-CONTENT><r:SPECIFICATIONS>`+
		`<r:SPECIFICATION IDENTIFIER="P1"/></r:SPECIFICATIONS></r:REQ-IF-CONTENT></r:CORE-CONTENT></r:REQ-IF>`)

	changed, err := EnsureRepositoryID(doc)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, string(doc.Bytes()), `<r:REQ-IF-HEADER IDENTIFIER="H"><r:REPOSITORY-ID>P1</r:REPOSITORY-ID></r:REQ-IF-HEADER>`)
}

func TestEnsureRepositoryIDNoHeader(t *testing.T) {
	doc := parseDoc(t, `<REQ-IF xmlns="`+Namespace+`"/>`)
	_, err := EnsureRepositoryID(doc)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestEnsureRepositoryIDAfterCleanup(t *testing.T) {
	doc := parseDoc(t, wrap(`<SPECIFICATIONS><SPECIFICATION IDENTIFIER="REQ-1"/>`+
		`<SPECIFICATION IDENTIFIER="REQ-2"/></SPECIFICATIONS>`))
	c, _ := newTestCleaner()
	c.Clean(doc)

	changed, err := EnsureRepositoryID(doc)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "REQ-1REQ-2", SpecificationIDs(doc))
	assert.Equal(t, "REQ-1REQ-2", doc.Text(first(t, doc, RepositoryID)))
}
