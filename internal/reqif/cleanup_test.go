package reqif

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suykerbuyk/reqifclean/internal/xmltree"
)

func TestFindCandidates(t *testing.T) {
	doc := parseDoc(t, exportedDoc)
	c, _ := newTestCleaner()

	got := c.FindCandidates(doc)
	var names []string
	for _, h := range got {
		names = append(names, doc.Name(h).Local)
	}
	assert.Equal(t, []string{
		"REQ-IF-HEADER",
		"DATATYPE-DEFINITION-STRING",
		"ATTRIBUTE-DEFINITION-STRING",
		"ATTRIBUTE-VALUE-STRING",
		"ATTRIBUTE-VALUE-STRING",
	}, names)
}

func TestFindCandidatesShallowReference(t *testing.T) {
	doc := parseDoc(t, `<ATTRIBUTE-DEFINITION-STRING-REF xmlns="`+Namespace+`">CB-1</ATTRIBUTE-DEFINITION-STRING-REF>`)
	c, _ := newTestCleaner()
	assert.Empty(t, c.FindCandidates(doc))
}

func TestCleanExportedDocument(t *testing.T) {
	doc := parseDoc(t, exportedDoc)
	c, logs := newTestCleaner()

	res := c.Clean(doc)

	assert.True(t, res.Changed())
	assert.Equal(t, 5, res.Candidates)
	assert.Equal(t, 4, res.Removed)
	assert.Equal(t, 3, res.Detached)
	assert.Empty(t, res.Unexpected, "the header is an accepted false positive")
	assert.Greater(t, res.Scanned, 30)

	require.Len(t, res.DataLoss, 1)
	assert.Equal(t, "REQ-A", res.DataLoss[0].Entity)
	assert.Equal(t, "ATTRIBUTE-VALUE-STRING", res.DataLoss[0].Element)
	assert.Contains(t, res.DataLoss[0].Fragment, `THE-VALUE="tracker field"`)
	assert.NotContains(t, res.DataLoss[0].Fragment, "xmlns")

	out := string(doc.Bytes())
	assert.NotContains(t, out, "CB-DT-1")
	assert.NotContains(t, out, "CB-AD-1")
	assert.NotContains(t, out, "tracker field")
	assert.Contains(t, out, `THE-VALUE="kept"`)
	assert.Contains(t, out, `IDENTIFIER="CB-header-1"`)
	assert.Contains(t, out, `IDENTIFIER="DT-1"`)

	log := logs.String()
	assert.Contains(t, log, "removing data")
	assert.Contains(t, log, "entity=REQ-A")
	assert.Contains(t, log, "candidates=5")
	assert.Contains(t, log, "removed=4")
	assert.NotContains(t, log, "unexpected element")
}

func TestCleanIsIdempotent(t *testing.T) {
	doc := parseDoc(t, exportedDoc)
	c, logs := newTestCleaner()

	require.True(t, c.Clean(doc).Changed())
	after := string(doc.Bytes())
	logs.Reset()

	res := c.Clean(doc)
	assert.False(t, res.Changed())
	assert.Zero(t, res.Removed)
	assert.Empty(t, res.DataLoss)
	assert.Empty(t, res.Unexpected)
	assert.Equal(t, after, string(doc.Bytes()))
	assert.NotContains(t, logs.String(), "level=WARN")
}

func TestCleanNoForeignNodes(t *testing.T) {
	doc := parseDoc(t, wrap(`<SPEC-OBJECTS><SPEC-OBJECT IDENTIFIER="REQ-1"/></SPEC-OBJECTS>`))
	before := string(doc.Bytes())
	c, _ := newTestCleaner()

	res := c.Clean(doc)
	assert.False(t, res.Changed())
	assert.Zero(t, res.Candidates)
	assert.Zero(t, res.Removed)
	assert.Equal(t, before, string(doc.Bytes()))
}

func TestCleanSpecObjectIsDataLoss(t *testing.T) {
	doc := parseDoc(t, wrap(`<SPEC-OBJECTS><SPEC-OBJECT IDENTIFIER="CB-42"/></SPEC-OBJECTS>`))
	c, logs := newTestCleaner()

	res := c.Clean(doc)
	assert.Equal(t, 1, res.Removed)
	require.Len(t, res.DataLoss, 1)
	assert.Equal(t, UnknownEntity, res.DataLoss[0].Entity, "REQ-IF-CONTENT carries no identifier")
	assert.Equal(t, `<SPEC-OBJECT IDENTIFIER="CB-42"/>`, res.DataLoss[0].Fragment)
	assert.Contains(t, logs.String(), "entity=UNKNOWN")
	assert.Empty(t, doc.ElementsByName(Namespace, SpecObject))
}

func TestCleanDataLossNamesContainingSpecification(t *testing.T) {
	doc := parseDoc(t, wrap(`<SPECIFICATIONS><SPECIFICATION IDENTIFIER="SPEC-7"><CHILDREN>`+
		`<SPEC-OBJECT IDENTIFIER="CB-42"/></CHILDREN></SPECIFICATION></SPECIFICATIONS>`))
	c, logs := newTestCleaner()

	res := c.Clean(doc)
	assert.Equal(t, 1, res.Removed)
	require.Len(t, res.DataLoss, 1)
	assert.Equal(t, "SPEC-7", res.DataLoss[0].Entity)
	assert.Contains(t, logs.String(), "entity=SPEC-7")
}

func TestCleanConfigurationIsSilent(t *testing.T) {
	doc := parseDoc(t, wrap(`<SPEC-TYPES><SPEC-OBJECT-TYPE IDENTIFIER="SOT-1"><SPEC-ATTRIBUTES>`+
		`<ATTRIBUTE-DEFINITION-STRING IDENTIFIER="CB-7"/></SPEC-ATTRIBUTES></SPEC-OBJECT-TYPE></SPEC-TYPES>`))
	c, logs := newTestCleaner()

	res := c.Clean(doc)
	assert.Equal(t, 1, res.Removed)
	assert.Empty(t, res.DataLoss)
	assert.NotContains(t, logs.String(), "level=WARN")
	assert.Empty(t, doc.ElementsByName(Namespace, "ATTRIBUTE-DEFINITION-STRING"))
}

func TestCleanUnexpectedElementLeftInPlace(t *testing.T) {
	doc := parseDoc(t, wrap(`<DATATYPES><DATATYPE-DEFINITION-STRING IDENTIFIER="CB-DT"/></DATATYPES>`+
		`<SPEC-RELATION-GROUPS><RELATION-GROUP IDENTIFIER="CB-9"/></SPEC-RELATION-GROUPS>`))
	c, logs := newTestCleaner()

	res := c.Clean(doc)
	assert.True(t, res.Changed(), "other removals still count")
	assert.Equal(t, 1, res.Removed)
	require.Len(t, res.Unexpected, 1)
	assert.Equal(t, "RELATION-GROUP", res.Unexpected[0].Element)
	assert.Equal(t, `<RELATION-GROUP IDENTIFIER="CB-9"/>`, res.Unexpected[0].Fragment)
	assert.Len(t, doc.ElementsByName(Namespace, "RELATION-GROUP"), 1)
	assert.Contains(t, logs.String(), "unexpected element")
}

func TestCleanDefaultValueFollowsDefinition(t *testing.T) {
	doc := parseDoc(t, wrap(`<SPEC-TYPES><SPEC-OBJECT-TYPE IDENTIFIER="SOT-1"><SPEC-ATTRIBUTES>`+
		`<ATTRIBUTE-DEFINITION-STRING IDENTIFIER="CB-AD"><DEFAULT-VALUE><ATTRIBUTE-VALUE-STRING THE-VALUE="d">`+
		`<DEFINITION><ATTRIBUTE-DEFINITION-STRING-REF>CB-AD</ATTRIBUTE-DEFINITION-STRING-REF></DEFINITION>`+
		`</ATTRIBUTE-VALUE-STRING></DEFAULT-VALUE></ATTRIBUTE-DEFINITION-STRING>`+
		`</SPEC-ATTRIBUTES></SPEC-OBJECT-TYPE></SPEC-TYPES>`))
	c, logs := newTestCleaner()

	res := c.Clean(doc)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, 1, res.Detached)
	assert.Empty(t, res.DataLoss)
	assert.Empty(t, res.Unexpected)
	assert.NotContains(t, logs.String(), "level=WARN")
}

func TestCleanCandidateDiscoveredTwice(t *testing.T) {
	doc := parseDoc(t, wrap(`<SPEC-OBJECTS><SPEC-OBJECT IDENTIFIER="CB-1"><VALUES>`+
		`<ATTRIBUTE-DEFINITION-STRING-REF>CB-2</ATTRIBUTE-DEFINITION-STRING-REF>`+
		`</VALUES></SPEC-OBJECT></SPEC-OBJECTS>`))
	c, _ := newTestCleaner()

	res := c.Clean(doc)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 1, res.Detached)
	assert.Len(t, res.DataLoss, 1)
}

func TestCleanDeepDescendantOfRemovedNode(t *testing.T) {
	doc := parseDoc(t, wrap(`<SPEC-OBJECTS><SPEC-OBJECT IDENTIFIER="CB-1"><A><B><C>`+
		`<SPEC-HIERARCHY IDENTIFIER="CB-2"/></C></B></A></SPEC-OBJECT></SPEC-OBJECTS>`))
	c, _ := newTestCleaner()

	res := c.Clean(doc)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, 1, res.Detached)
	assert.Len(t, res.DataLoss, 1, "the nested hierarchy node is not reported again")
	assert.LessOrEqual(t, res.Removed, res.Candidates)
}

func TestCleanForeignPrefixOption(t *testing.T) {
	doc := parseDoc(t, wrap(`<DATATYPES><DATATYPE-DEFINITION-STRING IDENTIFIER="CB-1"/>`+
		`<DATATYPE-DEFINITION-STRING IDENTIFIER="DNG-1"/></DATATYPES>`))
	c, _ := newTestCleaner(WithForeignPrefix("DNG-"))

	res := c.Clean(doc)
	assert.Equal(t, 1, res.Removed)
	out := string(doc.Bytes())
	assert.Contains(t, out, "CB-1")
	assert.NotContains(t, out, "DNG-1")
}

func TestDataLossFragmentKeepsText(t *testing.T) {
	doc := parseDoc(t, wrap(`<SPEC-OBJECTS><SPEC-OBJECT IDENTIFIER="CB-7" xmlns:x="urn:x">`+
		`<x:NOTE>copied xmlns="urn:y" verbatim</x:NOTE></SPEC-OBJECT></SPEC-OBJECTS>`))
	c, _ := newTestCleaner()

	res := c.Clean(doc)
	require.Len(t, res.DataLoss, 1)
	assert.Equal(t, `<SPEC-OBJECT IDENTIFIER="CB-7"><x:NOTE>copied xmlns="urn:y" verbatim</x:NOTE></SPEC-OBJECT>`,
		res.DataLoss[0].Fragment)
}

func TestHandledByAncestor(t *testing.T) {
	doc := parseDoc(t, `<a><b><c><d><e/></d></c></b></a>`)
	h := func(local string) xmltree.Handle { return doc.ElementsByName("", local)[0] }
	set := func(hs ...xmltree.Handle) map[xmltree.Handle]struct{} {
		m := map[xmltree.Handle]struct{}{}
		for _, x := range hs {
			m[x] = struct{}{}
		}
		return m
	}

	assert.False(t, handledByAncestor(doc, set(), h("e")))
	assert.True(t, handledByAncestor(doc, set(h("e")), h("e")), "itself")
	assert.True(t, handledByAncestor(doc, set(h("d")), h("e")), "parent")
	assert.True(t, handledByAncestor(doc, set(h("c")), h("e")), "grandparent")
	assert.False(t, handledByAncestor(doc, set(h("b")), h("e")), "two-step lookup only while attached")

	b, e := h("b"), h("e")
	doc.Detach(b)
	assert.True(t, handledByAncestor(doc, set(b), e), "detached subtree")
	assert.True(t, handledByAncestor(doc, set(), e), "detached without a removed ancestor")
}

func TestRemoveKeepsRemovedSetWithinCandidates(t *testing.T) {
	doc := parseDoc(t, exportedDoc)
	c, _ := newTestCleaner()
	candidates := c.FindCandidates(doc)

	res := c.Remove(doc, candidates)
	assert.LessOrEqual(t, res.Removed, len(candidates))
	for _, h := range candidates {
		if Classify(doc, h) != Neither && !strings.HasPrefix(doc.Name(h).Local, "REQ-IF") {
			assert.False(t, doc.Attached(h), "%s still attached", doc.Name(h).Local)
		}
	}
}
