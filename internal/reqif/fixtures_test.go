package reqif

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suykerbuyk/reqifclean/internal/xmltree"
)

const exportedDoc = `<?xml version="1.0" encoding="UTF-8"?>
<REQ-IF xmlns="http://www.omg.org/spec/ReqIF/20110401/reqif.xsd">
  <THE-HEADER>
    <REQ-IF-HEADER IDENTIFIER="CB-header-1">
      <CREATION-TIME>2024-01-01T00:00:00Z</CREATION-TIME>
      <REQ-IF-TOOL-ID>codeBeamer</REQ-IF-TOOL-ID>
      <REQ-IF-VERSION>1.0</REQ-IF-VERSION>
      <SOURCE-TOOL-ID>codeBeamer</SOURCE-TOOL-ID>
      <TITLE>Export</TITLE>
    </REQ-IF-HEADER>
  </THE-HEADER>
  <CORE-CONTENT>
    <REQ-IF-CONTENT>
      <DATATYPES>
        <DATATYPE-DEFINITION-STRING IDENTIFIER="CB-DT-1" MAX-LENGTH="255"/>
        <DATATYPE-DEFINITION-STRING IDENTIFIER="DT-1" MAX-LENGTH="255"/>
      </DATATYPES>
      <SPEC-TYPES>
        <SPEC-OBJECT-TYPE IDENTIFIER="SOT-1">
          <SPEC-ATTRIBUTES>
            <ATTRIBUTE-DEFINITION-STRING IDENTIFIER="CB-AD-1">
              <DEFAULT-VALUE>
                <ATTRIBUTE-VALUE-STRING THE-VALUE="x">
                  <DEFINITION><ATTRIBUTE-DEFINITION-STRING-REF>CB-AD-1</ATTRIBUTE-DEFINITION-STRING-REF></DEFINITION>
                </ATTRIBUTE-VALUE-STRING>
              </DEFAULT-VALUE>
              <TYPE><DATATYPE-DEFINITION-STRING-REF>DT-1</DATATYPE-DEFINITION-STRING-REF></TYPE>
            </ATTRIBUTE-DEFINITION-STRING>
            <ATTRIBUTE-DEFINITION-STRING IDENTIFIER="AD-2">
              <TYPE><DATATYPE-DEFINITION-STRING-REF>DT-1</DATATYPE-DEFINITION-STRING-REF></TYPE>
            </ATTRIBUTE-DEFINITION-STRING>
          </SPEC-ATTRIBUTES>
        </SPEC-OBJECT-TYPE>
      </SPEC-TYPES>
      <SPEC-OBJECTS>
        <SPEC-OBJECT IDENTIFIER="REQ-A">
          <VALUES>
            <ATTRIBUTE-VALUE-STRING THE-VALUE="tracker field">
              <DEFINITION><ATTRIBUTE-DEFINITION-STRING-REF>CB-AD-1</ATTRIBUTE-DEFINITION-STRING-REF></DEFINITION>
            </ATTRIBUTE-VALUE-STRING>
            <ATTRIBUTE-VALUE-STRING THE-VALUE="kept">
              <DEFINITION><ATTRIBUTE-DEFINITION-STRING-REF>AD-2</ATTRIBUTE-DEFINITION-STRING-REF></DEFINITION>
            </ATTRIBUTE-VALUE-STRING>
          </VALUES>
          <TYPE><SPEC-OBJECT-TYPE-REF>SOT-1</SPEC-OBJECT-TYPE-REF></TYPE>
        </SPEC-OBJECT>
      </SPEC-OBJECTS>
      <SPECIFICATIONS>
        <SPECIFICATION IDENTIFIER="REQ-1"/>
        <SPECIFICATION IDENTIFIER="REQ-2"/>
      </SPECIFICATIONS>
    </REQ-IF-CONTENT>
  </CORE-CONTENT>
</REQ-IF>
`

// wrap places body inside a minimal ReqIF document.
func wrap(body string) string {
	return `<REQ-IF xmlns="` + Namespace + `"><THE-HEADER><REQ-IF-HEADER IDENTIFIER="H-1"/></THE-HEADER>` +
		`<CORE-CONTENT><REQ-IF-CONTENT>` + body + `</REQ-IF-CONTENT></CORE-CONTENT></REQ-IF>`
}

func parseDoc(t *testing.T, s string) *xmltree.Document {
	t.Helper()
	doc, err := xmltree.Parse(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func newTestCleaner(opts ...Option) (*Cleaner, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	return NewCleaner(logger, opts...), &buf
}

func first(t *testing.T, doc *xmltree.Document, local string) xmltree.Handle {
	t.Helper()
	els := doc.ElementsByName(Namespace, local)
	require.NotEmpty(t, els, "no %s element", local)
	return els[0]
}
