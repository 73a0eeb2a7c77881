package formats

import (
	"testing"

	"DocQA/backend/go/internal/rag_service/rag/capability"
	"DocQA/backend/go/internal/rag_service/rag/ragerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Supported(t *testing.T) {
	tests := []struct {
		name string
		file string
		ext  string
		kind Kind
		capa capability.Name
	}{
		{"pdf", "report.pdf", "pdf", KindPaginated, capability.PDF},
		{"upper case", "REPORT.PDF", "pdf", KindPaginated, capability.PDF},
		{"docx", "a/b/notes.docx", "docx", KindPaginated, capability.Office},
		{"csv", "data.csv", "csv", KindTabular, capability.CSV},
		{"yml", "conf.yml", "yml", KindStructured, capability.YAML},
		{"solidity", "Token.sol", "sol", KindCode, capability.Text},
		{"htm", "index.htm", "htm", KindMarkup, capability.HTML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Classify(tt.file, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.ext, c.Ext)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.capa, c.Capability)
			assert.NotEmpty(t, c.Description)
			assert.Empty(t, c.MIMEType)
		})
	}
}

func TestClassify_LegacyNeverGeneric(t *testing.T) {
	for _, name := range []string{"old.doc", "OLD.XLS", "deck.ppt"} {
		_, err := Classify(name, nil)
		require.Error(t, err)
		assert.True(t, ragerr.Is(err, ragerr.UnsupportedLegacyFormat), name)
		assert.False(t, ragerr.Is(err, ragerr.UnsupportedFormat), name)

		e, ok := ragerr.As(err)
		require.True(t, ok)
		assert.Contains(t, e.Message, "Save As")
	}
}

func TestClassify_Unknown(t *testing.T) {
	_, err := Classify("image.png", nil)
	require.Error(t, err)
	assert.True(t, ragerr.Is(err, ragerr.UnsupportedFormat))

	e, _ := ragerr.As(err)
	assert.Equal(t, SupportedExtensions(), e.Detail["supported"])
	assert.Contains(t, e.Message, "pdf")

	_, err = Classify("Makefile", nil)
	assert.True(t, ragerr.Is(err, ragerr.UnsupportedFormat))
}

func TestClassify_MIMEIsDiagnosticOnly(t *testing.T) {
	// PDF magic bytes on a .txt file: the extension still wins.
	c, err := Classify("notes.txt", []byte("%PDF-1.4\n"))
	require.NoError(t, err)
	assert.Equal(t, "txt", c.Ext)
	assert.Equal(t, "application/pdf", c.MIMEType)
}

func TestCatalog(t *testing.T) {
	sup := Supported()
	leg := Legacy()

	assert.Equal(t, "PDF documents", sup["pdf"])
	assert.Len(t, leg, 3)
	for ext := range leg {
		_, clash := sup[ext]
		assert.False(t, clash, "legacy and supported sets must be disjoint: %s", ext)
	}
	assert.Len(t, SupportedExtensions(), len(sup))
}

func TestGetCatalog(t *testing.T) {
	c := GetCatalog()
	assert.Equal(t, Supported(), c.Supported)
	assert.Equal(t, Legacy(), c.Legacy)
}
