package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-labs/recall-cli/internal/core/domain"
)

// buildDocx assembles a minimal DOCX archive in memory.
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return buf.Bytes()
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestExtractor_Extract(t *testing.T) {
	ctx := context.Background()
	e := New()

	t.Run("joins runs and emits one segment per paragraph", func(t *testing.T) {
		content := buildDocx(t, sampleDocumentXML)

		segments, err := e.Extract(ctx, "fs:report.docx", content)

		require.NoError(t, err)
		require.Len(t, segments, 2)
		assert.Equal(t, "First paragraph.", segments[0].Text)
		assert.Equal(t, "Second paragraph.", segments[1].Text)
	})

	t.Run("empty paragraphs keep their index in provenance", func(t *testing.T) {
		content := buildDocx(t, sampleDocumentXML)

		segments, err := e.Extract(ctx, "fs:report.docx", content)

		require.NoError(t, err)
		require.Len(t, segments, 2)
		// The blank second paragraph is dropped but the third keeps index 3.
		assert.Equal(t, domain.Provenance{Kind: domain.ProvenanceParagraph, Index: 1}, segments[0].Provenance)
		assert.Equal(t, domain.Provenance{Kind: domain.ProvenanceParagraph, Index: 3}, segments[1].Provenance)
	})

	t.Run("rejects non-zip content", func(t *testing.T) {
		_, err := e.Extract(ctx, "fs:broken.docx", []byte("definitely not a zip"))

		assert.ErrorIs(t, err, domain.ErrExtraction)
	})

	t.Run("rejects archive without document.xml", func(t *testing.T) {
		var buf bytes.Buffer
		w := zip.NewWriter(&buf)
		f, err := w.Create("word/styles.xml")
		require.NoError(t, err)
		_, err = f.Write([]byte("<styles/>"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		_, err = e.Extract(ctx, "fs:odd.docx", buf.Bytes())

		assert.ErrorIs(t, err, domain.ErrExtraction)
	})

	t.Run("rejects malformed document.xml", func(t *testing.T) {
		content := buildDocx(t, "<w:document><unclosed")

		_, err := e.Extract(ctx, "fs:broken.docx", content)

		assert.ErrorIs(t, err, domain.ErrExtraction)
	})
}
