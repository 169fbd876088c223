package drive

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gdrive "google.golang.org/api/drive/v3"

	"github.com/recall-labs/recall-cli/internal/core/domain"
)

func TestFileToRef(t *testing.T) {
	t.Run("google doc is listed as exported text", func(t *testing.T) {
		file := &gdrive.File{
			Id:             "abc",
			Name:           "Meeting notes",
			MimeType:       MimeTypeGoogleDoc,
			HeadRevisionId: "rev-7",
			ModifiedTime:   "2026-08-01T10:00:00Z",
		}

		ref, ok := fileToRef("gdrive", file)

		require.True(t, ok)
		assert.Equal(t, "gdrive:abc", ref.DocumentID())
		assert.Equal(t, ExportMimeText, ref.MIMEType)
		assert.Equal(t, "rev-7", ref.RevisionFingerprint)
		assert.Equal(t, "Meeting notes", ref.DisplayName)
	})

	t.Run("google sheet is listed as exported csv", func(t *testing.T) {
		file := &gdrive.File{Id: "s1", MimeType: MimeTypeGoogleSheet, Version: 4}

		ref, ok := fileToRef("gdrive", file)

		require.True(t, ok)
		assert.Equal(t, ExportMimeCSV, ref.MIMEType)
	})

	t.Run("regular files keep their own MIME type", func(t *testing.T) {
		file := &gdrive.File{Id: "p1", MimeType: "application/pdf", Md5Checksum: "d41d8"}

		ref, ok := fileToRef("gdrive", file)

		require.True(t, ok)
		assert.Equal(t, "application/pdf", ref.MIMEType)
		assert.Equal(t, "d41d8", ref.RevisionFingerprint)
	})

	t.Run("folders and unsupported formats are dropped", func(t *testing.T) {
		_, ok := fileToRef("gdrive", &gdrive.File{Id: "f", MimeType: MimeTypeFolder})
		assert.False(t, ok)

		_, ok = fileToRef("gdrive", &gdrive.File{Id: "i", MimeType: "image/png"})
		assert.False(t, ok)
	})

	t.Run("trashed files are dropped", func(t *testing.T) {
		_, ok := fileToRef("gdrive", &gdrive.File{
			Id: "t", MimeType: "application/pdf", Trashed: true,
		})
		assert.False(t, ok)
	})
}

func TestFingerprint(t *testing.T) {
	t.Run("prefers head revision over checksum and version", func(t *testing.T) {
		file := &gdrive.File{
			HeadRevisionId: "rev-1",
			Md5Checksum:    "abc",
			Version:        9,
			ModifiedTime:   "2026-08-01T10:00:00Z",
		}

		assert.Equal(t, "rev-1", fingerprint(file))
	})

	t.Run("falls back through checksum, version, mtime", func(t *testing.T) {
		assert.Equal(t, "abc", fingerprint(&gdrive.File{Md5Checksum: "abc", Version: 9}))
		assert.Equal(t, "v9", fingerprint(&gdrive.File{Version: 9}))
		assert.Equal(t, "2026-08-01T10:00:00Z",
			fingerprint(&gdrive.File{ModifiedTime: "2026-08-01T10:00:00Z"}))
	})
}

func TestExportMimeFor(t *testing.T) {
	mime, ok := exportMimeFor(MimeTypeGoogleDoc)
	require.True(t, ok)
	assert.Equal(t, ExportMimeText, mime)

	mime, ok = exportMimeFor(MimeTypeGoogleSheet)
	require.True(t, ok)
	assert.Equal(t, ExportMimeCSV, mime)

	mime, ok = exportMimeFor(MimeTypeGoogleSlides)
	require.True(t, ok)
	assert.Equal(t, ExportMimeText, mime)

	_, ok = exportMimeFor("application/pdf")
	assert.False(t, ok)
}

func TestLimitedBody(t *testing.T) {
	body := limitedBody(io.NopCloser(strings.NewReader("hello world")))

	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
	assert.NoError(t, body.Close())
}

func TestSource_Watch(t *testing.T) {
	src := New("gdrive", nil, Config{})

	_, err := src.Watch(context.Background())

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
