// Package drive provides a document source over a Google Drive folder.
//
// Google Workspace files (Docs, Sheets, Slides) are exported to text
// formats on fetch; regular files are downloaded as-is. Revision
// fingerprints come from Drive's head revision ID so they are stable
// across process restarts and change exactly when content changes.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
	"github.com/recall-labs/recall-cli/internal/logger"
	"github.com/recall-labs/recall-cli/internal/sources/google"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// MaxFetchSize is the maximum size for fetched content (20MB).
const MaxFetchSize = 20 * 1024 * 1024

// listFields limits the files.list response to what List needs.
const listFields = "nextPageToken, files(id, name, mimeType, headRevisionId, md5Checksum, version, modifiedTime, trashed, size)"

// syncableMIMETypes are the regular-file formats worth fetching.
var syncableMIMETypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain":    true,
	"text/markdown": true,
	"text/csv":      true,
}

// Config holds configuration for a Drive source.
type Config struct {
	// FolderID restricts the source to one folder. Empty means the
	// whole Drive.
	FolderID string
}

// Source is a document source over a Google Drive folder.
type Source struct {
	id      string
	svc     *gdrive.Service
	limiter *google.RateLimiter
	cfg     Config
}

// New creates a Drive source.
func New(sourceID string, svc *gdrive.Service, cfg Config) *Source {
	return &Source{
		id:      sourceID,
		svc:     svc,
		limiter: google.NewRateLimiter(google.DefaultDriveRateLimit),
		cfg:     cfg,
	}
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "gdrive"
}

// SourceID returns the configured source ID.
func (s *Source) SourceID() string {
	return s.id
}

// List pages through files.list and returns refs for every syncable
// file. Workspace files are listed with the MIME type they will be
// exported to, so the extractor registry dispatches on what Fetch
// actually returns.
func (s *Source) List(ctx context.Context) ([]domain.DocumentRef, error) {
	query := "trashed = false"
	if s.cfg.FolderID != "" {
		query = fmt.Sprintf("'%s' in parents and trashed = false", s.cfg.FolderID)
	}

	var refs []domain.DocumentRef
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Files.List().
			Context(ctx).
			Q(query).
			Fields(listFields).
			PageSize(200)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, s.mapError("list files", err)
		}

		for _, file := range page.Files {
			ref, ok := fileToRef(s.id, file)
			if !ok {
				continue
			}
			refs = append(refs, ref)
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return refs, nil
}

// Fetch downloads or exports the content of a previously listed file.
// The file's current MIME type is re-read first: Workspace files must
// be exported while regular files are downloaded, and a file deleted
// between List and Fetch surfaces here as domain.ErrNotFound.
func (s *Source) Fetch(ctx context.Context, ref domain.DocumentRef) (io.ReadCloser, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	meta, err := s.svc.Files.Get(ref.ExternalID).Context(ctx).Fields("mimeType").Do()
	if err != nil {
		return nil, s.mapError("stat file", err)
	}

	if exportMime, ok := exportMimeFor(meta.MimeType); ok {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		r, err := s.svc.Files.Export(ref.ExternalID, exportMime).Context(ctx).Download()
		if err != nil {
			return nil, s.mapError("export file", err)
		}
		return limitedBody(r.Body), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	r, err := s.svc.Files.Get(ref.ExternalID).Context(ctx).Download()
	if err != nil {
		return nil, s.mapError("download file", err)
	}
	return limitedBody(r.Body), nil
}

// Watch is not supported for Drive; syncs are on demand or scheduled.
func (s *Source) Watch(context.Context) (<-chan struct{}, error) {
	return nil, fmt.Errorf("%w: drive source cannot watch", domain.ErrUnsupportedFormat)
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}

// mapError translates Drive API errors onto the domain taxonomy.
func (s *Source) mapError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 404:
			return fmt.Errorf("%w: %s: %w", domain.ErrNotFound, op, err)
		case 429:
			s.limiter.RecordRateLimitError(0)
			return fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, op, err)
		}
		if apiErr.Code >= 500 {
			return fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	// Network-level failures are transient.
	return fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, op, err)
}

// fileToRef converts a Drive file to a DocumentRef. Returns false for
// folders and formats the pipeline cannot process.
func fileToRef(sourceID string, file *gdrive.File) (domain.DocumentRef, bool) {
	if file.MimeType == MimeTypeFolder || file.Trashed {
		return domain.DocumentRef{}, false
	}

	mimeType := file.MimeType
	switch file.MimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSlides:
		mimeType = ExportMimeText
	case MimeTypeGoogleSheet:
		mimeType = ExportMimeCSV
	default:
		if !syncableMIMETypes[file.MimeType] {
			return domain.DocumentRef{}, false
		}
	}

	modifiedAt, err := time.Parse(time.RFC3339, file.ModifiedTime)
	if err != nil {
		modifiedAt = time.Time{}
	}

	return domain.DocumentRef{
		SourceID:            sourceID,
		ExternalID:          file.Id,
		DisplayName:         file.Name,
		MIMEType:            mimeType,
		RevisionFingerprint: fingerprint(file),
		ModifiedAt:          modifiedAt,
	}, true
}

// fingerprint picks the most content-stable revision signal Drive
// offers for this file type.
func fingerprint(file *gdrive.File) string {
	switch {
	case file.HeadRevisionId != "":
		return file.HeadRevisionId
	case file.Md5Checksum != "":
		return file.Md5Checksum
	case file.Version != 0:
		return fmt.Sprintf("v%d", file.Version)
	default:
		logger.Debug("No revision signal for %s, falling back to mtime", file.Id)
		return file.ModifiedTime
	}
}

// exportMimeFor returns the export format for Workspace MIME types.
func exportMimeFor(mimeType string) (string, bool) {
	switch mimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSlides:
		return ExportMimeText, true
	case MimeTypeGoogleSheet:
		return ExportMimeCSV, true
	}
	return "", false
}

// limitedBody caps fetched content at MaxFetchSize.
func limitedBody(body io.ReadCloser) io.ReadCloser {
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(body, MaxFetchSize), body}
}

