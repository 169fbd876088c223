// Package filesystem provides a document source over a local directory
// tree.
//
// Revision fingerprints are content hashes, so they survive process
// restarts and only change when file content changes (a touched mtime
// alone does not force re-indexing).
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
	"github.com/recall-labs/recall-cli/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// mimeByExtension maps supported file extensions to MIME types.
var mimeByExtension = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// Source is a document source over a local directory tree.
type Source struct {
	id   string
	root string
}

// New creates a filesystem source rooted at the given directory.
func New(sourceID, root string) (*Source, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, abs)
	}

	return &Source{id: sourceID, root: abs}, nil
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "filesystem"
}

// SourceID returns the configured source ID.
func (s *Source) SourceID() string {
	return s.id
}

// List walks the tree and returns refs for every supported file.
// Hidden directories are skipped. Results are sorted by path so
// repeated listings are deterministic.
func (s *Source) List(ctx context.Context) ([]domain.DocumentRef, error) {
	var refs []domain.DocumentRef

	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		mimeType, ok := mimeByExtension[strings.ToLower(filepath.Ext(name))]
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}

		fingerprint, modTime, err := hashFile(path)
		if err != nil {
			// File vanished or unreadable mid-walk; skip it, the next
			// pass will pick it up.
			logger.Debug("Skipping unreadable file %s: %v", path, err)
			return nil
		}

		refs = append(refs, domain.DocumentRef{
			SourceID:            s.id,
			ExternalID:          filepath.ToSlash(rel),
			DisplayName:         name,
			MIMEType:            mimeType,
			RevisionFingerprint: fingerprint,
			ModifiedAt:          modTime,
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: walking %s: %w", domain.ErrSourceUnavailable, s.root, err)
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].ExternalID < refs[j].ExternalID
	})
	return refs, nil
}

// Fetch opens the file behind a previously listed ref.
func (s *Source) Fetch(_ context.Context, ref domain.DocumentRef) (io.ReadCloser, error) {
	path := filepath.Join(s.root, filepath.FromSlash(ref.ExternalID))

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, ref.ExternalID)
		}
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrSourceUnavailable, path, err)
	}
	return f, nil
}

// Watch reports filesystem changes under the root. Every directory in
// the tree is watched; events are coalesced by the consumer.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	err = filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.root {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("%w: watching %s: %w", domain.ErrSourceUnavailable, s.root, err)
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// New directories need their own watch.
				if event.Op.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = watcher.Add(event.Name)
					}
				}
				select {
				case changes <- struct{}{}:
				default: // a pending notification already covers this
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watch error on %s: %v", s.root, err)
			}
		}
	}()
	return changes, nil
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}

// hashFile returns the content hash and modification time of a file.
func hashFile(path string) (string, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", time.Time{}, err
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", time.Time{}, err
	}
	return hex.EncodeToString(h.Sum(nil)), info.ModTime(), nil
}
