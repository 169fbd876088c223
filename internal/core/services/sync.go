package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
	"github.com/recall-labs/recall-cli/internal/core/ports/driving"
	"github.com/recall-labs/recall-cli/internal/logger"
)

// Ensure SyncCoordinator implements the interface.
var _ driving.SyncCoordinator = (*SyncCoordinator)(nil)

// DefaultSyncWorkers bounds concurrent per-document pipelines.
const DefaultSyncWorkers = 4

// eventBufferSize is the progress channel capacity. Events beyond it
// are dropped rather than blocking the pipeline.
const eventBufferSize = 256

// SyncConfig holds tuning knobs for the sync pipeline.
type SyncConfig struct {
	// Workers is the number of concurrent document pipelines.
	Workers int

	// MaxTokens is the chunk size budget.
	MaxTokens int

	// OverlapTokens is the trailing context carried between chunks.
	OverlapTokens int
}

// SyncCoordinator reconciles document sources against the index store.
// It computes a minimal diff from revision fingerprints and runs each
// changed document through extract, chunk, embed and upsert. Failures
// in one document never block the others.
type SyncCoordinator struct {
	sources  map[string]driven.DocumentSource
	ordered  []driven.DocumentSource
	registry driven.ExtractorRegistry
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	store    driven.IndexStore
	cfg      SyncConfig

	running atomic.Bool
	events  chan domain.ProgressEvent
}

// NewSyncCoordinator wires a coordinator over the given sources.
func NewSyncCoordinator(
	sources []driven.DocumentSource,
	registry driven.ExtractorRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	store driven.IndexStore,
	cfg SyncConfig,
) *SyncCoordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultSyncWorkers
	}
	byID := make(map[string]driven.DocumentSource, len(sources))
	for _, src := range sources {
		byID[src.SourceID()] = src
	}
	return &SyncCoordinator{
		sources:  byID,
		ordered:  sources,
		registry: registry,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		events:   make(chan domain.ProgressEvent, eventBufferSize),
	}
}

// Events returns the progress stream shared by all runs.
func (c *SyncCoordinator) Events() <-chan domain.ProgressEvent {
	return c.events
}

// Plan computes the diff between the sources and the store without
// applying it. Documents belonging to sources this coordinator does not
// manage are left untouched.
func (c *SyncCoordinator) Plan(ctx context.Context) (*domain.SyncPlan, error) {
	stored, err := c.store.ListDocumentRevisions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored revisions: %w", err)
	}

	seen := make(map[string]domain.DocumentRef)
	for _, src := range c.ordered {
		refs, err := src.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list source %s: %w", src.SourceID(), err)
		}
		for _, ref := range refs {
			seen[ref.DocumentID()] = ref
		}
	}

	plan := &domain.SyncPlan{}
	for id, ref := range seen {
		rev, ok := stored[id]
		switch {
		case !ok:
			plan.ToAdd = append(plan.ToAdd, ref)
		case rev != ref.RevisionFingerprint:
			plan.ToUpdate = append(plan.ToUpdate, ref)
		}
	}
	for id := range stored {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, managed := c.sources[sourceOf(id)]; !managed {
			continue
		}
		plan.ToDelete = append(plan.ToDelete, id)
	}

	sortRefs(plan.ToAdd)
	sortRefs(plan.ToUpdate)
	sort.Strings(plan.ToDelete)
	return plan, nil
}

// Run executes one full reconciliation pass. Only one run may be
// active; concurrent calls return domain.ErrSyncInProgress.
func (c *SyncCoordinator) Run(ctx context.Context) (*domain.SyncReport, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncInProgress
	}
	defer c.running.Store(false)

	runID := uuid.NewString()
	logger.Info("Starting sync run %s", runID)

	if err := c.checkEmbeddingSpace(ctx); err != nil {
		return nil, err
	}

	plan, err := c.Plan(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Sync plan: %d to add, %d to update, %d to delete",
		len(plan.ToAdd), len(plan.ToUpdate), len(plan.ToDelete))

	report := &syncCounters{}

	for _, id := range plan.ToDelete {
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageDeleting, Status: domain.StatusStarted})
		if err := c.store.Delete(ctx, id); err != nil {
			c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageDeleting, Status: domain.StatusFailed, Err: err})
			return nil, fmt.Errorf("delete %s: %w", id, err)
		}
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageDeleting, Status: domain.StatusCompleted})
		report.deleted.Add(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	work := make([]plannedDoc, 0, len(plan.ToAdd)+len(plan.ToUpdate))
	for _, ref := range plan.ToAdd {
		work = append(work, plannedDoc{ref: ref, update: false})
	}
	for _, ref := range plan.ToUpdate {
		work = append(work, plannedDoc{ref: ref, update: true})
	}

	for _, doc := range work {
		doc := doc
		g.Go(func() error {
			return c.processDocument(gctx, doc, report)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return report.report(), nil
}

type plannedDoc struct {
	ref    domain.DocumentRef
	update bool
}

// checkEmbeddingSpace forces a full re-index when the embedding model
// or dimensionality no longer matches the stored vectors.
func (c *SyncCoordinator) checkEmbeddingSpace(ctx context.Context) error {
	meta, err := c.store.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("read corpus metadata: %w", err)
	}

	current := driven.CorpusMetadata{
		EmbeddingModel: c.embedder.ModelName(),
		Dimensions:     c.embedder.Dimensions(),
	}
	if meta.EmbeddingModel != "" && meta != current {
		logger.Warn("Embedding model changed (%s/%d -> %s/%d), re-indexing corpus",
			meta.EmbeddingModel, meta.Dimensions, current.EmbeddingModel, current.Dimensions)
		if err := c.store.Reset(ctx); err != nil {
			return fmt.Errorf("reset corpus: %w", err)
		}
	}
	return c.store.SetMetadata(ctx, current)
}

// processDocument runs one document through the pipeline. Per-document
// failures are recorded and swallowed; store-level failures abort the
// whole run.
func (c *SyncCoordinator) processDocument(ctx context.Context, doc plannedDoc, report *syncCounters) error {
	ref := doc.ref
	id := ref.DocumentID()

	if !c.registry.Supported(ref.MIMEType) {
		logger.Debug("Skipping %s: unsupported format %s", id, ref.MIMEType)
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageExtracting, Status: domain.StatusSkipped})
		report.skipped.Add(1)
		return nil
	}

	err := c.indexDocument(ctx, ref)
	switch {
	case err == nil:
		if doc.update {
			report.updated.Add(1)
		} else {
			report.added.Add(1)
		}
		return nil

	case errors.Is(err, domain.ErrNotFound):
		// Vanished between List and Fetch. Treat as a deletion.
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageDeleting, Status: domain.StatusStarted})
		if derr := c.store.Delete(ctx, id); derr != nil {
			c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageDeleting, Status: domain.StatusFailed, Err: derr})
			return fmt.Errorf("delete vanished %s: %w", id, derr)
		}
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageDeleting, Status: domain.StatusCompleted})
		report.deleted.Add(1)
		return nil

	case isFatal(err):
		return fmt.Errorf("document %s: %w", id, err)

	default:
		logger.Warn("Document %s failed: %v", id, err)
		report.failed.Add(1)
		return nil
	}
}

// indexDocument is the strict per-document stage sequence.
func (c *SyncCoordinator) indexDocument(ctx context.Context, ref domain.DocumentRef) error {
	id := ref.DocumentID()
	src, ok := c.sources[ref.SourceID]
	if !ok {
		return fmt.Errorf("%w: unknown source %s", domain.ErrInvalidInput, ref.SourceID)
	}

	c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageExtracting, Status: domain.StatusStarted})
	body, err := src.Fetch(ctx, ref)
	if err != nil {
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageExtracting, Status: domain.StatusFailed, Err: err})
		return fmt.Errorf("fetch: %w", err)
	}
	content, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageExtracting, Status: domain.StatusFailed, Err: err})
		return fmt.Errorf("read content: %w", err)
	}

	segments, err := c.registry.Extract(ctx, id, ref.MIMEType, content)
	if err != nil {
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageExtracting, Status: domain.StatusFailed, Err: err})
		return fmt.Errorf("extract: %w", err)
	}
	c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageExtracting, Status: domain.StatusCompleted})

	c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageChunking, Status: domain.StatusStarted})
	chunks, err := c.chunker.Chunk(id, ref.RevisionFingerprint, segments, c.cfg.MaxTokens, c.cfg.OverlapTokens)
	if err != nil {
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageChunking, Status: domain.StatusFailed, Err: err})
		return fmt.Errorf("chunk: %w", err)
	}
	c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageChunking, Status: domain.StatusCompleted})

	vectors := make([]domain.IndexedVector, 0, len(chunks))
	if len(chunks) > 0 {
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageEmbedding, Status: domain.StatusStarted})
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}
		embeddings, err := c.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageEmbedding, Status: domain.StatusFailed, Err: err})
			return fmt.Errorf("embed: %w", err)
		}
		for i, ch := range chunks {
			vectors = append(vectors, domain.IndexedVector{
				ChunkID:          ch.ID,
				DocumentID:       ch.DocumentID,
				DocumentRevision: ch.DocumentRevision,
				Vector:           embeddings[i],
				Text:             ch.Text,
				Provenance:       ch.Provenance,
			})
		}
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageEmbedding, Status: domain.StatusCompleted})
	}

	c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageUpserting, Status: domain.StatusStarted})
	if err := c.store.Upsert(ctx, id, ref.RevisionFingerprint, vectors); err != nil {
		c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageUpserting, Status: domain.StatusFailed, Err: err})
		return fmt.Errorf("upsert: %w", err)
	}
	c.emit(domain.ProgressEvent{DocumentID: id, Stage: domain.StageUpserting, Status: domain.StatusCompleted})
	return nil
}

// emit delivers a progress event without ever blocking the pipeline.
func (c *SyncCoordinator) emit(ev domain.ProgressEvent) {
	select {
	case c.events <- ev:
	default:
	}
}

// isFatal reports whether an error must abort the whole run rather
// than fail a single document.
func isFatal(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable) ||
		errors.Is(err, domain.ErrStoreCorrupted) ||
		errors.Is(err, domain.ErrCredentialMissing) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// sourceOf extracts the source ID prefix from a document ID.
func sourceOf(documentID string) string {
	for i := 0; i < len(documentID); i++ {
		if documentID[i] == ':' {
			return documentID[:i]
		}
	}
	return ""
}

func sortRefs(refs []domain.DocumentRef) {
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].DocumentID() < refs[j].DocumentID()
	})
}

// syncCounters accumulates report counts across workers.
type syncCounters struct {
	added   atomic.Int64
	updated atomic.Int64
	deleted atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

func (s *syncCounters) report() *domain.SyncReport {
	return &domain.SyncReport{
		Added:   int(s.added.Load()),
		Updated: int(s.updated.Load()),
		Deleted: int(s.deleted.Load()),
		Skipped: int(s.skipped.Load()),
		Failed:  int(s.failed.Load()),
	}
}
