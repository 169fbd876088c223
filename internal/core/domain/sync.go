package domain

// SyncPlan is the computed diff between a source listing and the index
// store's revision map. It is consumed once by the sync coordinator and
// discarded, never persisted.
type SyncPlan struct {
	// ToAdd are documents present in the source but absent from the store.
	ToAdd []DocumentRef

	// ToUpdate are documents whose revision fingerprint differs from the
	// stored revision. Updates are always full re-extract/re-chunk/
	// re-embed/re-upsert, never a partial patch.
	ToUpdate []DocumentRef

	// ToDelete are document IDs present in the store but absent from the
	// source.
	ToDelete []string
}

// Empty reports whether the plan requires no work.
func (p *SyncPlan) Empty() bool {
	return len(p.ToAdd) == 0 && len(p.ToUpdate) == 0 && len(p.ToDelete) == 0
}

// SyncReport summarises a completed sync run.
type SyncReport struct {
	// Added is the count of newly indexed documents.
	Added int

	// Updated is the count of re-indexed documents.
	Updated int

	// Deleted is the count of documents removed from the index.
	Deleted int

	// Skipped is the count of documents skipped (unsupported format).
	Skipped int

	// Failed is the count of documents that failed extraction, embedding
	// or upsert. Their index state is untouched from before the run.
	Failed int
}

// SyncStage names a step of the per-document pipeline.
type SyncStage string

// Pipeline stages, in strict per-document order.
const (
	StageExtracting SyncStage = "extracting"
	StageChunking   SyncStage = "chunking"
	StageEmbedding  SyncStage = "embedding"
	StageUpserting  SyncStage = "upserting"
	StageDeleting   SyncStage = "deleting"
)

// SyncStatus is the outcome of a stage transition.
type SyncStatus string

// Stage outcomes.
const (
	StatusStarted   SyncStatus = "started"
	StatusCompleted SyncStatus = "completed"
	StatusSkipped   SyncStatus = "skipped"
	StatusFailed    SyncStatus = "failed"
)

// ProgressEvent is one discrete step of sync progress, consumable by any
// observer. The pipeline has no direct UI coupling.
type ProgressEvent struct {
	// DocumentID is the document the event concerns.
	DocumentID string

	// Stage is the pipeline step.
	Stage SyncStage

	// Status is the step outcome.
	Status SyncStatus

	// Err carries the failure when Status is StatusFailed.
	Err error
}
