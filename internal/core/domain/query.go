package domain

// Citation references a retrieved passage that grounded an answer.
type Citation struct {
	// DocumentID is the cited document.
	DocumentID string

	// Provenance locates the cited passage.
	Provenance Provenance

	// Score is the retrieval similarity score.
	Score float64
}

// QueryResult is returned to the caller of Answer. Never persisted.
type QueryResult struct {
	// Answer is the generated answer text.
	Answer string

	// Ungrounded is true when retrieval returned no results and the
	// answer was generated without supporting context.
	Ungrounded bool

	// Citations reference the passages supplied to the generation call,
	// in descending score order. Empty when Ungrounded.
	Citations []Citation
}
