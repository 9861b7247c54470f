package domain

import "errors"

// Sentinel errors for the pipeline. Callers match them with errors.Is.
var (
	// ErrCorpusFormat reports an unreadable dataset or a record missing a
	// question or an answer.
	ErrCorpusFormat = errors.New("corpus format invalid")

	// ErrEmbeddingUnavailable reports that the embedding model cannot be
	// reached. Fatal at startup: no answer can be produced without it.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")

	// ErrIndexNotFound reports that no persisted index exists at the path.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt reports that the persisted index cannot be parsed.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrIndexInconsistent reports a dimension mismatch that a rebuild did
	// not resolve. Fatal: rebuilding is attempted at most once.
	ErrIndexInconsistent = errors.New("index inconsistent after rebuild")

	// ErrInvalidArgument reports caller misuse, such as a non-positive topK.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRetrieval reports a failed embed-and-search step for a question.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration reports a failed or timed out language model call.
	ErrGeneration = errors.New("generation failed")
)
