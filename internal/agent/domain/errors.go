package domain

import "errors"

// Pipeline error taxonomy. Embedding and classification failures are
// recoverable per email (the email is skipped with the error logged and
// retried on the next pass). Index corruption and duplicate-key insertions
// are fatal: the first requires a rebuild, the second means the
// insert-after-query discipline was broken.
var (
	ErrEmbeddingUnavailable      = errors.New("embedding service unavailable")
	ErrClassificationUnavailable = errors.New("classification service unavailable")
	ErrIndexCorrupt              = errors.New("similarity index corrupt")
	ErrDuplicateKey              = errors.New("id already present in similarity index")
	ErrActionDispatchFailed      = errors.New("action dispatch failed")
)
