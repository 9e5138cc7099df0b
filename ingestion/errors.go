package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a chunk store is not provided.
	ErrStoreRequired = errors.New("chunk store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidChunkSize is returned when the chunk size is not positive or
	// the overlap is not smaller than the chunk size.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrEmbeddingFailed wraps embedding errors for a batch of chunks.
	ErrEmbeddingFailed = errors.New("chunk embedding failed")

	// ErrStoreFailed wraps errors writing a batch of chunks to the store.
	ErrStoreFailed = errors.New("chunk store failed")

	// ErrInvalidBaseURL is returned when a crawl starts from a URL that is
	// not absolute http or https.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrFetchFailed is returned when the base page of a crawl cannot be fetched.
	ErrFetchFailed = errors.New("page fetch failed")
)
