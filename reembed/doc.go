// Package reembed recomputes the embeddings of stored chunks.
//
// It pages through a storage.ChunkRepository, embeds each batch with retry
// and exponential backoff, normalizes the vectors for cosine similarity and
// writes them back. The retry, normalization and progress helpers are also
// used by the ingestion pipeline.
package reembed
