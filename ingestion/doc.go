// Package ingestion fills a chunk store with documentation.
//
// Documents come from local files (LoadFile handles plain text and PDF) or
// from a documentation site walked by Crawler. The Pipeline splits each
// document into overlapping chunks, embeds them in batches on a worker pool
// and writes them to a storage.ChunkStore, where the rag package retrieves
// them at query time.
package ingestion
