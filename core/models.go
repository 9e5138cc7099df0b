package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored chunks.
// Locally stored chunks use content-based IDs; remote stores assign their own.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the ID of a chunk from its source and content.
// The same text ingested from two different sources yields two chunks.
func ChunkID(source, content string) ID {
	return IDFromContent(source + "\x00" + content)
}

// Chunk is a piece of a source document stored alongside its embedding.
type Chunk struct {
	Id         ID
	Content    string
	Source     string    // File path, URL or other origin of the text
	Vector     []float32 // Embedding vector (empty until embedded)
	InsertedAt time.Time // When the chunk was first stored
	UpdatedAt  time.Time // When the chunk was last updated
}

// SearchResult represents a retrieved chunk and its similarity to the query vector.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}
