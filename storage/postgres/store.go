// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/ragask/core"
	"github.com/poiesic/ragask/storage"
)

const (
	// matchDocumentsQuery calls the similarity function installed by EnsureSchema
	// (or by a Supabase project following the pgvector guide).
	matchDocumentsQuery = `SELECT id, content, similarity FROM match_documents($1::vector, $2, $3)`

	insertDocumentQuery = `INSERT INTO documents (content, source, embedding) VALUES ($1, $2, $3::vector) RETURNING id`

	// pq error code for undefined_function.
	codeUndefinedFunction = "42883"
)

// Store implements storage.ChunkStore against a PostgreSQL database with
// the pgvector extension.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ storage.ChunkStore = (*Store)(nil)

// matchRow is one row returned by match_documents.
type matchRow struct {
	ID         int64   `db:"id"`
	Content    string  `db:"content"`
	Similarity float64 `db:"similarity"`
}

// Open connects to the database at dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewStore(db), nil
}

// NewStore wraps an existing connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "postgres-store"),
	}
}

// FindSimilar calls match_documents with the query vector, threshold and count.
// Rows are returned in the order produced by the function.
func (s *Store) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	var rows []matchRow
	err := s.db.SelectContext(ctx, &rows, matchDocumentsQuery, pgvector.NewVector(vector), minSimilarity, limit)
	if err != nil {
		return nil, mapError(err)
	}

	results := make([]*core.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, &core.SearchResult{
			Chunk: &core.Chunk{
				Id:      core.ID(row.ID),
				Content: row.Content,
			},
			Score: float32(row.Similarity),
		})
	}

	s.logger.Debug("match_documents returned", "count", len(results))
	return results, nil
}

// AddChunks inserts the chunks in a single transaction and sets the
// database-assigned IDs on them.
func (s *Store) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, chunk := range chunks {
		var id int64
		err := tx.QueryRowxContext(ctx, insertDocumentQuery,
			chunk.Content, chunk.Source, pgvector.NewVector(chunk.Vector),
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert document: %w", mapError(err))
		}
		chunk.Id = core.ID(id)
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = now
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit documents: %w", err)
	}

	s.logger.Debug("inserted documents", "count", len(chunks))
	return chunks, nil
}

// EnsureSchema installs the vector extension, the documents table and the
// match_documents function for embeddings of the given dimension.
func (s *Store) EnsureSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", storage.ErrInvalidQuery)
	}
	for _, stmt := range SchemaStatements(dimensions) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	s.logger.Info("schema ready", "dimensions", dimensions)
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaStatements returns the DDL applied by EnsureSchema.
func SchemaStatements(dimensions int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
	id bigserial PRIMARY KEY,
	content text NOT NULL,
	source text NOT NULL DEFAULT '',
	embedding vector(%d)
)`, dimensions),
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION match_documents (
	query_embedding vector(%d),
	match_threshold float,
	match_count int
)
RETURNS TABLE (id bigint, content text, similarity float)
LANGUAGE sql STABLE
AS $$
	SELECT documents.id, documents.content, 1 - (documents.embedding <=> query_embedding) AS similarity
	FROM documents
	WHERE 1 - (documents.embedding <=> query_embedding) >= match_threshold
	ORDER BY documents.embedding <=> query_embedding
	LIMIT match_count;
$$`, dimensions),
	}
}

func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeUndefinedFunction {
		return fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
	}
	return err
}
