package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/ragask/core"
	"github.com/poiesic/ragask/storage"
)

const (
	matchDocumentsPath = "/rest/v1/rpc/match_documents"
	documentsPath      = "/rest/v1/documents?select=id"

	defaultTimeout = 30 * time.Second
)

// Store implements storage.ChunkStore through the Supabase PostgREST API.
type Store struct {
	baseURL string
	key     string
	client  *http.Client
	logger  *slog.Logger
}

var _ storage.ChunkStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) error {
		s.client = client
		return nil
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

type matchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchThreshold float32   `json:"match_threshold"`
	MatchCount     int       `json:"match_count"`
}

type matchRow struct {
	ID         int64   `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

type documentRow struct {
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	Embedding []float32 `json:"embedding"`
}

type insertedRow struct {
	ID int64 `json:"id"`
}

// New creates a store for the project at url authenticated with key.
func New(url, key string, opts ...Option) (*Store, error) {
	url = strings.TrimSuffix(strings.TrimSpace(url), "/")
	if url == "" {
		return nil, ErrURLRequired
	}
	if strings.TrimSpace(key) == "" {
		return nil, ErrKeyRequired
	}

	s := &Store{
		baseURL: url,
		key:     key,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default().With("component", "supabase-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FindSimilar invokes the match_documents RPC. Rows are returned in the
// order PostgREST produced them.
func (s *Store) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	var rows []matchRow
	err := s.post(ctx, matchDocumentsPath, matchRequest{
		QueryEmbedding: vector,
		MatchThreshold: minSimilarity,
		MatchCount:     limit,
	}, nil, &rows)
	if err != nil {
		return nil, err
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

// AddChunks inserts the chunks into the documents table in one request and
// sets the IDs assigned by the database.
func (s *Store) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}
	docs := make([]documentRow, 0, len(chunks))
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
		docs = append(docs, documentRow{
			Content:   chunk.Content,
			Source:    chunk.Source,
			Embedding: chunk.Vector,
		})
	}

	var inserted []insertedRow
	headers := map[string]string{"Prefer": "return=representation"}
	if err := s.post(ctx, documentsPath, docs, headers, &inserted); err != nil {
		return nil, err
	}
	if len(inserted) != len(chunks) {
		return nil, fmt.Errorf("%w: inserted %d rows, expected %d", storage.ErrSerializationFailed, len(inserted), len(chunks))
	}

	now := time.Now().UTC()
	for i, chunk := range chunks {
		chunk.Id = core.ID(inserted[i].ID)
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = now
		}
	}
	return chunks, nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Store) post(ctx context.Context, path string, body any, headers map[string]string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		s.logger.Debug("request failed", "path", path, "status", resp.StatusCode, "code", apiErr.Code)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return nil
}
