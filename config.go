package ragask

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/ragask/storage"
	"github.com/poiesic/ragask/storage/badger"
	"github.com/poiesic/ragask/storage/postgres"
	"github.com/poiesic/ragask/storage/supabase"
)

// Store kinds accepted by StoreConfig.
const (
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
	StoreBadger   = "badger"
)

// DefaultBadgerPath is where the local store lives when no path is given.
const DefaultBadgerPath = "./ragask_db"

// StoreConfig selects and configures the chunk store.
type StoreConfig struct {
	Kind string // supabase, postgres or badger
	URL  string // supabase project URL
	Key  string // supabase API key
	DSN  string // postgres connection string
	Path string // badger directory
}

// DefaultStoreConfig returns a supabase store config with no credentials.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{Kind: StoreSupabase}
}

// Validate checks that the settings the selected backend needs are present.
// An empty Kind selects supabase; an empty badger Path selects DefaultBadgerPath.
func (c *StoreConfig) Validate() error {
	c.Kind = strings.ToLower(strings.TrimSpace(c.Kind))
	if c.Kind == "" {
		c.Kind = StoreSupabase
	}

	switch c.Kind {
	case StoreSupabase:
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("%w: supabase URL is required", ErrInvalidStoreConfig)
		}
		if strings.TrimSpace(c.Key) == "" {
			return fmt.Errorf("%w: supabase key is required", ErrInvalidStoreConfig)
		}
	case StorePostgres:
		if strings.TrimSpace(c.DSN) == "" {
			return fmt.Errorf("%w: postgres DSN is required", ErrInvalidStoreConfig)
		}
	case StoreBadger:
		if strings.TrimSpace(c.Path) == "" {
			c.Path = DefaultBadgerPath
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreKind, c.Kind)
	}
	return nil
}

// open validates the config and opens the selected backend.
func (c *StoreConfig) open(ctx context.Context) (storage.ChunkStore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Kind {
	case StorePostgres:
		store, err := postgres.Open(ctx, c.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoreBadger:
		return badger.NewRepository(c.Path)
	default:
		store, err := supabase.New(c.URL, c.Key)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
