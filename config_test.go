package ragask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		config   StoreConfig
		wantErr  error
		wantKind string
	}{
		{name: "supabase", config: StoreConfig{Kind: "supabase", URL: "https://x.supabase.co", Key: "anon"}, wantKind: StoreSupabase},
		{name: "empty kind defaults to supabase", config: StoreConfig{URL: "https://x.supabase.co", Key: "anon"}, wantKind: StoreSupabase},
		{name: "kind is case insensitive", config: StoreConfig{Kind: " Postgres ", DSN: "postgres://localhost/docs"}, wantKind: StorePostgres},
		{name: "supabase missing url", config: StoreConfig{Kind: "supabase", Key: "anon"}, wantErr: ErrInvalidStoreConfig},
		{name: "supabase missing key", config: StoreConfig{Kind: "supabase", URL: "https://x.supabase.co"}, wantErr: ErrInvalidStoreConfig},
		{name: "postgres missing dsn", config: StoreConfig{Kind: "postgres"}, wantErr: ErrInvalidStoreConfig},
		{name: "badger", config: StoreConfig{Kind: "badger", Path: "/tmp/docs"}, wantKind: StoreBadger},
		{name: "unknown", config: StoreConfig{Kind: "sqlite"}, wantErr: ErrUnknownStoreKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, tt.config.Kind)
		})
	}
}

func TestStoreConfig_BadgerDefaultPath(t *testing.T) {
	config := StoreConfig{Kind: StoreBadger}
	require.NoError(t, config.Validate())
	assert.Equal(t, DefaultBadgerPath, config.Path)
}

func TestDefaultStoreConfig(t *testing.T) {
	config := DefaultStoreConfig()
	assert.Equal(t, StoreSupabase, config.Kind)
	assert.ErrorIs(t, config.Validate(), ErrInvalidStoreConfig, "credentials must be supplied")
}
