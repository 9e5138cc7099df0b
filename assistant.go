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

package ragask

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/ragask/ai"
	"github.com/poiesic/ragask/ai/openai"
	"github.com/poiesic/ragask/ingestion"
	"github.com/poiesic/ragask/rag"
	"github.com/poiesic/ragask/reembed"
	"github.com/poiesic/ragask/storage"
)

const connectTimeout = 10 * time.Second

// Assistant owns the chunk store and AI provider and builds the components
// that use them.
type Assistant struct {
	store    storage.ChunkStore
	provider ai.AIProvider
	logger   *slog.Logger
}

// Option configures an Assistant.
type Option func(*options)

type options struct {
	aiConfig    *ai.Config
	storeConfig *StoreConfig
	store       storage.ChunkStore
	provider    ai.AIProvider
}

// WithAIConfig sets the OpenAI-compatible endpoint configuration.
func WithAIConfig(config *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = config
	}
}

// WithStoreConfig selects the chunk store to open.
func WithStoreConfig(config *StoreConfig) Option {
	return func(o *options) {
		o.storeConfig = config
	}
}

// WithStore uses an already open store instead of opening one from the
// store config. The Assistant takes ownership and closes it.
func WithStore(store storage.ChunkStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithProvider uses the given AI provider instead of creating an OpenAI one.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// New opens the configured store and AI provider.
func New(opts ...Option) (*Assistant, error) {
	o := &options{
		aiConfig:    ai.DefaultConfig(),
		storeConfig: DefaultStoreConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}

	provider := o.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(o.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	store := o.store
	if store == nil {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		var err error
		store, err = o.storeConfig.open(ctx)
		if err != nil {
			provider.Close()
			return nil, err
		}
	}

	return &Assistant{
		store:    store,
		provider: provider,
		logger:   slog.Default().With("component", "assistant"),
	}, nil
}

// Close closes the provider and the store.
func (a *Assistant) Close() error {
	if err := a.provider.Close(); err != nil {
		a.logger.Error("error closing AI provider", "err", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

func (a *Assistant) Store() storage.ChunkStore {
	return a.store
}

func (a *Assistant) Provider() ai.AIProvider {
	return a.provider
}

// Repository returns the store as a ChunkRepository when it is one.
func (a *Assistant) Repository() (storage.ChunkRepository, error) {
	repo, ok := a.store.(storage.ChunkRepository)
	if !ok {
		return nil, ErrNotRepository
	}
	return repo, nil
}

func (a *Assistant) NewAnswerer(opts ...rag.Option) (*rag.Answerer, error) {
	return rag.NewAnswerer(a.provider.Embedder(), a.store, a.provider.Generator(), opts...)
}

func (a *Assistant) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(a.store, a.provider.Embedder(), opts...)
}

// NewReembedder re-embeds the store's chunks. Only repository stores qualify.
func (a *Assistant) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	repo, err := a.Repository()
	if err != nil {
		return nil, err
	}
	return reembed.NewReembedder(repo, a.provider.Embedder(), config, progress), nil
}

type schemaInstaller interface {
	EnsureSchema(ctx context.Context, dimensions int) error
}

// InitSchema installs the documents table and match_documents function.
func (a *Assistant) InitSchema(ctx context.Context, dimensions int) error {
	installer, ok := a.store.(schemaInstaller)
	if !ok {
		return ErrSchemaUnsupported
	}
	return installer.EnsureSchema(ctx, dimensions)
}
