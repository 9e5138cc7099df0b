// Package ragask answers questions about a documentation corpus with
// retrieval-augmented generation.
//
// An Assistant ties a chunk store (Supabase, Postgres with pgvector, or a
// local badger directory) to an OpenAI-compatible provider:
//
//	a, err := ragask.New(
//		ragask.WithAIConfig(ai.NewConfig(ai.WithAPIKey(key))),
//		ragask.WithStoreConfig(&ragask.StoreConfig{Kind: ragask.StoreBadger, Path: "./docs_db"}),
//	)
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//
//	answerer, err := a.NewAnswerer()
//	answer, err := answerer.Answer(ctx, "What is the objective of polygon")
//
// The same Assistant builds the ingestion pipeline that fills the store
// and the reembedder that refreshes vectors after a model change.
package ragask
