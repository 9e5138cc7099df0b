// Package ai provides abstractions for the AI services used to answer
// questions over a document corpus.
//
// Two capabilities are modelled:
//
//   - Embedder: turns text into a vector in the same space as the stored chunks
//   - Generator: produces a chat completion from an ordered list of messages
//
// AIProvider bundles both so callers can initialize and release them together.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible implementation built on langchaingo
//   - ai/mock: test doubles with injectable behavior and call counting
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and inspect calls.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "What is the objective of polygon")
//	answer, err := provider.Generator().Generate(ctx, []ai.Message{
//	    ai.SystemMessage("You are a helpful assistant."),
//	    ai.UserMessage("Hello"),
//	})
package ai
