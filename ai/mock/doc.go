// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder, MockGenerator and MockProvider stand in for the real services
// so tests run without network access and with deterministic output.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider().(*mock.MockProvider)
//	provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, msgs []ai.Message) (string, error) {
//	    return "Polygon is a scaling solution.", nil
//	}
//
//	// Check call counts
//	count := provider.GetMockEmbedder().CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: returns deterministic unit vectors derived from a text hash
//   - MockGenerator: returns DefaultAnswer and records the messages it received
package mock
