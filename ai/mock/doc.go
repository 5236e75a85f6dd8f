// Package mock provides test double implementations of AI service interfaces.
//
// The mocks allow tests to run without an embedding service and enable
// controlled, deterministic behavior: the default embedder derives a fixed
// vector from an FNV hash of the input text, so identical texts always
// embed identically.
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//
//	// Inject custom behavior
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("service unavailable")
//	}
//	provider := mock.NewMockProviderWithEmbedder(embedder)
package mock
