// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder returns deterministic unit vectors derived from an FNV hash
// of the text. MockGenerator echoes the last message and records every call.
// Both accept injected functions to simulate failures.
//
//	provider := mock.NewMockProvider()
//	provider.GetMockGenerator().WithGenerateFunc(func(ctx context.Context, msgs []core.Message, opts ai.GenerateOptions) (string, error) {
//	    return "", errors.New("model offline")
//	})
package mock
