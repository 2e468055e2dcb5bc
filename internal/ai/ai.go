package ai

import "context"

// TextGenerator produces text from a system instruction and a user message.
type TextGenerator interface {
	GenerateContent(ctx context.Context, systemPrompt, message string) (string, error)
	Model() string
}

// Embedder turns texts into dense vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts ...string) ([][]float32, error)
	Model() string
}
