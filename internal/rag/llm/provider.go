package llm

import "context"

// Provider generates a grounded answer from the question and the retrieved
// chunks. Implementations must instruct the model to answer only from the
// supplied context and to say so when the context does not contain the
// answer.
type Provider interface {
	Generate(ctx context.Context, question string, matches []string, temperature float64) (string, error)
}
