// Package answer turns a query plus candidate SOPs into a generated reply.
package answer

import "context"

// Generator produces a free-text answer from a fully constructed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
