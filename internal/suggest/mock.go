package suggest

import (
	"context"
	"fmt"
	"strings"
)

// Mock is a deterministic, offline generator for tests and demos. It answers
// every prompt with a numbered list derived from the prompt's first words.
type Mock struct{}

func (Mock) Name() string {
	return "mock"
}

func (Mock) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	words := strings.Fields(prompt)
	if len(words) > 4 {
		words = words[:4]
	}
	topic := strings.Join(words, " ")
	var b strings.Builder
	for i := 1; i <= MaxSuggestions; i++ {
		fmt.Fprintf(&b, "%d. Mock suggestion %d (%s)\n", i, i, topic)
	}
	return b.String(), nil
}
