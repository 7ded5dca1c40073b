package ai

import (
	"context"
	"errors"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"
)

type stubMessager struct {
	params anthropic.MessageNewParams
	resp   *anthropic.Message
	err    error
}

func (s *stubMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	s.params = params
	return s.resp, s.err
}

func TestAnthropicGeneratorJoinsTextBlocks(t *testing.T) {
	messager := &stubMessager{resp: &anthropic.Message{Content: []anthropic.ContentBlockUnion{
		{Type: "text", Text: "Your risk is low. "},
		{Type: "tool_use"},
		{Type: "text", Text: "Keep up the exercise."},
	}}}
	generator := newAnthropicGenerator(messager, AnthropicConfig{Model: "claude-test"})

	text, err := generator.Complete(context.Background(), "be kind", "explain")
	require.NoError(t, err)
	require.Equal(t, "Your risk is low. Keep up the exercise.", text)
	require.Equal(t, anthropic.Model("claude-test"), messager.params.Model)
	require.Equal(t, int64(400), messager.params.MaxTokens)
	require.Len(t, messager.params.System, 1)
	require.Equal(t, "be kind", messager.params.System[0].Text)
}

func TestAnthropicGeneratorWrapsErrors(t *testing.T) {
	generator := newAnthropicGenerator(&stubMessager{err: errors.New("overloaded")}, AnthropicConfig{})

	_, err := generator.Complete(context.Background(), "", "explain")
	require.ErrorContains(t, err, "overloaded")
}
