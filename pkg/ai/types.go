package ai

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when a provider is built without a credential.
var ErrMissingAPIKey = errors.New("generative api key is required")

// TextGenerator produces free text from a system and a user prompt.
type TextGenerator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Provider() string
}

// Narrative is the outcome of a narrative request: either generated text or
// the reason it is unavailable.
type Narrative struct {
	text   string
	reason string
}

// Generated wraps text returned by the language model.
func Generated(text string) Narrative {
	return Narrative{text: text}
}

// Unavailable records why no text could be generated.
func Unavailable(reason string) Narrative {
	return Narrative{reason: reason}
}

// Available reports whether the narrative came from the language model.
func (n Narrative) Available() bool {
	return n.reason == ""
}

// Reason is empty for generated narratives.
func (n Narrative) Reason() string {
	return n.reason
}

// Text collapses the narrative to what the patient sees.
func (n Narrative) Text() string {
	if !n.Available() {
		return FallbackNarrative
	}
	return n.text
}
