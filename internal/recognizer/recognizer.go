// Package recognizer wraps the named-entity-recognition model used to pull
// contact fields out of registry rows.
package recognizer

import (
	"context"
	"errors"
)

var ErrEmptyResponse = errors.New("recognizer: empty response")

// Entity is one labeled span returned by the model.
type Entity struct {
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// Recognizer returns the spans of text that match any of labels. Labels are
// natural-language descriptions; results may carry labels outside the given
// set and may be empty.
type Recognizer interface {
	Predict(ctx context.Context, text string, labels []string) ([]Entity, error)
}

// Func adapts a function to Recognizer.
type Func func(ctx context.Context, text string, labels []string) ([]Entity, error)

func (f Func) Predict(ctx context.Context, text string, labels []string) ([]Entity, error) {
	return f(ctx, text, labels)
}
