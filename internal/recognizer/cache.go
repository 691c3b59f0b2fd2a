package recognizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"
)

// Store persists opaque recognizer payloads by key.
type Store interface {
	GetPrediction(ctx context.Context, key string) ([]byte, bool, error)
	PutPrediction(ctx context.Context, key string, payload []byte) error
}

// Cached memoizes Predict results of next in store. A corrupt cache entry
// is treated as a miss.
type Cached struct {
	next    Recognizer
	store   Store
	modelID string
}

func NewCached(next Recognizer, store Store, modelID string) *Cached {
	return &Cached{next: next, store: store, modelID: modelID}
}

func (c *Cached) Predict(ctx context.Context, text string, labels []string) ([]Entity, error) {
	key := CacheKey(c.modelID, labels, text)

	payload, ok, err := c.store.GetPrediction(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		var cached []Entity
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	}

	entities, err := c.next.Predict(ctx, text, labels)
	if err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []Entity{}
	}
	blob, err := json.Marshal(entities)
	if err != nil {
		return nil, err
	}
	if err := c.store.PutPrediction(ctx, key, blob); err != nil {
		return nil, err
	}
	return entities, nil
}

// CacheKey hashes model, labels and text into a hex sha256.
func CacheKey(modelID string, labels []string, text string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, modelID)
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, strings.Join(labels, "\x1f"))
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, text)
	return hex.EncodeToString(h.Sum(nil))
}
