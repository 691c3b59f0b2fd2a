package recognizer

import (
	"context"
	"errors"
	"testing"

	"fscner/internal/config"
)

type memStore struct {
	data map[string][]byte
	puts int
}

func (m *memStore) GetPrediction(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) PutPrediction(_ context.Context, key string, payload []byte) error {
	m.data[key] = payload
	m.puts++
	return nil
}

func TestCachedServesRepeatCallsFromStore(t *testing.T) {
	calls := 0
	next := Func(func(_ context.Context, text string, labels []string) ([]Entity, error) {
		calls++
		return []Entity{{Label: labels[0], Text: text}}, nil
	})
	store := &memStore{data: map[string][]byte{}}
	cached := NewCached(next, store, "m@0.5")

	for i := 0; i < 3; i++ {
		got, err := cached.Predict(context.Background(), "Sofia", []string{"city"})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Text != "Sofia" {
			t.Fatalf("got=%+v", got)
		}
	}
	if calls != 1 || store.puts != 1 {
		t.Fatalf("calls=%d puts=%d", calls, store.puts)
	}

	if _, err := cached.Predict(context.Background(), "Sofia", []string{"country"}); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("different labels must miss the cache, calls=%d", calls)
	}
}

func TestCachedCorruptEntryIsMiss(t *testing.T) {
	next := Func(func(context.Context, string, []string) ([]Entity, error) {
		return nil, nil
	})
	store := &memStore{data: map[string][]byte{}}
	key := CacheKey("m", []string{"city"}, "row")
	store.data[key] = []byte("{not json")

	got, err := NewCached(next, store, "m").Predict(context.Background(), "row", []string{"city"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got=%+v", got)
	}
	if string(store.data[key]) != "[]" {
		t.Fatalf("stored=%s", store.data[key])
	}
}

func TestCachedPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	next := Func(func(context.Context, string, []string) ([]Entity, error) {
		return nil, boom
	})
	store := &memStore{data: map[string][]byte{}}

	_, err := NewCached(next, store, "m").Predict(context.Background(), "row", []string{"city"})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if store.puts != 0 {
		t.Fatal("failed predictions must not be cached")
	}
}

func TestCacheKeyDependsOnAllParts(t *testing.T) {
	base := CacheKey("m", []string{"a", "b"}, "text")
	for _, other := range []string{
		CacheKey("n", []string{"a", "b"}, "text"),
		CacheKey("m", []string{"b", "a"}, "text"),
		CacheKey("m", []string{"a", "b"}, "text2"),
	} {
		if other == base {
			t.Fatal("expected distinct keys")
		}
	}
	if len(base) != 64 {
		t.Fatalf("len=%d", len(base))
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Config{NERBaseURL: "http://ner.test", NERModel: "m", NERThreshold: 0.5}
	if _, ok := FromConfig(cfg, nil).(*Client); !ok {
		t.Fatal("expected bare client without a store")
	}
	cached, ok := FromConfig(cfg, &memStore{data: map[string][]byte{}}).(*Cached)
	if !ok {
		t.Fatal("expected cached recognizer")
	}
	if cached.modelID != "m@0.5" {
		t.Fatalf("model id=%q", cached.modelID)
	}
}
