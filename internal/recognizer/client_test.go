package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestPredictSendsLabelsAndDecodesEntities(t *testing.T) {
	var got predictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Fatalf("authorization=%q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entities":[{"label":"city","text":"Sofia","start":13,"end":18,"score":0.91}]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL + "/", Model: "gliner", Threshold: 0.4, APIToken: "secret"})
	entities, err := client.Predict(context.Background(), "ABC Capital, Sofia", []string{"city"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) != 1 || entities[0].Text != "Sofia" || entities[0].Label != "city" {
		t.Fatalf("entities=%+v", entities)
	}
	if got.Text != "ABC Capital, Sofia" || got.Model != "gliner" || got.Threshold != 0.4 {
		t.Fatalf("request=%+v", got)
	}
	if len(got.Labels) != 1 || got.Labels[0] != "city" {
		t.Fatalf("labels=%v", got.Labels)
	}
}

func TestPredictNon2xxIsError(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "https://ner.test"})
	calls := 0
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			return stubResponse(http.StatusInternalServerError, `{"error":"boom"}`), nil
		}),
	}

	_, err := client.Predict(context.Background(), "row", []string{"city"})
	if err == nil || !strings.Contains(err.Error(), "status=500") {
		t.Fatalf("err=%v", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want a single attempt", calls)
	}
}

func TestPredictMissingBaseURL(t *testing.T) {
	client := NewClient(ClientConfig{})
	if _, err := client.Predict(context.Background(), "row", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestDecodeEntities(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  []string
		isErr error
	}{
		{name: "wrapped", body: `{"entities":[{"label":"a","text":"x"}]}`, want: []string{"x"}},
		{name: "bare array", body: `[{"label":"a","text":"x"},{"label":"b","text":"y"}]`, want: []string{"x", "y"}},
		{name: "no entities", body: `{"entities":[]}`, want: nil},
		{name: "trailing comma", body: `{"entities":[{"label":"a","text":"x"},]}`, want: []string{"x"}},
		{name: "single quotes", body: `[{'label':'a','text':'x'}]`, want: []string{"x"}},
		{name: "empty", body: "  \n", isErr: ErrEmptyResponse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeEntities([]byte(tc.body))
			if tc.isErr != nil {
				if !errors.Is(err, tc.isErr) {
					t.Fatalf("err=%v want %v", err, tc.isErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %+v want %v", got, tc.want)
			}
			for i := range got {
				if got[i].Text != tc.want[i] {
					t.Fatalf("got[%d]=%q want %q", i, got[i].Text, tc.want[i])
				}
			}
		})
	}
}

func TestModelID(t *testing.T) {
	client := NewClient(ClientConfig{Model: "m", Threshold: 0.5})
	if id := client.ModelID(); id != "m@0.5" {
		t.Fatalf("model id=%q", id)
	}
}
