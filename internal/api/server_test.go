package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fscner/internal"
	"fscner/internal/config"
	"fscner/internal/pipeline"
	"fscner/internal/recognizer"
	"fscner/internal/storage"
	"fscner/internal/taxonomy"
)

func newTestRouter(t *testing.T, rec recognizer.Recognizer, db *storage.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	proc := pipeline.NewProcessingService(pipeline.NewBuilder(rec, taxonomy.Default(), nil), db, config.Config{Workers: 2}, nil)
	return NewServer(proc, db, nil).Router()
}

func cityRecognizer() recognizer.Recognizer {
	tax := taxonomy.Default()
	return recognizer.Func(func(_ context.Context, text string, labels []string) ([]recognizer.Entity, error) {
		if len(labels) == 1 {
			return []recognizer.Entity{{Label: labels[0], Text: "info@abc.web.bg"}}, nil
		}
		if strings.Contains(text, "Sofia") {
			return []recognizer.Entity{{Label: tax.Labels()[3], Text: "Sofia"}}, nil
		}
		return nil, nil
	})
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := doJSON(newTestRouter(t, cityRecognizer(), nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestExtract(t *testing.T) {
	w := doJSON(newTestRouter(t, cityRecognizer(), nil), http.MethodPost, "/v1/extract", `{"text":"ABC Capital, Sofia 1000"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "ABC Capital", got["company_name"])
	assert.Equal(t, "Sofia", got["city"])
	assert.Equal(t, "1000", got["postal_code"])
	assert.Equal(t, []any{"info@abc.bg"}, got["emails"])
	assert.Equal(t, internal.NoPhones, got["phone_numbers"])
	assert.Equal(t, internal.NoCountry, got["country"])
}

func TestExtractBadRequest(t *testing.T) {
	r := newTestRouter(t, cityRecognizer(), nil)
	for _, body := range []string{``, `{}`, `{"text":"   "}`, `not json`} {
		w := doJSON(r, http.MethodPost, "/v1/extract", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestExtractRecognizerFailure(t *testing.T) {
	rec := recognizer.Func(func(context.Context, string, []string) ([]recognizer.Entity, error) {
		return nil, errors.New("connection refused")
	})
	w := doJSON(newTestRouter(t, rec, nil), http.MethodPost, "/v1/extract", `{"text":"ABC"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestExtractBatch(t *testing.T) {
	r := newTestRouter(t, cityRecognizer(), nil)
	w := doJSON(r, http.MethodPost, "/v1/extract/batch", `{"rows":["ABC Capital, Sofia","Balkan Invest, Plovdiv"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got struct {
		Companies []map[string]any `json:"companies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Companies, 2)
	assert.Equal(t, "ABC Capital", got.Companies[0]["company_name"])
	assert.Equal(t, "Sofia", got.Companies[0]["city"])
	assert.Equal(t, "Balkan Invest", got.Companies[1]["company_name"])
	assert.Equal(t, internal.NoCity, got.Companies[1]["city"])

	w = doJSON(r, http.MethodPost, "/v1/extract/batch", `{"rows":["ok",""]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(r, http.MethodPost, "/v1/extract/batch", `{"text":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRuns(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.InsertRun(internal.RunRow{ID: storage.NewRunID(), Source: "fixture", Status: internal.RunStarted}))

	w := doJSON(newTestRouter(t, cityRecognizer(), db), http.MethodGet, "/v1/runs?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Runs []internal.RunRow `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Runs, 1)
	assert.Equal(t, "fixture", got.Runs[0].Source)

	w = doJSON(newTestRouter(t, cityRecognizer(), nil), http.MethodGet, "/v1/runs", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
