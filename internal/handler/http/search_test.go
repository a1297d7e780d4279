package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelbridge/searchsync/internal/catalog"
	"github.com/modelbridge/searchsync/internal/domain"
	"github.com/modelbridge/searchsync/internal/engine/memory"
	"github.com/modelbridge/searchsync/internal/service"
	"github.com/modelbridge/searchsync/pkg/health"
	"github.com/modelbridge/searchsync/pkg/middleware"
)

// indexBackedStore hydrates products straight from the in-memory engine so
// handler tests need no database.
type indexBackedStore struct {
	engine *memory.Engine
}

func (s *indexBackedStore) ModelsByKeys(ctx context.Context, b *domain.Builder, keys []string) ([]domain.Searchable, error) {
	var models []domain.Searchable
	for _, key := range keys {
		res, err := s.engine.Search(ctx, domain.NewBuilder(&catalog.Product{}, "").Where("id", key))
		if err != nil {
			return nil, err
		}
		for _, hit := range res.Hits {
			raw, err := json.Marshal(hit.Source)
			if err != nil {
				return nil, err
			}
			var p catalog.Product
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			models = append(models, &p)
		}
	}
	return models, nil
}

func (s *indexBackedStore) EachBatch(ctx context.Context, size int, fn func([]domain.Searchable) error) error {
	res, err := s.engine.Search(ctx, domain.NewBuilder(&catalog.Product{}, ""))
	if err != nil {
		return err
	}
	models, err := s.ModelsByKeys(ctx, nil, res.IDs())
	if err != nil {
		return err
	}
	for start := 0; start < len(models); start += size {
		end := start + size
		if end > len(models) {
			end = len(models)
		}
		if err := fn(models[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func newServerTestFixture(t *testing.T) (http.Handler, *memory.Engine) {
	t.Helper()
	eng := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &indexBackedStore{engine: eng}
	svc := service.NewSyncService(eng, store, store, logger)
	router := NewRouter(svc, health.NewHandler(), middleware.DefaultCORSConfig(), logger)
	return router, eng
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func indexTestProduct(t *testing.T, router http.Handler, id, name, status string) {
	t.Helper()
	body := `{"id":"` + id + `","name":"` + name + `","status":"` + status + `","base_price":1000,"currency":"USD"}`
	rec := doRequest(t, router, http.MethodPost, "/api/v1/search/index", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestIndexProduct_ValidationError(t *testing.T) {
	router, _ := newServerTestFixture(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/search/index", `{"name":"missing id"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
}

func TestIndexProduct_RequiresJSONContentType(t *testing.T) {
	router, _ := newServerTestFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/index", strings.NewReader(`id=p1`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestIndexProduct_MalformedBody(t *testing.T) {
	router, _ := newServerTestFixture(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/search/index", `{"id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_ReturnsIndexedProducts(t *testing.T) {
	router, _ := newServerTestFixture(t)
	indexTestProduct(t, router, "p1", "Blue Widget", "active")
	indexTestProduct(t, router, "p2", "Red Gadget", "active")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/search?q=widget", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["total"])

	products, ok := data["products"].([]any)
	require.True(t, ok)
	require.Len(t, products, 1)
	first, ok := products[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "p1", first["id"])
}

func TestSearch_FiltersByStatus(t *testing.T) {
	router, _ := newServerTestFixture(t)
	indexTestProduct(t, router, "p1", "Widget", "active")
	indexTestProduct(t, router, "p2", "Widget", "inactive")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/search?status=inactive", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(1), data["total"])
}

func TestSearch_InvalidSort(t *testing.T) {
	router, _ := newServerTestFixture(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/search?sort=price", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkIndex(t *testing.T) {
	router, eng := newServerTestFixture(t)

	body := `{"products":[{"id":"p1","name":"one"},{"id":"p2","name":"two"}]}`
	rec := doRequest(t, router, http.MethodPost, "/api/v1/search/bulk", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res, err := eng.Search(context.Background(), domain.NewBuilder(&catalog.Product{}, ""))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total())
}

func TestBulkIndex_EmptyProductsRejected(t *testing.T) {
	router, _ := newServerTestFixture(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/search/bulk", `{"products":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteProduct(t *testing.T) {
	router, eng := newServerTestFixture(t)
	indexTestProduct(t, router, "p1", "Widget", "active")

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/search/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	res, err := eng.Search(context.Background(), domain.NewBuilder(&catalog.Product{}, ""))
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestReindex_Accepted(t *testing.T) {
	router, _ := newServerTestFixture(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/search/reindex", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// The reindex goroutine logs through a discard handler; give it a moment
	// so the race detector sees it finish cleanly.
	time.Sleep(10 * time.Millisecond)
}

func TestFlush(t *testing.T) {
	router, eng := newServerTestFixture(t)
	indexTestProduct(t, router, "p1", "Widget", "active")

	rec := doRequest(t, router, http.MethodPost, "/api/v1/search/flush", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res, err := eng.Search(context.Background(), domain.NewBuilder(&catalog.Product{}, ""))
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestSchemaLifecycle(t *testing.T) {
	router, _ := newServerTestFixture(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/search/schema", "")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/search/schema/regen", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/search/schema", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newServerTestFixture(t)

	rec := doRequest(t, router, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
