package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelbridge/searchsync/internal/catalog"
	"github.com/modelbridge/searchsync/internal/domain"
	"github.com/modelbridge/searchsync/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CatalogClient pages through the upstream catalog service's product listing.
// It implements domain.Lister so a full reindex can stream the remote catalog
// without a local database.
type CatalogClient struct {
	httpClient HTTPDoer
	baseURL    string
}

var (
	_ domain.Lister   = (*CatalogClient)(nil)
	_ domain.Hydrator = (*CatalogClient)(nil)
)

// NewCatalogClient creates a client for the catalog service at baseURL.
func NewCatalogClient(httpClient HTTPDoer, baseURL string) *CatalogClient {
	return &CatalogClient{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// listResponse mirrors the catalog service's paginated product listing.
type listResponse struct {
	Data struct {
		Items      []catalog.Product `json:"items"`
		Page       int               `json:"page"`
		TotalPages int               `json:"total_pages"`
	} `json:"data"`
}

// EachBatch fetches the catalog page by page, invoking fn once per page of at
// most size products. Iteration stops on the first fn error.
func (c *CatalogClient) EachBatch(ctx context.Context, size int, fn func(models []domain.Searchable) error) error {
	if size < 1 {
		return fmt.Errorf("each batch: size must be positive, got %d", size)
	}

	for page := 1; ; page++ {
		list, err := c.fetchPage(ctx, page, size)
		if err != nil {
			return err
		}

		if len(list.Data.Items) == 0 {
			return nil
		}

		batch := make([]domain.Searchable, len(list.Data.Items))
		for i := range list.Data.Items {
			batch[i] = &list.Data.Items[i]
		}

		if err := fn(batch); err != nil {
			return err
		}

		if page >= list.Data.TotalPages {
			return nil
		}
	}
}

// ModelsByKeys fetches the products with the given IDs from the catalog
// service. IDs without a backing product are absent from the result.
func (c *CatalogClient) ModelsByKeys(ctx context.Context, _ *domain.Builder, keys []string) ([]domain.Searchable, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	url := fmt.Sprintf("%s/api/v1/products?ids=%s&per_page=%d", c.baseURL, strings.Join(keys, ","), len(keys))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create products request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call catalog service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "catalog")
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode products response: %w", err)
	}

	models := make([]domain.Searchable, len(list.Data.Items))
	for i := range list.Data.Items {
		models[i] = &list.Data.Items[i]
	}
	return models, nil
}

func (c *CatalogClient) fetchPage(ctx context.Context, page, perPage int) (*listResponse, error) {
	url := fmt.Sprintf("%s/api/v1/products?page=%d&per_page=%d", c.baseURL, page, perPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create products request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call catalog service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "catalog")
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode products response: %w", err)
	}

	return &list, nil
}
