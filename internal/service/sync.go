package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelbridge/searchsync/internal/catalog"
	"github.com/modelbridge/searchsync/internal/domain"
	"github.com/modelbridge/searchsync/internal/engine"
	"github.com/modelbridge/searchsync/pkg/slug"
)

// importBatchSize is how many products are sent per bulk request during a
// full reindex.
const importBatchSize = 500

// SyncService keeps the search backend in step with the catalog. It indexes
// and removes individual products as change events arrive, answers queries,
// and rebuilds the index from the catalog of record.
type SyncService struct {
	engine   engine.Engine
	hydrator domain.Hydrator
	lister   domain.Lister
	logger   *slog.Logger
}

// NewSyncService creates a new sync service.
func NewSyncService(eng engine.Engine, hydrator domain.Hydrator, lister domain.Lister, logger *slog.Logger) *SyncService {
	return &SyncService{
		engine:   eng,
		hydrator: hydrator,
		lister:   lister,
		logger:   logger,
	}
}

// IndexProductInput holds the parameters for indexing a product.
type IndexProductInput struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Description  string            `json:"description"`
	CategoryID   string            `json:"category_id"`
	CategoryName string            `json:"category_name"`
	BrandID      string            `json:"brand_id"`
	BrandName    string            `json:"brand_name"`
	BasePrice    int64             `json:"base_price"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ImageURL     string            `json:"image_url"`
	Tags         []string          `json:"tags"`
	Attributes   map[string]string `json:"attributes"`
}

func (in *IndexProductInput) toProduct() *catalog.Product {
	now := time.Now().UTC()

	p := &catalog.Product{
		ID:           in.ID,
		Name:         in.Name,
		Slug:         in.Slug,
		Description:  in.Description,
		CategoryID:   in.CategoryID,
		CategoryName: in.CategoryName,
		BrandID:      in.BrandID,
		BrandName:    in.BrandName,
		BasePrice:    in.BasePrice,
		Currency:     in.Currency,
		Status:       in.Status,
		ImageURL:     in.ImageURL,
		Tags:         in.Tags,
		Attributes:   in.Attributes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if p.Slug == "" {
		p.Slug = slug.Generate(p.Name)
	}

	return p
}

// IndexProduct upserts a single product into the search backend.
func (s *SyncService) IndexProduct(ctx context.Context, input *IndexProductInput) error {
	if input.ID == "" {
		return fmt.Errorf("index product: id is required")
	}
	if input.Name == "" {
		return fmt.Errorf("index product: name is required")
	}

	product := input.toProduct()

	if err := s.engine.Update(ctx, []domain.Searchable{product}); err != nil {
		return fmt.Errorf("index product: %w", err)
	}

	s.logger.InfoContext(ctx, "product indexed",
		slog.String("product_id", input.ID),
		slog.String("name", input.Name),
	)

	return nil
}

// BulkIndex upserts multiple products in a single bulk request. Inputs
// without an ID are skipped.
func (s *SyncService) BulkIndex(ctx context.Context, inputs []IndexProductInput) error {
	models := make([]domain.Searchable, 0, len(inputs))
	for i := range inputs {
		if inputs[i].ID == "" {
			continue
		}
		models = append(models, inputs[i].toProduct())
	}

	if err := s.engine.Update(ctx, models); err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}

	s.logger.InfoContext(ctx, "bulk index completed",
		slog.Int("count", len(models)),
	)

	return nil
}

// DeleteProduct removes a product from the search backend.
func (s *SyncService) DeleteProduct(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete product: id is required")
	}

	if err := s.engine.Delete(ctx, []domain.Searchable{&catalog.Product{ID: id}}); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.logger.InfoContext(ctx, "product deleted from index",
		slog.String("product_id", id),
	)

	return nil
}

// SearchQuery holds all parameters for a search request.
type SearchQuery struct {
	Query      string  `json:"query"`
	CategoryID *string `json:"category_id,omitempty"`
	BrandID    *string `json:"brand_id,omitempty"`
	Status     *string `json:"status,omitempty"`
	SortBy     string  `json:"sort_by"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
}

// SearchResult holds the paginated search response.
type SearchResult struct {
	Products []catalog.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PerPage  int               `json:"per_page"`
	TookMs   int64             `json:"took_ms"`
}

// Search executes a paginated product search and hydrates the hits back into
// catalog products.
func (s *SyncService) Search(ctx context.Context, query *SearchQuery) (*SearchResult, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PerPage <= 0 {
		query.PerPage = 20
	}
	if query.PerPage > 100 {
		query.PerPage = 100
	}
	if query.SortBy == "" {
		query.SortBy = catalog.SortRelevance
	}
	if !catalog.IsValidSort(query.SortBy) {
		return nil, fmt.Errorf("search: invalid sort option %q", query.SortBy)
	}

	b := s.buildQuery(query)

	res, err := s.engine.Paginate(ctx, b, query.PerPage, query.Page)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	models, err := s.engine.Map(ctx, b, res)
	if err != nil {
		return nil, fmt.Errorf("search: map results: %w", err)
	}

	products := make([]catalog.Product, 0, len(models))
	for _, m := range models {
		if p, ok := m.(*catalog.Product); ok {
			products = append(products, *p)
		}
	}

	result := &SearchResult{
		Products: products,
		Total:    s.engine.TotalCount(res),
		Page:     query.Page,
		PerPage:  query.PerPage,
		TookMs:   res.Took,
	}

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", query.Query),
		slog.Int("total", result.Total),
		slog.Int64("took_ms", result.TookMs),
	)

	return result, nil
}

// buildQuery translates a SearchQuery into an engine query builder.
func (s *SyncService) buildQuery(query *SearchQuery) *domain.Builder {
	b := domain.NewBuilder(&catalog.Product{}, query.Query).WithHydrator(s.hydrator)

	if query.Status != nil {
		b = b.Where("status", *query.Status)
	}
	if query.CategoryID != nil {
		b = b.Where("category_id", *query.CategoryID)
	}
	if query.BrandID != nil {
		b = b.Where("brand_id", *query.BrandID)
	}

	switch query.SortBy {
	case catalog.SortPriceAsc:
		b = b.OrderBy("base_price", domain.SortAsc)
	case catalog.SortPriceDesc:
		b = b.OrderBy("base_price", domain.SortDesc)
	case catalog.SortNewest:
		b = b.OrderBy("created_at", domain.SortDesc)
	}

	return b
}

// Reindex streams the whole catalog of record into the search backend in
// batches. It is safe to run while the index is serving queries.
func (s *SyncService) Reindex(ctx context.Context) error {
	if s.lister == nil {
		return fmt.Errorf("reindex: no catalog source configured")
	}

	start := time.Now()
	total := 0

	err := s.lister.EachBatch(ctx, importBatchSize, func(models []domain.Searchable) error {
		if err := s.engine.Update(ctx, models); err != nil {
			return fmt.Errorf("index batch: %w", err)
		}
		total += len(models)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	s.logger.InfoContext(ctx, "reindex completed",
		slog.Int("products", total),
		slog.Duration("duration", time.Since(start)),
	)

	return nil
}

// Flush removes every product document from the search backend.
func (s *SyncService) Flush(ctx context.Context) error {
	if s.lister == nil {
		return fmt.Errorf("flush: no catalog source configured")
	}

	if err := s.engine.Flush(ctx, &catalog.Product{}, s.lister); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	s.logger.InfoContext(ctx, "index flushed")
	return nil
}

// CreateIndex creates the product index with its field mapping.
func (s *SyncService) CreateIndex(ctx context.Context) error {
	if err := s.engine.CreateStruct(ctx, &catalog.Product{}); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.logger.InfoContext(ctx, "index created", slog.String("index", catalog.ProductIndex))
	return nil
}

// DropIndex deletes the product index.
func (s *SyncService) DropIndex(ctx context.Context) error {
	if err := s.engine.DropStruct(ctx, &catalog.Product{}); err != nil {
		return fmt.Errorf("drop index: %w", err)
	}
	s.logger.InfoContext(ctx, "index dropped", slog.String("index", catalog.ProductIndex))
	return nil
}

// RegenIndex drops and recreates the product index.
func (s *SyncService) RegenIndex(ctx context.Context) error {
	if err := s.engine.RegenStruct(ctx, &catalog.Product{}); err != nil {
		return fmt.Errorf("regen index: %w", err)
	}
	s.logger.InfoContext(ctx, "index regenerated", slog.String("index", catalog.ProductIndex))
	return nil
}
