package catalog

import (
	"time"

	"github.com/modelbridge/searchsync/internal/domain"
)

// ProductIndex is the index (or, against legacy backends, the type
// discriminator) under which product documents are stored.
const ProductIndex = "catalog_products"

// Product is the catalog product as synchronized into the search backend.
type Product struct {
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
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

var _ domain.Searchable = (*Product)(nil)

// SearchKey returns the document identifier for this product.
func (p *Product) SearchKey() string {
	return p.ID
}

// SearchableAs returns the index name products are stored under.
func (p *Product) SearchableAs() string {
	return ProductIndex
}

// ToSearchableDocument flattens the product into an indexable document.
// Empty optional fields are omitted so partial updates don't overwrite
// existing values with zero values.
func (p *Product) ToSearchableDocument() domain.Document {
	doc := domain.Document{
		"id":          p.ID,
		"name":        p.Name,
		"slug":        p.Slug,
		"description": p.Description,
		"category_id": p.CategoryID,
		"brand_id":    p.BrandID,
		"base_price":  p.BasePrice,
		"currency":    p.Currency,
		"status":      p.Status,
		"created_at":  p.CreatedAt,
		"updated_at":  p.UpdatedAt,
	}

	if p.CategoryName != "" {
		doc["category_name"] = p.CategoryName
	}
	if p.BrandName != "" {
		doc["brand_name"] = p.BrandName
	}
	if p.ImageURL != "" {
		doc["image_url"] = p.ImageURL
	}
	if len(p.Tags) > 0 {
		doc["tags"] = p.Tags
	}
	if len(p.Attributes) > 0 {
		attrs := make(map[string]any, len(p.Attributes))
		for k, v := range p.Attributes {
			attrs[k] = v
		}
		doc["attributes"] = attrs
	}

	return doc
}

// SearchableStruct returns the field mapping for the product index.
func (p *Product) SearchableStruct() map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"id":            map[string]any{"type": "keyword"},
			"name":          map[string]any{"type": "text"},
			"slug":          map[string]any{"type": "keyword"},
			"description":   map[string]any{"type": "text"},
			"category_id":   map[string]any{"type": "keyword"},
			"category_name": map[string]any{"type": "text"},
			"brand_id":      map[string]any{"type": "keyword"},
			"brand_name":    map[string]any{"type": "text"},
			"base_price":    map[string]any{"type": "long"},
			"currency":      map[string]any{"type": "keyword"},
			"status":        map[string]any{"type": "keyword"},
			"tags":          map[string]any{"type": "keyword"},
			"created_at":    map[string]any{"type": "date"},
			"updated_at":    map[string]any{"type": "date"},
		},
	}
}

// Sort options accepted by the search API.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	switch sort {
	case SortRelevance, SortPriceAsc, SortPriceDesc, SortNewest:
		return true
	}
	return false
}
