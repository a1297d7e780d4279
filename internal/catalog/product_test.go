package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_SearchIdentity(t *testing.T) {
	p := &Product{ID: "p1"}
	assert.Equal(t, "p1", p.SearchKey())
	assert.Equal(t, ProductIndex, p.SearchableAs())
}

func TestProduct_ToSearchableDocument(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Product{
		ID:           "p1",
		Name:         "Blue Widget",
		Slug:         "blue-widget",
		CategoryID:   "c1",
		CategoryName: "Widgets",
		BrandID:      "b1",
		BrandName:    "Acme",
		BasePrice:    1999,
		Currency:     "USD",
		Status:       "active",
		ImageURL:     "https://cdn.example.com/p1.jpg",
		Tags:         []string{"blue", "widget"},
		Attributes:   map[string]string{"color": "blue"},
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	doc := p.ToSearchableDocument()

	assert.Equal(t, "p1", doc["id"])
	assert.Equal(t, "Blue Widget", doc["name"])
	assert.Equal(t, int64(1999), doc["base_price"])
	assert.Equal(t, "Widgets", doc["category_name"])
	assert.Equal(t, []string{"blue", "widget"}, doc["tags"])
	assert.Equal(t, map[string]any{"color": "blue"}, doc["attributes"])
	assert.Equal(t, created, doc["created_at"])
}

func TestProduct_ToSearchableDocument_OmitsEmptyOptionals(t *testing.T) {
	p := &Product{ID: "p1", Name: "Bare"}

	doc := p.ToSearchableDocument()

	for _, key := range []string{"category_name", "brand_name", "image_url", "tags", "attributes"} {
		_, present := doc[key]
		assert.False(t, present, "key %q must be omitted when empty", key)
	}
}

func TestProduct_SearchableStruct(t *testing.T) {
	props, ok := (&Product{}).SearchableStruct()["properties"].(map[string]any)
	require.True(t, ok)

	assert.Equal(t, map[string]any{"type": "keyword"}, props["id"])
	assert.Equal(t, map[string]any{"type": "text"}, props["name"])
	assert.Equal(t, map[string]any{"type": "long"}, props["base_price"])
	assert.Equal(t, map[string]any{"type": "date"}, props["created_at"])
}

func TestIsValidSort(t *testing.T) {
	for _, sort := range []string{SortRelevance, SortPriceAsc, SortPriceDesc, SortNewest} {
		assert.True(t, IsValidSort(sort), sort)
	}
	assert.False(t, IsValidSort("price"))
	assert.False(t, IsValidSort(""))
}
