package engine

import (
	"context"
	"fmt"

	"github.com/modelbridge/searchsync/internal/domain"
)

// TotalCount normalizes the total-hit count of a result. Backend-independent;
// drivers delegate to it.
func TotalCount(res *domain.Result) int {
	return res.Total()
}

// MapIDs extracts hit keys, preserving result order. Duplicates are kept
// unless the backend itself deduplicated them.
func MapIDs(res *domain.Result) []string {
	return res.IDs()
}

// Map resolves raw hits into hydrated models. A zero-total result returns an
// empty slice without invoking the hydrator. Otherwise the builder's Hydrator
// is asked for exactly the extracted keys and the returned set is filtered to
// keys present in the hit list, in hit order. Models the store returned for
// keys that were never requested (stale rows) are dropped.
func Map(ctx context.Context, b *domain.Builder, res *domain.Result) ([]domain.Searchable, error) {
	if TotalCount(res) == 0 {
		return []domain.Searchable{}, nil
	}

	if b.Hydrator == nil {
		return nil, fmt.Errorf("map results: builder has no hydrator")
	}

	keys := MapIDs(res)
	models, err := b.Hydrator.ModelsByKeys(ctx, b, keys)
	if err != nil {
		return nil, fmt.Errorf("map results: hydrate models: %w", err)
	}

	byKey := make(map[string]domain.Searchable, len(models))
	for _, m := range models {
		byKey[m.SearchKey()] = m
	}

	mapped := make([]domain.Searchable, 0, len(keys))
	for _, key := range keys {
		if m, ok := byKey[key]; ok {
			mapped = append(mapped, m)
		}
	}
	return mapped, nil
}
