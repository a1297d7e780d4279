// Package memory provides an in-process implementation of the engine
// contract. It backs local development and tests; matching is simple
// substring search, not relevance-ranked full text.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/modelbridge/searchsync/internal/domain"
	"github.com/modelbridge/searchsync/internal/engine"
)

const flushBatchSize = 500

// index holds one model type's documents, preserving insertion order so
// unsorted results are deterministic.
type index struct {
	docs  map[string]domain.Document
	order []string
}

// Engine is an in-memory implementation of the engine contract. Thread-safe.
type Engine struct {
	mu      sync.RWMutex
	indexes map[string]*index
}

var _ engine.Engine = (*Engine)(nil)

// New creates an empty in-memory engine.
func New() *Engine {
	return &Engine{
		indexes: make(map[string]*index),
	}
}

// indexName resolves the index a model's documents live under, honoring the
// builder override when given. The in-memory engine has no legacy mode.
func indexName(m domain.Searchable, override string) string {
	if override != "" {
		return override
	}
	return m.SearchableAs()
}

// ensureIndex returns the named index, creating it on first use. Callers hold
// the write lock.
func (e *Engine) ensureIndex(name string) *index {
	idx, ok := e.indexes[name]
	if !ok {
		idx = &index{docs: make(map[string]domain.Document)}
		e.indexes[name] = idx
	}
	return idx
}

// Update upserts a batch of models. An empty batch is a no-op.
func (e *Engine) Update(_ context.Context, models []domain.Searchable) error {
	if len(models) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, m := range models {
		idx := e.ensureIndex(indexName(m, ""))
		key := m.SearchKey()
		if _, exists := idx.docs[key]; !exists {
			idx.order = append(idx.order, key)
		}
		idx.docs[key] = m.ToSearchableDocument()
	}
	return nil
}

// Delete removes a batch of models by primary key. Missing documents are
// ignored.
func (e *Engine) Delete(_ context.Context, models []domain.Searchable) error {
	if len(models) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, m := range models {
		idx, ok := e.indexes[indexName(m, "")]
		if !ok {
			continue
		}
		key := m.SearchKey()
		if _, exists := idx.docs[key]; !exists {
			continue
		}
		delete(idx.docs, key)
		for i, k := range idx.order {
			if k == key {
				idx.order = append(idx.order[:i], idx.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Search executes an unpaginated query against the in-memory index.
func (e *Engine) Search(ctx context.Context, b *domain.Builder) (*domain.Result, error) {
	return e.execute(ctx, b, -1, -1)
}

// Paginate executes an offset-based query and attaches the derived page
// count (total/perPage, as a float).
func (e *Engine) Paginate(ctx context.Context, b *domain.Builder, perPage, page int) (*domain.Result, error) {
	if perPage < 1 {
		return nil, fmt.Errorf("memory paginate: per page must be positive, got %d", perPage)
	}
	if page < 1 {
		page = 1
	}

	res, err := e.execute(ctx, b, perPage*(page-1), perPage)
	if err != nil {
		return nil, err
	}
	res.Pages = float64(engine.TotalCount(res)) / float64(perPage)
	return res, nil
}

// execute runs the query with optional offset/limit bounds (negative means
// unbounded).
func (e *Engine) execute(ctx context.Context, b *domain.Builder, from, size int) (*domain.Result, error) {
	if b.Callback != nil {
		// The escape hatch receives the engine itself as the backend handle.
		return b.Callback(ctx, e, nil)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var hits []domain.Hit
	if idx, ok := e.indexes[indexName(b.Model, b.Index)]; ok {
		query := strings.ToLower(strings.TrimSpace(b.Query))
		for _, key := range idx.order {
			doc := idx.docs[key]
			if matches(doc, query, b.Wheres) {
				hits = append(hits, domain.Hit{ID: key, Source: doc})
			}
		}
	}

	sortHits(hits, b.Orders)

	total := len(hits)
	if b.Limit > 0 && size < 0 {
		size = b.Limit
	}
	if from > 0 {
		if from > len(hits) {
			from = len(hits)
		}
		hits = hits[from:]
	}
	if size >= 0 && size < len(hits) {
		hits = hits[:size]
	}
	if hits == nil {
		hits = []domain.Hit{}
	}

	return &domain.Result{
		TotalRaw: domain.RawTotal(total),
		Hits:     hits,
	}, nil
}

// matches checks the free-text query (substring over string fields) and the
// filter constraints (scalar equality, list membership).
func matches(doc domain.Document, query string, wheres map[string]any) bool {
	if query != "" {
		found := false
		for _, v := range doc {
			s, ok := v.(string)
			if ok && strings.Contains(strings.ToLower(s), query) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for col, want := range wheres {
		got, ok := doc[col]
		if !ok {
			return false
		}
		if list, ok := toList(want); ok {
			member := false
			for _, w := range list {
				if fmt.Sprint(got) == fmt.Sprint(w) {
					member = true
					break
				}
			}
			if !member {
				return false
			}
		} else if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// toList normalizes the supported filter slice types.
func toList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(list))
		for i, n := range list {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

// sortHits applies the sort directives in order; later directives break ties
// left by earlier ones.
func sortHits(hits []domain.Hit, orders []domain.Order) {
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(hits, func(i, j int) bool {
		for _, o := range orders {
			cmp := compareValues(hits[i].Source[o.Column], hits[j].Source[o.Column])
			if cmp == 0 {
				continue
			}
			if o.Direction == domain.SortDesc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareValues orders two document values, numerically when both sides are
// numbers and lexically otherwise.
func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// MapIDs extracts hit keys in result order.
func (e *Engine) MapIDs(res *domain.Result) []string {
	return engine.MapIDs(res)
}

// Map resolves raw hits into hydrated models.
func (e *Engine) Map(ctx context.Context, b *domain.Builder, res *domain.Result) ([]domain.Searchable, error) {
	return engine.Map(ctx, b, res)
}

// TotalCount normalizes the total-hit count.
func (e *Engine) TotalCount(res *domain.Result) int {
	return engine.TotalCount(res)
}

// Keys returns the primary keys matching the builder.
func (e *Engine) Keys(ctx context.Context, b *domain.Builder) ([]string, error) {
	res, err := e.Search(ctx, b)
	if err != nil {
		return nil, err
	}
	return e.MapIDs(res), nil
}

// Get returns the hydrated models matching the builder.
func (e *Engine) Get(ctx context.Context, b *domain.Builder) ([]domain.Searchable, error) {
	res, err := e.Search(ctx, b)
	if err != nil {
		return nil, err
	}
	return e.Map(ctx, b, res)
}

// CreateStruct creates the model's index container.
func (e *Engine) CreateStruct(_ context.Context, m domain.Searchable) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := indexName(m, "")
	if _, exists := e.indexes[name]; exists {
		return fmt.Errorf("memory create struct: index %q already exists", name)
	}
	e.indexes[name] = &index{docs: make(map[string]domain.Document)}
	return nil
}

// DropStruct deletes the model's index unconditionally.
func (e *Engine) DropStruct(_ context.Context, m domain.Searchable) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := indexName(m, "")
	if _, exists := e.indexes[name]; !exists {
		return fmt.Errorf("memory drop struct: index %q does not exist", name)
	}
	delete(e.indexes, name)
	return nil
}

// RegenStruct resets the model's index, creating it if absent.
func (e *Engine) RegenStruct(_ context.Context, m domain.Searchable) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.indexes[indexName(m, "")] = &index{docs: make(map[string]domain.Document)}
	return nil
}

// Flush deletes every document of the model's type in batches via the domain
// layer's listing.
func (e *Engine) Flush(ctx context.Context, m domain.Searchable, lister domain.Lister) error {
	return lister.EachBatch(ctx, flushBatchSize, func(models []domain.Searchable) error {
		return e.Delete(ctx, models)
	})
}
