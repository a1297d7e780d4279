package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/modelbridge/searchsync/internal/domain"
	"github.com/modelbridge/searchsync/internal/engine"
)

// queryParams carries pagination bounds into a search request. Negative
// values mean the bound is omitted from the request body.
type queryParams struct {
	from int
	size int
}

// Search executes an unpaginated query. The builder's Limit, when positive,
// bounds the hit count.
func (e *Engine) Search(ctx context.Context, b *domain.Builder) (*domain.Result, error) {
	p := queryParams{from: -1, size: -1}
	if b.Limit > 0 {
		p.size = b.Limit
	}
	return e.performSearch(ctx, b, p)
}

// Paginate executes an offset-based query and attaches the derived page
// count. Pages is total/perPage as a float; rounding is the caller's call.
func (e *Engine) Paginate(ctx context.Context, b *domain.Builder, perPage, page int) (*domain.Result, error) {
	if perPage < 1 {
		return nil, fmt.Errorf("elasticsearch paginate: per page must be positive, got %d", perPage)
	}
	if page < 1 {
		page = 1
	}

	res, err := e.performSearch(ctx, b, queryParams{
		from: perPage * (page - 1),
		size: perPage,
	})
	if err != nil {
		return nil, err
	}

	res.Pages = float64(engine.TotalCount(res)) / float64(perPage)
	return res, nil
}

// performSearch assembles the request body and executes it, unless the
// builder carries a raw callback, in which case control is handed to the
// callback with the assembled body and the wire client.
func (e *Engine) performSearch(ctx context.Context, b *domain.Builder, p queryParams) (*domain.Result, error) {
	index, docType := e.resolveTarget(ctx, b.Model, b.Index)
	body := buildSearchBody(b, docType, p)

	if b.Callback != nil {
		return b.Callback(ctx, e.client, body)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(index),
		e.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, apiError("search", res)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	return esResp.toResult(), nil
}

// esSearchResponse decodes search responses. The total is kept raw because
// clusters report it either as a bare integer or as {"value": N}.
type esSearchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total json.RawMessage `json:"total"`
		Hits  []struct {
			ID     string          `json:"_id"`
			Score  float64         `json:"_score"`
			Source domain.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (r *esSearchResponse) toResult() *domain.Result {
	hits := make([]domain.Hit, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		hits = append(hits, domain.Hit{ID: h.ID, Score: h.Score, Source: h.Source})
	}
	return &domain.Result{
		Took:     r.Took,
		TotalRaw: r.Hits.Total,
		Hits:     hits,
	}
}

// buildSearchBody translates a builder into the Elasticsearch query DSL. The
// core clause is a must-match on the wildcard-wrapped query string, combined
// with the filter clauses. In legacy mode the type discriminator is matched
// as an additional term clause.
func buildSearchBody(b *domain.Builder, docType string, p queryParams) map[string]any {
	must := make([]any, 0, 2+len(b.Wheres))

	if q := strings.TrimSpace(b.Query); q != "" {
		must = append(must, map[string]any{
			"query_string": map[string]any{
				"query": wildcardQuery(q),
			},
		})
	} else {
		must = append(must, map[string]any{
			"match_all": map[string]any{},
		})
	}

	if docType != "" {
		must = append(must, map[string]any{
			"term": map[string]any{"_type": docType},
		})
	}

	// Filter columns are sorted so request bodies are deterministic.
	cols := make([]string, 0, len(b.Wheres))
	for col := range b.Wheres {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		value := b.Wheres[col]
		if isList(value) {
			must = append(must, map[string]any{
				"terms": map[string]any{col: value},
			})
		} else {
			must = append(must, map[string]any{
				"match_phrase": map[string]any{col: value},
			})
		}
	}

	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": must,
			},
		},
	}

	if len(b.Orders) > 0 {
		sorts := make([]any, 0, len(b.Orders))
		for _, o := range b.Orders {
			sorts = append(sorts, map[string]any{o.Column: o.Direction})
		}
		body["sort"] = sorts
	}

	if p.from >= 0 {
		body["from"] = p.from
	}
	if p.size >= 0 {
		body["size"] = p.size
	}

	return body
}

// wildcardQuery wraps every token of the query string in wildcards so the
// search behaves as a fuzzy "contains" rather than an exact phrase.
func wildcardQuery(q string) string {
	tokens := strings.Fields(q)
	for i, tok := range tokens {
		tokens[i] = "*" + tok + "*"
	}
	return strings.Join(tokens, " ")
}

// isList reports whether a filter value is a slice or array, which turns the
// filter into a membership clause.
func isList(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}
