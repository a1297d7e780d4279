package domain

import (
	"context"
	"strings"
)

// Sort directions accepted by OrderBy.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Order is a single (column, direction) sort directive.
type Order struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// RawCallback is the sanctioned escape hatch for queries the default
// translation cannot express. It receives the backend's client handle and the
// assembled request body, and its result replaces the engine's own search.
// The concrete type of backend depends on the engine executing the builder
// (for the Elasticsearch engine it is *elasticsearch.Client).
type RawCallback func(ctx context.Context, backend any, body map[string]any) (*Result, error)

// Builder describes one search request against a model's index. It is built
// entirely by the caller and treated as immutable once handed to an engine.
type Builder struct {
	// Model is the prototype the query targets; its SearchableAs value
	// selects the index unless Index overrides it.
	Model Searchable

	// Hydrator resolves hit keys into model instances for Map/Get.
	Hydrator Hydrator

	// Query is the free-text query string. Empty means match everything.
	Query string

	// Wheres maps a filter column to either a scalar (exact match) or a
	// slice (membership) value.
	Wheres map[string]any

	// Orders are applied in the given order. Empty means backend relevance
	// order.
	Orders []Order

	// Limit bounds an unpaginated search when positive.
	Limit int

	// Index overrides the target index name when non-empty.
	Index string

	// Callback, when set, short-circuits query execution.
	Callback RawCallback
}

// NewBuilder creates a builder targeting the given model with a free-text
// query string.
func NewBuilder(m Searchable, query string) *Builder {
	return &Builder{
		Model:  m,
		Query:  query,
		Wheres: make(map[string]any),
	}
}

// Where adds a filter constraint. A slice value becomes a membership clause,
// any other value an exact match clause.
func (b *Builder) Where(column string, value any) *Builder {
	if b.Wheres == nil {
		b.Wheres = make(map[string]any)
	}
	b.Wheres[column] = value
	return b
}

// OrderBy appends a sort directive. The direction is normalized to lowercase;
// anything other than "desc" sorts ascending.
func (b *Builder) OrderBy(column, direction string) *Builder {
	dir := strings.ToLower(strings.TrimSpace(direction))
	if dir != SortDesc {
		dir = SortAsc
	}
	b.Orders = append(b.Orders, Order{Column: column, Direction: dir})
	return b
}

// Take bounds the number of hits returned by an unpaginated search.
func (b *Builder) Take(n int) *Builder {
	b.Limit = n
	return b
}

// Within overrides the index the query runs against.
func (b *Builder) Within(index string) *Builder {
	b.Index = index
	return b
}

// WithRaw installs the raw-query escape hatch.
func (b *Builder) WithRaw(cb RawCallback) *Builder {
	b.Callback = cb
	return b
}

// WithHydrator sets the domain-layer batch fetcher used by Map and Get.
func (b *Builder) WithHydrator(h Hydrator) *Builder {
	b.Hydrator = h
	return b
}
