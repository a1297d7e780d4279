package engine

import (
	"context"

	"github.com/modelbridge/searchsync/internal/domain"
)

// Engine is the capability set every search-backend driver provides.
// Implementations translate builders into backend queries, mirror model
// mutations into the index, and manage the index structure itself. Callers
// depend on this interface, never on a concrete backend.
type Engine interface {
	// Update upserts a batch of searchable documents. An empty batch is a
	// no-op. The batch is submitted as one bulk request; no transaction
	// guarantee beyond the backend's own bulk semantics is added.
	Update(ctx context.Context, models []domain.Searchable) error

	// Delete removes a batch of documents by primary key. Same shape and
	// guarantees as Update.
	Delete(ctx context.Context, models []domain.Searchable) error

	// Search executes an unpaginated query.
	Search(ctx context.Context, b *domain.Builder) (*domain.Result, error)

	// Paginate executes a bounded, offset-based query and attaches the
	// derived page count (total hits / page size, as a float; callers
	// round or truncate explicitly).
	Paginate(ctx context.Context, b *domain.Builder, perPage, page int) (*domain.Result, error)

	// MapIDs extracts hit keys in result order.
	MapIDs(res *domain.Result) []string

	// Map resolves raw hits into hydrated models via the builder's
	// Hydrator. A zero-total result yields an empty slice without a round
	// trip to the model store.
	Map(ctx context.Context, b *domain.Builder, res *domain.Result) ([]domain.Searchable, error)

	// TotalCount normalizes the total-hit count across backend versions.
	TotalCount(res *domain.Result) int

	// Keys is Search composed with MapIDs.
	Keys(ctx context.Context, b *domain.Builder) ([]string, error)

	// Get is Search composed with Map.
	Get(ctx context.Context, b *domain.Builder) ([]domain.Searchable, error)

	// CreateStruct creates the remote index/schema for a model type.
	CreateStruct(ctx context.Context, m domain.Searchable) error

	// DropStruct deletes the model's index unconditionally; callers wanting
	// a tolerant variant check existence first.
	DropStruct(ctx context.Context, m domain.Searchable) error

	// RegenStruct drops the index if it exists, then creates it. Idempotent
	// from the caller's perspective.
	RegenStruct(ctx context.Context, m domain.Searchable) error

	// Flush removes every document of the model's type, iterating rows in
	// primary-key order through the domain layer's batched listing.
	Flush(ctx context.Context, m domain.Searchable, lister domain.Lister) error
}
