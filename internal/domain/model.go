package domain

import (
	"context"
)

// Document is the field-value mapping derived from a model and sent to the
// search backend for indexing.
type Document map[string]any

// Searchable is implemented by domain models that can be mirrored into a
// search index. The engine observes model lifecycle events and keeps the
// remote index consistent; it never owns the model's lifecycle.
type Searchable interface {
	// SearchKey returns the model's primary key as an opaque identifier.
	SearchKey() string

	// SearchableAs returns the index name the model's documents live under.
	// Backends running in legacy mode use this value as the type
	// discriminator inside a shared index instead.
	SearchableAs() string

	// ToSearchableDocument derives the document that represents this model
	// in the index.
	ToSearchableDocument() Document

	// SearchableStruct returns the model's custom schema descriptor, or an
	// empty/nil map when the backend should fall back to storing raw
	// documents without explicit field mappings.
	SearchableStruct() map[string]any
}

// Hydrator resolves a batch of primary keys back into model instances.
// Implementations may return fewer models than keys (stale index entries)
// but must never return models whose key was not requested.
type Hydrator interface {
	ModelsByKeys(ctx context.Context, b *Builder, keys []string) ([]Searchable, error)
}

// Lister streams every model of one type in primary-key order, in batches.
// It is the iteration contract behind flush and full imports: implementations
// must page through the underlying store rather than load all rows at once.
type Lister interface {
	EachBatch(ctx context.Context, size int, fn func(models []Searchable) error) error
}
