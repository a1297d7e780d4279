package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelbridge/searchsync/internal/domain"
)

// Default index settings applied when the model's descriptor does not bring
// its own settings body.
const (
	defaultShards   = 1
	defaultReplicas = 0
)

// CreateStruct creates the remote index for a model type, deriving the
// creation body from the model's schema descriptor. Three cases, in priority
// order: an empty descriptor creates the index with source storage enabled
// and no field mappings; a descriptor holding a "properties" key becomes the
// mappings body; any other non-empty descriptor is used verbatim as the full
// creation body and is expected to carry its own settings.
func (e *Engine) CreateStruct(ctx context.Context, m domain.Searchable) error {
	body, err := structBody(m.SearchableStruct())
	if err != nil {
		return fmt.Errorf("elasticsearch create struct: %w", err)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("elasticsearch create struct: marshal body: %w", err)
	}

	index, _ := e.resolveTarget(ctx, m, "")
	res, err := e.client.Indices.Create(
		index,
		e.client.Indices.Create.WithBody(bytes.NewReader(data)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create struct: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return apiError("create struct", res)
	}

	e.logger.Info("index created", slog.String("index", index))
	return nil
}

// DropStruct deletes the model's index unconditionally. A missing index is
// surfaced as an error; callers wanting tolerance check existence first.
func (e *Engine) DropStruct(ctx context.Context, m domain.Searchable) error {
	index, _ := e.resolveTarget(ctx, m, "")
	res, err := e.client.Indices.Delete(
		[]string{index},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch drop struct: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return apiError("drop struct", res)
	}

	e.logger.Info("index deleted", slog.String("index", index))
	return nil
}

// RegenStruct resets the model's index: drop if it exists, then create.
// Idempotent from the caller's perspective.
func (e *Engine) RegenStruct(ctx context.Context, m domain.Searchable) error {
	index, _ := e.resolveTarget(ctx, m, "")
	res, err := e.client.Indices.Exists(
		[]string{index},
		e.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch regen struct: check index exists: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		if err := e.DropStruct(ctx, m); err != nil {
			return err
		}
	}

	return e.CreateStruct(ctx, m)
}

// structBody builds the index creation body from a schema descriptor.
func structBody(desc map[string]any) (map[string]any, error) {
	settings := map[string]any{
		"number_of_shards":   defaultShards,
		"number_of_replicas": defaultReplicas,
	}

	if len(desc) == 0 {
		// No descriptor: store raw documents, no explicit field mappings.
		return map[string]any{
			"settings": settings,
			"mappings": map[string]any{
				"_source": map[string]any{"enabled": true},
			},
		}, nil
	}

	if props, ok := desc["properties"]; ok {
		if _, ok := props.(map[string]any); !ok {
			return nil, fmt.Errorf("schema descriptor: properties must be an object, got %T", props)
		}
		return map[string]any{
			"settings": settings,
			"mappings": desc,
		}, nil
	}

	// The descriptor is a full creation body carrying its own settings.
	return desc, nil
}
