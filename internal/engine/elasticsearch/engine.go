package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/modelbridge/searchsync/internal/domain"
	"github.com/modelbridge/searchsync/internal/engine"
)

// flushBatchSize is the batch size used when flushing a model type.
const flushBatchSize = 500

// Engine is the Elasticsearch-backed implementation of the engine contract.
type Engine struct {
	client *elasticsearch.Client
	index  string
	logger *slog.Logger

	capsOnce sync.Once
	caps     Capabilities
	capsSet  bool
}

var _ engine.Engine = (*Engine)(nil)

// Option customizes engine construction.
type Option func(*Engine)

// WithCapabilities injects a pre-resolved capability value, skipping cluster
// version detection. Useful in tests and when many engines share one cluster.
func WithCapabilities(caps Capabilities) Option {
	return func(e *Engine) {
		e.caps = caps
		e.capsSet = true
	}
}

// esErrorResponse decodes Elasticsearch error bodies.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an Elasticsearch engine. index is the fixed index name used
// when the cluster runs in legacy mode; modern clusters derive the index from
// each model's SearchableAs value and ignore it.
func New(esURL, index string, logger *slog.Logger, opts ...Option) (*Engine, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	e := &Engine{
		client: client,
		index:  index,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// capabilities returns the resolved cluster capabilities, detecting them on
// first use. Detection is idempotent; redundant computation costs at most one
// extra round trip, never corrupted state.
func (e *Engine) capabilities(ctx context.Context) Capabilities {
	e.capsOnce.Do(func() {
		if e.capsSet {
			return
		}
		e.caps = DetectCapabilities(ctx, e.client)
		e.capsSet = true
		e.logger.Debug("elasticsearch capabilities resolved",
			slog.String("version", e.caps.Version),
			slog.Bool("legacy", e.caps.Legacy),
		)
	})
	return e.caps
}

// resolveTarget returns the index and, in legacy mode, the type discriminator
// for a model. A non-empty override takes precedence over the mode's default
// index in both modes.
func (e *Engine) resolveTarget(ctx context.Context, m domain.Searchable, override string) (index, docType string) {
	caps := e.capabilities(ctx)
	if caps.Legacy {
		index = e.index
		if override != "" {
			index = override
		}
		return index, m.SearchableAs()
	}

	if override != "" {
		return override, ""
	}
	return m.SearchableAs(), ""
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// Update upserts a batch of models via the bulk NDJSON API. Each model emits
// one update action with doc_as_upsert, so documents missing remotely are
// created.
func (e *Engine) Update(ctx context.Context, models []domain.Searchable) error {
	if len(models) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, m := range models {
		index, docType := e.resolveTarget(ctx, m, "")

		action := map[string]any{"update": bulkMeta(index, docType, m.SearchKey())}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk update: encode action: %w", err)
		}

		payload := map[string]any{
			"doc":           m.ToSearchableDocument(),
			"doc_as_upsert": true,
		}
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return fmt.Errorf("elasticsearch bulk update: encode document: %w", err)
		}
	}

	if err := e.bulk(ctx, &buf, "bulk update"); err != nil {
		return err
	}

	e.logger.Debug("bulk updated documents", slog.Int("count", len(models)))
	return nil
}

// Delete removes a batch of models by primary key via the bulk NDJSON API.
func (e *Engine) Delete(ctx context.Context, models []domain.Searchable) error {
	if len(models) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, m := range models {
		index, docType := e.resolveTarget(ctx, m, "")

		action := map[string]any{"delete": bulkMeta(index, docType, m.SearchKey())}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk delete: encode action: %w", err)
		}
	}

	if err := e.bulk(ctx, &buf, "bulk delete"); err != nil {
		return err
	}

	e.logger.Debug("bulk deleted documents", slog.Int("count", len(models)))
	return nil
}

// bulk submits one NDJSON payload. The batch is accepted or rejected as a
// whole request; no per-item recovery is attempted.
func (e *Engine) bulk(ctx context.Context, body *bytes.Buffer, op string) error {
	res, err := e.client.Bulk(
		bytes.NewReader(body.Bytes()),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch %s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return apiError(op, res)
	}
	return nil
}

// bulkMeta builds the action metadata for one bulk item.
func bulkMeta(index, docType, id string) map[string]any {
	meta := map[string]any{
		"_index": index,
		"_id":    id,
	}
	if docType != "" {
		meta["_type"] = docType
	}
	return meta
}

// Flush deletes every document of the model's type, iterating rows in
// primary-key order through the domain layer's batched listing rather than a
// single bulk fetch.
func (e *Engine) Flush(ctx context.Context, m domain.Searchable, lister domain.Lister) error {
	return lister.EachBatch(ctx, flushBatchSize, func(models []domain.Searchable) error {
		return e.Delete(ctx, models)
	})
}

// MapIDs extracts hit keys in result order.
func (e *Engine) MapIDs(res *domain.Result) []string {
	return engine.MapIDs(res)
}

// Map resolves raw hits into hydrated models.
func (e *Engine) Map(ctx context.Context, b *domain.Builder, res *domain.Result) ([]domain.Searchable, error) {
	return engine.Map(ctx, b, res)
}

// TotalCount normalizes the total-hit count across cluster versions.
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

// apiError decodes an Elasticsearch error response into a backend error.
func apiError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("elasticsearch %s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("elasticsearch %s: unexpected status %s", op, res.Status())
}
