package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelbridge/searchsync/internal/domain"
)

type mapModel struct{ id string }

func (m *mapModel) SearchKey() string                     { return m.id }
func (m *mapModel) SearchableAs() string                  { return "widgets" }
func (m *mapModel) ToSearchableDocument() domain.Document { return domain.Document{"id": m.id} }
func (m *mapModel) SearchableStruct() map[string]any      { return nil }

// stubHydrator returns a fixed model set, recording the keys it was asked for.
type stubHydrator struct {
	models   []domain.Searchable
	err      error
	askedFor []string
	calls    int
}

func (h *stubHydrator) ModelsByKeys(_ context.Context, _ *domain.Builder, keys []string) ([]domain.Searchable, error) {
	h.calls++
	h.askedFor = keys
	return h.models, h.err
}

func resultWithHits(ids ...string) *domain.Result {
	hits := make([]domain.Hit, len(ids))
	for i, id := range ids {
		hits[i] = domain.Hit{ID: id}
	}
	return &domain.Result{TotalRaw: domain.RawTotal(len(ids)), Hits: hits}
}

func TestMap_ZeroTotalSkipsHydration(t *testing.T) {
	h := &stubHydrator{}
	b := domain.NewBuilder(&mapModel{}, "").WithHydrator(h)

	models, err := Map(context.Background(), b, &domain.Result{TotalRaw: domain.RawTotal(0)})
	require.NoError(t, err)
	assert.Empty(t, models)
	assert.Zero(t, h.calls)
}

func TestMap_RequiresHydrator(t *testing.T) {
	b := domain.NewBuilder(&mapModel{}, "")

	_, err := Map(context.Background(), b, resultWithHits("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no hydrator")
}

func TestMap_PreservesHitOrder(t *testing.T) {
	// The store returns models in its own order; the mapped set follows the
	// hit order instead.
	h := &stubHydrator{models: []domain.Searchable{
		&mapModel{id: "a"},
		&mapModel{id: "b"},
		&mapModel{id: "c"},
	}}
	b := domain.NewBuilder(&mapModel{}, "").WithHydrator(h)

	models, err := Map(context.Background(), b, resultWithHits("c", "a", "b"))
	require.NoError(t, err)

	var got []string
	for _, m := range models {
		got = append(got, m.SearchKey())
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)
	assert.Equal(t, []string{"c", "a", "b"}, h.askedFor)
}

func TestMap_DropsStaleHits(t *testing.T) {
	// Hits whose rows no longer exist are dropped, and models the store
	// returned for keys never requested never appear.
	h := &stubHydrator{models: []domain.Searchable{
		&mapModel{id: "a"},
		&mapModel{id: "zombie"},
	}}
	b := domain.NewBuilder(&mapModel{}, "").WithHydrator(h)

	models, err := Map(context.Background(), b, resultWithHits("a", "gone"))
	require.NoError(t, err)

	require.Len(t, models, 1)
	assert.Equal(t, "a", models[0].SearchKey())
}

func TestMap_HydratorErrorPropagates(t *testing.T) {
	h := &stubHydrator{err: errors.New("db down")}
	b := domain.NewBuilder(&mapModel{}, "").WithHydrator(h)

	_, err := Map(context.Background(), b, resultWithHits("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestTotalCount_NormalizesShapes(t *testing.T) {
	assert.Equal(t, 3, TotalCount(&domain.Result{TotalRaw: []byte(`3`)}))
	assert.Equal(t, 3, TotalCount(&domain.Result{TotalRaw: []byte(`{"value":3}`)}))
	assert.Equal(t, 0, TotalCount(&domain.Result{}))
}

func TestMapIDs_Order(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, MapIDs(resultWithHits("x", "y")))
}
