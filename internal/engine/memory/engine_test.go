package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelbridge/searchsync/internal/domain"
)

type widget struct {
	id    string
	name  string
	color string
	price int
}

func (w *widget) SearchKey() string    { return w.id }
func (w *widget) SearchableAs() string { return "widgets" }
func (w *widget) ToSearchableDocument() domain.Document {
	return domain.Document{
		"id":    w.id,
		"name":  w.name,
		"color": w.color,
		"price": w.price,
	}
}
func (w *widget) SearchableStruct() map[string]any { return nil }

// batchLister serves a fixed model set through the batched listing contract.
type batchLister struct {
	models []domain.Searchable
}

func (l *batchLister) EachBatch(_ context.Context, size int, fn func([]domain.Searchable) error) error {
	for start := 0; start < len(l.models); start += size {
		end := start + size
		if end > len(l.models) {
			end = len(l.models)
		}
		if err := fn(l.models[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func seedEngine(t *testing.T, widgets ...*widget) *Engine {
	t.Helper()
	eng := New()
	models := make([]domain.Searchable, len(widgets))
	for i, w := range widgets {
		models[i] = w
	}
	require.NoError(t, eng.Update(context.Background(), models))
	return eng
}

func TestUpdate_UpsertsAndPreservesOrder(t *testing.T) {
	eng := seedEngine(t,
		&widget{id: "w1", name: "alpha"},
		&widget{id: "w2", name: "beta"},
	)

	// Re-updating an existing document must not duplicate it.
	require.NoError(t, eng.Update(context.Background(), []domain.Searchable{
		&widget{id: "w1", name: "alpha prime"},
	}))

	res, err := eng.Search(context.Background(), domain.NewBuilder(&widget{}, ""))
	require.NoError(t, err)

	assert.Equal(t, []string{"w1", "w2"}, res.IDs())
	assert.Equal(t, "alpha prime", res.Hits[0].Source["name"])
}

func TestDelete_IgnoresMissing(t *testing.T) {
	eng := seedEngine(t, &widget{id: "w1"}, &widget{id: "w2"})

	require.NoError(t, eng.Delete(context.Background(), []domain.Searchable{
		&widget{id: "w2"},
		&widget{id: "ghost"},
	}))

	res, err := eng.Search(context.Background(), domain.NewBuilder(&widget{}, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, res.IDs())
}

func TestSearch_SubstringMatch(t *testing.T) {
	eng := seedEngine(t,
		&widget{id: "w1", name: "Blue Widget"},
		&widget{id: "w2", name: "Red Gadget"},
	)

	res, err := eng.Search(context.Background(), domain.NewBuilder(&widget{}, "widg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, res.IDs())
}

func TestSearch_ScalarAndListFilters(t *testing.T) {
	eng := seedEngine(t,
		&widget{id: "w1", color: "blue"},
		&widget{id: "w2", color: "red"},
		&widget{id: "w3", color: "green"},
	)

	b := domain.NewBuilder(&widget{}, "").Where("color", "red")
	res, err := eng.Search(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, []string{"w2"}, res.IDs())

	b = domain.NewBuilder(&widget{}, "").Where("color", []string{"blue", "green"})
	res, err = eng.Search(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w3"}, res.IDs())
}

func TestSearch_SortAndLimit(t *testing.T) {
	eng := seedEngine(t,
		&widget{id: "w1", price: 30},
		&widget{id: "w2", price: 10},
		&widget{id: "w3", price: 20},
	)

	b := domain.NewBuilder(&widget{}, "").OrderBy("price", "desc").Take(2)
	res, err := eng.Search(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, []string{"w1", "w3"}, res.IDs())
	// Total reflects all matches, not the truncated page.
	assert.Equal(t, 3, res.Total())
}

func TestPaginate_OffsetAndPages(t *testing.T) {
	var widgets []*widget
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		widgets = append(widgets, &widget{id: id})
	}
	eng := seedEngine(t, widgets...)

	res, err := eng.Paginate(context.Background(), domain.NewBuilder(&widget{}, ""), 2, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "d"}, res.IDs())
	assert.Equal(t, 5, res.Total())
	assert.InDelta(t, 2.5, res.Pages, 1e-9)
}

func TestPaginate_PageBeyondEndIsEmpty(t *testing.T) {
	eng := seedEngine(t, &widget{id: "a"})

	res, err := eng.Paginate(context.Background(), domain.NewBuilder(&widget{}, ""), 10, 5)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.Equal(t, 1, res.Total())
}

func TestSearch_CallbackReceivesEngine(t *testing.T) {
	eng := seedEngine(t, &widget{id: "a"})

	want := &domain.Result{TotalRaw: domain.RawTotal(0), Hits: []domain.Hit{}}
	b := domain.NewBuilder(&widget{}, "").
		WithRaw(func(_ context.Context, backend any, _ map[string]any) (*domain.Result, error) {
			assert.Same(t, eng, backend)
			return want, nil
		})

	res, err := eng.Search(context.Background(), b)
	require.NoError(t, err)
	assert.Same(t, want, res)
}

func TestStructLifecycle(t *testing.T) {
	eng := New()
	ctx := context.Background()
	m := &widget{}

	require.NoError(t, eng.CreateStruct(ctx, m))
	assert.Error(t, eng.CreateStruct(ctx, m), "second create must fail")

	require.NoError(t, eng.DropStruct(ctx, m))
	assert.Error(t, eng.DropStruct(ctx, m), "dropping a missing index must fail")

	// Regen works whether or not the index exists.
	require.NoError(t, eng.RegenStruct(ctx, m))
	require.NoError(t, eng.RegenStruct(ctx, m))
}

func TestRegenStruct_ClearsDocuments(t *testing.T) {
	eng := seedEngine(t, &widget{id: "a"}, &widget{id: "b"})

	require.NoError(t, eng.RegenStruct(context.Background(), &widget{}))

	res, err := eng.Search(context.Background(), domain.NewBuilder(&widget{}, ""))
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestFlush_RemovesAllDocumentsInBatches(t *testing.T) {
	var widgets []*widget
	var models []domain.Searchable
	for _, id := range []string{"a", "b", "c"} {
		w := &widget{id: id}
		widgets = append(widgets, w)
		models = append(models, w)
	}
	eng := seedEngine(t, widgets...)

	require.NoError(t, eng.Flush(context.Background(), &widget{}, &batchLister{models: models}))

	res, err := eng.Search(context.Background(), domain.NewBuilder(&widget{}, ""))
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestKeysAndGet(t *testing.T) {
	eng := seedEngine(t, &widget{id: "a", name: "x"}, &widget{id: "b", name: "y"})

	keys, err := eng.Keys(context.Background(), domain.NewBuilder(&widget{}, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}
