package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelbridge/searchsync/internal/domain"
)

func newStoreTestFixture(t *testing.T) (*ProductStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewProductStore(mock), mock
}

func productColumnNames() []string {
	return []string{
		"id", "name", "slug", "description", "category_id", "category_name",
		"brand_id", "brand_name", "base_price", "currency", "status",
		"image_url", "tags", "attributes", "created_at", "updated_at",
	}
}

func productRow(rows *pgxmock.Rows, id, name string) *pgxmock.Rows {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, name, "slug-"+id, "desc", "c1", "Widgets",
		"b1", "Acme", int64(1999), "USD", "active",
		"", []string{"blue"}, []byte(`{"color":"blue"}`), now, now,
	)
}

func TestGetByID(t *testing.T) {
	store, mock := newStoreTestFixture(t)

	rows := productRow(pgxmock.NewRows(productColumnNames()), "p1", "Blue Widget")
	mock.ExpectQuery("SELECT(.+)FROM products(.+)WHERE id = \\$1").
		WithArgs("p1").
		WillReturnRows(rows)

	p, err := store.GetByID(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Blue Widget", p.Name)
	assert.Equal(t, map[string]string{"color": "blue"}, p.Attributes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	store, mock := newStoreTestFixture(t)

	mock.ExpectQuery("SELECT(.+)FROM products(.+)WHERE id = \\$1").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(productColumnNames()))

	_, err := store.GetByID(context.Background(), "ghost")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModelsByKeys(t *testing.T) {
	store, mock := newStoreTestFixture(t)

	rows := pgxmock.NewRows(productColumnNames())
	productRow(rows, "p1", "one")
	productRow(rows, "p2", "two")
	mock.ExpectQuery("SELECT(.+)FROM products(.+)WHERE id = ANY\\(\\$1\\)").
		WithArgs([]string{"p1", "p2"}).
		WillReturnRows(rows)

	models, err := store.ModelsByKeys(context.Background(), nil, []string{"p1", "p2"})
	require.NoError(t, err)

	require.Len(t, models, 2)
	assert.Equal(t, "p1", models[0].SearchKey())
	assert.Equal(t, "p2", models[1].SearchKey())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModelsByKeys_EmptyKeysSkipsQuery(t *testing.T) {
	store, mock := newStoreTestFixture(t)

	models, err := store.ModelsByKeys(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, models)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEachBatch_KeysetPagination(t *testing.T) {
	store, mock := newStoreTestFixture(t)

	first := pgxmock.NewRows(productColumnNames())
	productRow(first, "p1", "one")
	productRow(first, "p2", "two")
	mock.ExpectQuery("SELECT(.+)FROM products(.+)WHERE id > \\$1(.+)ORDER BY id(.+)LIMIT \\$2").
		WithArgs("", 2).
		WillReturnRows(first)

	second := pgxmock.NewRows(productColumnNames())
	productRow(second, "p3", "three")
	mock.ExpectQuery("SELECT(.+)FROM products(.+)WHERE id > \\$1(.+)ORDER BY id(.+)LIMIT \\$2").
		WithArgs("p2", 2).
		WillReturnRows(second)

	var seen [][]string
	err := store.EachBatch(context.Background(), 2, func(models []domain.Searchable) error {
		var ids []string
		for _, m := range models {
			ids = append(ids, m.SearchKey())
		}
		seen = append(seen, ids)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"p1", "p2"}, {"p3"}}, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEachBatch_EmptyTable(t *testing.T) {
	store, mock := newStoreTestFixture(t)

	mock.ExpectQuery("SELECT(.+)FROM products(.+)WHERE id > \\$1").
		WithArgs("", 100).
		WillReturnRows(pgxmock.NewRows(productColumnNames()))

	err := store.EachBatch(context.Background(), 100, func([]domain.Searchable) error {
		t.Fatal("fn must not be called for an empty table")
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEachBatch_RejectsNonPositiveSize(t *testing.T) {
	store, _ := newStoreTestFixture(t)

	err := store.EachBatch(context.Background(), 0, func([]domain.Searchable) error { return nil })
	assert.Error(t, err)
}

func TestEachBatch_CallbackErrorStopsIteration(t *testing.T) {
	store, mock := newStoreTestFixture(t)

	rows := pgxmock.NewRows(productColumnNames())
	productRow(rows, "p1", "one")
	productRow(rows, "p2", "two")
	mock.ExpectQuery("SELECT(.+)FROM products(.+)WHERE id > \\$1").
		WithArgs("", 2).
		WillReturnRows(rows)

	err := store.EachBatch(context.Background(), 2, func([]domain.Searchable) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
