package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/modelbridge/searchsync/internal/catalog"
	"github.com/modelbridge/searchsync/internal/domain"
	"github.com/modelbridge/searchsync/pkg/database"
)

// ProductStore reads catalog products from PostgreSQL. It hydrates search
// hits back into products and streams the full catalog for reindexing.
type ProductStore struct {
	pool database.DBTX
}

var (
	_ domain.Hydrator = (*ProductStore)(nil)
	_ domain.Lister   = (*ProductStore)(nil)
)

// NewProductStore creates a PostgreSQL-backed product store.
func NewProductStore(pool database.DBTX) *ProductStore {
	return &ProductStore{pool: pool}
}

const productColumns = `
	id, name, slug, description, category_id, category_name,
	brand_id, brand_name, base_price, currency, status,
	image_url, tags, attributes, created_at, updated_at`

// GetByID retrieves a single product by its ID.
func (s *ProductStore) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	query := `SELECT` + productColumns + `
		FROM products
		WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	p, err := scanProduct(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("product %s: %w", id, pgx.ErrNoRows)
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// ModelsByKeys loads the products matching the given search keys. Keys with
// no backing row are silently absent from the result; hit ordering is
// restored by the caller.
func (s *ProductStore) ModelsByKeys(ctx context.Context, b *domain.Builder, keys []string) ([]domain.Searchable, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	query := `SELECT` + productColumns + `
		FROM products
		WHERE id = ANY($1)`

	rows, err := s.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("query products by keys: %w", err)
	}
	defer rows.Close()

	models := make([]domain.Searchable, 0, len(keys))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		models = append(models, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return models, nil
}

// EachBatch walks the whole products table in key order, invoking fn once per
// batch of at most size rows. Keyset pagination keeps memory bounded for
// large catalogs.
func (s *ProductStore) EachBatch(ctx context.Context, size int, fn func(models []domain.Searchable) error) error {
	if size < 1 {
		return fmt.Errorf("each batch: size must be positive, got %d", size)
	}

	query := `SELECT` + productColumns + `
		FROM products
		WHERE id > $1
		ORDER BY id
		LIMIT $2`

	lastID := ""
	for {
		rows, err := s.pool.Query(ctx, query, lastID, size)
		if err != nil {
			return fmt.Errorf("query product batch: %w", err)
		}

		batch := make([]domain.Searchable, 0, size)
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan product: %w", err)
			}
			batch = append(batch, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate product batch: %w", err)
		}

		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		lastID = batch[len(batch)-1].SearchKey()
		if len(batch) < size {
			return nil
		}
	}
}

// scanProduct scans one product row. Tags are stored as a text array and
// attributes as JSONB.
func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var p catalog.Product
	var attributesJSON []byte

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.CategoryID,
		&p.CategoryName,
		&p.BrandID,
		&p.BrandName,
		&p.BasePrice,
		&p.Currency,
		&p.Status,
		&p.ImageURL,
		&p.Tags,
		&attributesJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(attributesJSON) > 0 {
		if err := json.Unmarshal(attributesJSON, &p.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal attributes: %w", err)
		}
	}

	return &p, nil
}
