package product

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-admin/internal/db"
)

// Store persists products. A shopID of 0 disables the shop filter.
type Store interface {
	List(ctx context.Context, shopID int64) ([]Product, error)
	Get(ctx context.Context, shopID, id int64) (Product, error)
	Create(ctx context.Context, in Input) (Product, error)
	Update(ctx context.Context, shopID, id int64, in Input) (Product, error)
	Delete(ctx context.Context, shopID, id int64) (Product, error)
	Categories(ctx context.Context, shopID int64) ([]string, error)
}

const productColumns = `id, shop_id, name, description, price, quantity, stock, category, keywords,
	base_unit, target_unit, conversion_factor, created_at, updated_at`

type pgStore struct {
	db db.Querier
}

// NewStore returns a Postgres-backed Store.
func NewStore(q db.Querier) Store {
	return &pgStore{db: q}
}

func (s *pgStore) List(ctx context.Context, shopID int64) ([]Product, error) {
	rows, err := s.db.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE ($1::bigint = 0 OR shop_id = $1) ORDER BY id`, shopID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Product])
}

func (s *pgStore) Get(ctx context.Context, shopID, id int64) (Product, error) {
	rows, err := s.db.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE id = $2 AND ($1::bigint = 0 OR shop_id = $1)`, shopID, id)
	if err != nil {
		return Product{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Product])
}

func (s *pgStore) Create(ctx context.Context, in Input) (Product, error) {
	rows, err := s.db.Query(ctx, `
INSERT INTO products (shop_id, name, description, price, quantity, stock, category, keywords,
	base_unit, target_unit, conversion_factor)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+productColumns,
		in.ShopID.Int64(), in.Name, in.Description, in.Price, in.Quantity, in.Stock.Int64(), in.Category,
		in.Keywords, in.BaseUnit, in.TargetUnit, in.ConversionFactor)
	if err != nil {
		return Product{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Product])
}

func (s *pgStore) Update(ctx context.Context, shopID, id int64, in Input) (Product, error) {
	rows, err := s.db.Query(ctx, `
UPDATE products
SET shop_id = $3, name = $4, description = $5, price = $6, quantity = $7, stock = $8, category = $9,
	keywords = $10, base_unit = $11, target_unit = $12, conversion_factor = $13, updated_at = now()
WHERE id = $2 AND ($1::bigint = 0 OR shop_id = $1)
RETURNING `+productColumns,
		shopID, id, in.ShopID.Int64(), in.Name, in.Description, in.Price, in.Quantity, in.Stock.Int64(),
		in.Category, in.Keywords, in.BaseUnit, in.TargetUnit, in.ConversionFactor)
	if err != nil {
		return Product{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Product])
}

func (s *pgStore) Delete(ctx context.Context, shopID, id int64) (Product, error) {
	rows, err := s.db.Query(ctx, `
DELETE FROM products
WHERE id = $2 AND ($1::bigint = 0 OR shop_id = $1)
RETURNING `+productColumns, shopID, id)
	if err != nil {
		return Product{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Product])
}

func (s *pgStore) Categories(ctx context.Context, shopID int64) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT category FROM products
WHERE ($1::bigint = 0 OR shop_id = $1) ORDER BY category`, shopID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
