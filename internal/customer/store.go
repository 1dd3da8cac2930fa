package customer

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-admin/internal/db"
)

// Store persists customers. A shopID of 0 disables the shop filter.
type Store interface {
	List(ctx context.Context, shopID int64) ([]Customer, error)
	Get(ctx context.Context, shopID, id int64) (Customer, error)
	Create(ctx context.Context, in Input) (Customer, error)
	Update(ctx context.Context, shopID, id int64, in Input) (Customer, error)
	Delete(ctx context.Context, shopID, id int64) (Customer, error)
}

const customerColumns = `customer_id, shop_id, customer_name, customer_email_id, customer_mobile_no,
	customer_address, created_at, updated_at`

type pgStore struct {
	db db.Querier
}

// NewStore returns a Postgres-backed Store.
func NewStore(q db.Querier) Store {
	return &pgStore{db: q}
}

func (s *pgStore) List(ctx context.Context, shopID int64) ([]Customer, error) {
	rows, err := s.db.Query(ctx, `SELECT `+customerColumns+` FROM customers
WHERE ($1::bigint = 0 OR shop_id = $1) ORDER BY customer_id`, shopID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Customer])
}

func (s *pgStore) Get(ctx context.Context, shopID, id int64) (Customer, error) {
	rows, err := s.db.Query(ctx, `SELECT `+customerColumns+` FROM customers
WHERE customer_id = $2 AND ($1::bigint = 0 OR shop_id = $1)`, shopID, id)
	if err != nil {
		return Customer{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Customer])
}

func (s *pgStore) Create(ctx context.Context, in Input) (Customer, error) {
	rows, err := s.db.Query(ctx, `
INSERT INTO customers (shop_id, customer_name, customer_email_id, customer_mobile_no, customer_address)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+customerColumns,
		in.ShopID.Int64(), in.CustomerName, in.CustomerEmailID, in.CustomerMobileNo, in.CustomerAddress)
	if err != nil {
		return Customer{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Customer])
}

func (s *pgStore) Update(ctx context.Context, shopID, id int64, in Input) (Customer, error) {
	rows, err := s.db.Query(ctx, `
UPDATE customers
SET shop_id = $3, customer_name = $4, customer_email_id = $5, customer_mobile_no = $6,
	customer_address = $7, updated_at = now()
WHERE customer_id = $2 AND ($1::bigint = 0 OR shop_id = $1)
RETURNING `+customerColumns,
		shopID, id, in.ShopID.Int64(), in.CustomerName, in.CustomerEmailID, in.CustomerMobileNo, in.CustomerAddress)
	if err != nil {
		return Customer{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Customer])
}

func (s *pgStore) Delete(ctx context.Context, shopID, id int64) (Customer, error) {
	rows, err := s.db.Query(ctx, `
DELETE FROM customers
WHERE customer_id = $2 AND ($1::bigint = 0 OR shop_id = $1)
RETURNING `+customerColumns, shopID, id)
	if err != nil {
		return Customer{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Customer])
}
