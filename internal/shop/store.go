package shop

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-admin/internal/db"
)

// Store persists shops.
type Store interface {
	List(ctx context.Context) ([]Shop, error)
	Get(ctx context.Context, id int64) (Shop, error)
	Create(ctx context.Context, in Input) (Shop, error)
	Update(ctx context.Context, id int64, in Input) (Shop, error)
	Delete(ctx context.Context, id int64) error
}

const shopColumns = `shop_id, account_id, shop_name, shop_type, shop_owner_name, shop_email_id,
	shop_mobile_number, shop_city, shop_city_zip_code, package_type, created_at, updated_at`

type pgStore struct {
	db db.Querier
}

// NewStore returns a Postgres-backed Store.
func NewStore(q db.Querier) Store {
	return &pgStore{db: q}
}

func (s *pgStore) List(ctx context.Context) ([]Shop, error) {
	rows, err := s.db.Query(ctx, `SELECT `+shopColumns+` FROM shops ORDER BY shop_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Shop])
}

func (s *pgStore) Get(ctx context.Context, id int64) (Shop, error) {
	rows, err := s.db.Query(ctx, `SELECT `+shopColumns+` FROM shops WHERE shop_id = $1`, id)
	if err != nil {
		return Shop{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Shop])
}

func (s *pgStore) Create(ctx context.Context, in Input) (Shop, error) {
	rows, err := s.db.Query(ctx, `
INSERT INTO shops (account_id, shop_name, shop_type, shop_owner_name, shop_email_id,
	shop_mobile_number, shop_city, shop_city_zip_code, package_type)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+shopColumns,
		in.AccountID.Int64(), in.ShopName, in.ShopType, in.ShopOwnerName, in.ShopEmailID,
		in.ShopMobileNumber, in.ShopCity, in.ShopCityZipCode, in.PackageType)
	if err != nil {
		return Shop{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Shop])
}

func (s *pgStore) Update(ctx context.Context, id int64, in Input) (Shop, error) {
	rows, err := s.db.Query(ctx, `
UPDATE shops
SET account_id = $2, shop_name = $3, shop_type = $4, shop_owner_name = $5, shop_email_id = $6,
	shop_mobile_number = $7, shop_city = $8, shop_city_zip_code = $9, package_type = $10, updated_at = now()
WHERE shop_id = $1
RETURNING `+shopColumns,
		id, in.AccountID.Int64(), in.ShopName, in.ShopType, in.ShopOwnerName, in.ShopEmailID,
		in.ShopMobileNumber, in.ShopCity, in.ShopCityZipCode, in.PackageType)
	if err != nil {
		return Shop{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Shop])
}

func (s *pgStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM shops WHERE shop_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
