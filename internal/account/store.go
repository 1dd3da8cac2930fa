package account

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-admin/internal/db"
)

// Store persists accounts.
type Store interface {
	List(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	Create(ctx context.Context, in Input) (Account, error)
	Update(ctx context.Context, id int64, in Input) (Account, error)
	// Delete removes the account and returns the ids of the shops that were
	// removed with it.
	Delete(ctx context.Context, id int64) ([]int64, error)
}

const accountColumns = `account_id, customer_name, customer_email_id, customer_mobile_no, customer_address, created_at, updated_at`

type pgStore struct {
	db db.TxBeginner
}

// NewStore returns a Postgres-backed Store.
func NewStore(q db.TxBeginner) Store {
	return &pgStore{db: q}
}

func (s *pgStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY account_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Account])
}

func (s *pgStore) Get(ctx context.Context, id int64) (Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_id = $1`, id)
	if err != nil {
		return Account{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Account])
}

func (s *pgStore) Create(ctx context.Context, in Input) (Account, error) {
	rows, err := s.db.Query(ctx, `
INSERT INTO accounts (customer_name, customer_email_id, customer_mobile_no, customer_address)
VALUES ($1, $2, $3, $4)
RETURNING `+accountColumns,
		in.CustomerName, in.CustomerEmailID, in.CustomerMobileNo, in.CustomerAddress)
	if err != nil {
		return Account{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Account])
}

func (s *pgStore) Update(ctx context.Context, id int64, in Input) (Account, error) {
	rows, err := s.db.Query(ctx, `
UPDATE accounts
SET customer_name = $2, customer_email_id = $3, customer_mobile_no = $4, customer_address = $5, updated_at = now()
WHERE account_id = $1
RETURNING `+accountColumns,
		id, in.CustomerName, in.CustomerEmailID, in.CustomerMobileNo, in.CustomerAddress)
	if err != nil {
		return Account{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Account])
}

func (s *pgStore) Delete(ctx context.Context, id int64) ([]int64, error) {
	var shopIDs []int64
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT shop_id FROM shops WHERE account_id = $1 ORDER BY shop_id FOR UPDATE`, id)
		if err != nil {
			return err
		}
		shopIDs, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM accounts WHERE account_id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shopIDs, nil
}
