package quotation

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-admin/internal/db"
)

// Store persists quotations. A shopID of 0 disables the shop filter.
type Store interface {
	List(ctx context.Context, shopID int64) ([]Quotation, error)
	Get(ctx context.Context, shopID, id int64) (Quotation, error)
	Create(ctx context.Context, q Quotation) (Quotation, error)
	Delete(ctx context.Context, shopID, id int64) (Quotation, error)
}

const quotationColumns = `quotation_id, shop_id, quotation_number, to_char(quotation_date, 'YYYY-MM-DD'),
	quotation_terms, discount, discount_type, subtotal, discount_amount, tax_amount, grand_total, created_at`

type pgStore struct {
	db db.TxBeginner
}

// NewStore returns a Postgres-backed Store.
func NewStore(q db.TxBeginner) Store {
	return &pgStore{db: q}
}

func scanQuotation(row pgx.CollectableRow) (Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.ShopID, &q.QuotationNumber, &q.QuotationDate, &q.QuotationTerms,
		&q.Discount, &q.DiscountType, &q.Subtotal, &q.DiscountAmount, &q.TaxAmount, &q.GrandTotal, &q.CreatedAt)
	return q, err
}

func (s *pgStore) List(ctx context.Context, shopID int64) ([]Quotation, error) {
	rows, err := s.db.Query(ctx, `SELECT `+quotationColumns+` FROM quotations
WHERE ($1::bigint = 0 OR shop_id = $1) ORDER BY quotation_id`, shopID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanQuotation)
}

func (s *pgStore) Get(ctx context.Context, shopID, id int64) (Quotation, error) {
	rows, err := s.db.Query(ctx, `SELECT `+quotationColumns+` FROM quotations
WHERE quotation_id = $2 AND ($1::bigint = 0 OR shop_id = $1)`, shopID, id)
	if err != nil {
		return Quotation{}, err
	}
	q, err := pgx.CollectExactlyOneRow(rows, scanQuotation)
	if err != nil {
		return Quotation{}, err
	}
	rows, err = s.db.Query(ctx, `SELECT product_id, name, price, quantity
FROM quotation_items WHERE quotation_id = $1 ORDER BY position`, q.ID)
	if err != nil {
		return Quotation{}, err
	}
	q.Products, err = pgx.CollectRows(rows, pgx.RowToStructByPos[Line])
	return q, err
}

// Create inserts the quotation and its products in one transaction.
func (s *pgStore) Create(ctx context.Context, q Quotation) (Quotation, error) {
	var out Quotation
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
INSERT INTO quotations (shop_id, quotation_number, quotation_date, quotation_terms, discount,
	discount_type, subtotal, discount_amount, tax_amount, grand_total)
VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10)
RETURNING `+quotationColumns,
			q.ShopID, q.QuotationNumber, q.QuotationDate, q.QuotationTerms, q.Discount,
			q.DiscountType, q.Subtotal, q.DiscountAmount, q.TaxAmount, q.GrandTotal)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, scanQuotation)
		if err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, l := range q.Products {
			batch.Queue(`INSERT INTO quotation_items (quotation_id, position, product_id, name, price, quantity)
VALUES ($1, $2, $3, $4, $5, $6)`, out.ID, i, l.ProductID, l.Name, l.Price, l.Quantity)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return Quotation{}, err
	}
	out.Products = q.Products
	return out, nil
}

// Delete removes a quotation; its products go with it.
func (s *pgStore) Delete(ctx context.Context, shopID, id int64) (Quotation, error) {
	rows, err := s.db.Query(ctx, `
DELETE FROM quotations
WHERE quotation_id = $2 AND ($1::bigint = 0 OR shop_id = $1)
RETURNING `+quotationColumns, shopID, id)
	if err != nil {
		return Quotation{}, err
	}
	return pgx.CollectExactlyOneRow(rows, scanQuotation)
}
