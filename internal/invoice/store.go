package invoice

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/toko-admin/internal/db"
	"github.com/noah-isme/toko-admin/internal/totals"
)

// Store persists invoices. A shopID of 0 disables the shop filter.
type Store interface {
	List(ctx context.Context, shopID int64) ([]Invoice, error)
	Get(ctx context.Context, shopID, id int64) (Invoice, error)
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	// CustomerInShop reports whether the customer is registered with the shop.
	CustomerInShop(ctx context.Context, shopID, customerID int64) (bool, error)
}

// ErrCustomerNotInShop is returned when an invoice names a customer of
// another shop.
var ErrCustomerNotInShop = errors.New("customer does not belong to the shop")

// customerShopFK ties invoices.(customer_id, shop_id) to customers.
const customerShopFK = "invoices_customer_shop_fkey"

const invoiceColumns = `invoice_id, shop_id, customer_id, invoice_number,
	COALESCE(to_char(due_date, 'YYYY-MM-DD'), ''), payment_mode, discount, discount_type, tax_amount,
	subtotal, discount_amount, amount, status, created_by, created_on`

type pgStore struct {
	db db.TxBeginner
}

// NewStore returns a Postgres-backed Store.
func NewStore(q db.TxBeginner) Store {
	return &pgStore{db: q}
}

func scanInvoice(row pgx.CollectableRow) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.ShopID, &inv.CustomerID, &inv.InvoiceNumber,
		&inv.DueDate, &inv.PaymentMode, &inv.Discount, &inv.DiscountType, &inv.TaxAmount,
		&inv.Subtotal, &inv.DiscountAmount, &inv.Amount, &inv.Status, &inv.CreatedBy, &inv.CreatedOn)
	return inv, err
}

func (s *pgStore) List(ctx context.Context, shopID int64) ([]Invoice, error) {
	rows, err := s.db.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE ($1::bigint = 0 OR shop_id = $1) ORDER BY invoice_id`, shopID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanInvoice)
}

func (s *pgStore) Get(ctx context.Context, shopID, id int64) (Invoice, error) {
	rows, err := s.db.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE invoice_id = $2 AND ($1::bigint = 0 OR shop_id = $1)`, shopID, id)
	if err != nil {
		return Invoice{}, err
	}
	inv, err := pgx.CollectExactlyOneRow(rows, scanInvoice)
	if err != nil {
		return Invoice{}, err
	}
	rows, err = s.db.Query(ctx, `SELECT product_id, product_name, quantity, price
FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items, err = pgx.CollectRows(rows, pgx.RowToStructByPos[totals.Item])
	return inv, err
}

func (s *pgStore) CustomerInShop(ctx context.Context, shopID, customerID int64) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE customer_id = $2 AND shop_id = $1)`,
		shopID, customerID).Scan(&ok)
	return ok, err
}

// Create inserts the header and its items in one transaction.
func (s *pgStore) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	var out Invoice
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
INSERT INTO invoices (shop_id, customer_id, invoice_number, due_date, payment_mode, discount,
	discount_type, tax_amount, subtotal, discount_amount, amount, status, created_by)
VALUES ($1, $2, $3, NULLIF($4, '')::date, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING `+invoiceColumns,
			inv.ShopID, inv.CustomerID, inv.InvoiceNumber, inv.DueDate, inv.PaymentMode, inv.Discount,
			inv.DiscountType, inv.TaxAmount, inv.Subtotal, inv.DiscountAmount, inv.Amount, inv.Status, inv.CreatedBy)
		if err != nil {
			return err
		}
		out, err = pgx.CollectExactlyOneRow(rows, scanInvoice)
		if err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, it := range inv.Items {
			batch.Queue(`INSERT INTO invoice_items (invoice_id, position, product_id, product_name, quantity, price)
VALUES ($1, $2, $3, $4, $5, $6)`, out.ID, i, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == customerShopFK {
		return Invoice{}, ErrCustomerNotInShop
	}
	if err != nil {
		return Invoice{}, err
	}
	out.Items = inv.Items
	return out, nil
}
