package invoice

import (
	"context"
	"errors"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/db"
	"github.com/noah-isme/toko-admin/internal/events"
	"github.com/noah-isme/toko-admin/internal/listing"
	"github.com/noah-isme/toko-admin/internal/listview"
	"github.com/noah-isme/toko-admin/internal/numbering"
	"github.com/noah-isme/toko-admin/internal/obs"
	"github.com/noah-isme/toko-admin/internal/tenant"
	"github.com/noah-isme/toko-admin/internal/totals"
)

const entity = "invoices"

var errNotConfigured = errors.New("invoice service not configured")

// Numberer issues document numbers. *numbering.Generator implements it.
type Numberer interface {
	OrDefault(number, prefix string) string
}

// Service implements invoice use cases within the request's shop scope.
type Service struct {
	Store   Store
	View    *listview.View[Invoice]
	Numbers Numberer
	Calc    totals.Calculator
	Events  events.Emitter
	Logger  zerolog.Logger
}

// NewService wires the list view to store. Invoices take tax as an entered
// amount.
func NewService(store Store, view listview.View[Invoice], numbers Numberer, em events.Emitter, log zerolog.Logger) *Service {
	view.Entity = entity
	view.Fields = Fields
	view.Load = store.List
	view.Logger = log
	return &Service{Store: store, View: &view, Numbers: numbers, Calc: totals.Invoice, Events: em, Logger: log}
}

// Line is a priced line of a preview.
type Line struct {
	totals.Item
	Total decimal.Decimal `json:"total"`
}

// Preview is the server-side pricing of an invoice form.
type Preview struct {
	Items          []Line          `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Amount         decimal.Decimal `json:"amount"`
}

// Preview prices in without storing anything. Amounts are rounded to two
// places.
func (s *Service) Preview(ctx context.Context, in Input) (Preview, error) {
	in, err := s.prepare(ctx, in)
	if err != nil {
		return Preview{}, err
	}
	items := in.lines()
	t, _, err := s.compute(items, in)
	if err != nil {
		return Preview{}, err
	}
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{Item: it, Total: it.Total().Round(2)})
	}
	t = t.Rounded()
	return Preview{
		Items:          lines,
		Subtotal:       t.Subtotal,
		DiscountAmount: t.DiscountAmount,
		TaxAmount:      t.TaxAmount,
		Amount:         t.GrandTotal,
	}, nil
}

// Create prices and stores an invoice. The number is generated when the
// form leaves it blank, and createdBy defaults to the token subject.
func (s *Service) Create(ctx context.Context, in Input) (Invoice, error) {
	if s == nil || s.Store == nil || s.Numbers == nil {
		return Invoice{}, errNotConfigured
	}
	in, err := s.prepare(ctx, in)
	if err != nil {
		return Invoice{}, err
	}
	items := in.lines()
	t, dt, err := s.compute(items, in)
	if err != nil {
		return Invoice{}, err
	}
	if err := s.checkCustomer(ctx, in.ShopID.Int64(), in.CustomerID.Int64()); err != nil {
		return Invoice{}, err
	}
	createdBy := string(in.CreatedBy)
	if createdBy == "" {
		createdBy, _ = common.UserID(ctx)
	}
	inv, err := s.Store.Create(ctx, Invoice{
		ShopID:         in.ShopID.Int64(),
		CustomerID:     in.CustomerID.Int64(),
		InvoiceNumber:  s.Numbers.OrDefault(in.InvoiceNumber, numbering.InvoicePrefix),
		DueDate:        in.DueDate,
		PaymentMode:    in.PaymentMode,
		Discount:       in.Discount,
		DiscountType:   string(dt),
		TaxAmount:      t.TaxAmount,
		Subtotal:       t.Subtotal,
		DiscountAmount: t.DiscountAmount,
		Amount:         t.GrandTotal,
		Status:         in.Status,
		CreatedBy:      createdBy,
		Items:          items,
	})
	if errors.Is(err, ErrCustomerNotInShop) {
		return Invoice{}, common.BadRequest("customerId", err.Error(), err)
	}
	if err != nil {
		return Invoice{}, db.Error("invoice", err)
	}
	if s.View != nil {
		s.View.Invalidate(ctx, inv.ShopID)
	}
	events.Publish(tenant.WithShopID(ctx, inv.ShopID), s.Events, s.Logger, events.TopicInvoiceCreated, inv.ID, map[string]any{
		"invoiceId":     inv.ID,
		"invoiceNumber": inv.InvoiceNumber,
		"customerId":    inv.CustomerID,
		"amount":        inv.Amount.StringFixed(2),
		"status":        inv.Status,
	})
	return inv, nil
}

// List returns one page of the scoped shop's invoices without their items.
func (s *Service) List(ctx context.Context, values url.Values) (listing.Page[Invoice], error) {
	if s == nil || s.View == nil {
		return listing.Page[Invoice]{}, errNotConfigured
	}
	shopID, _ := tenant.ShopID(ctx)
	return s.View.List(ctx, shopID, values)
}

// Get returns one invoice with its items.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	shopID, _ := tenant.ShopID(ctx)
	inv, err := s.Store.Get(ctx, shopID, id)
	return inv, db.Error("invoice", err)
}

func (s *Service) prepare(ctx context.Context, in Input) (Input, error) {
	in = in.normalized()
	if scope, ok := tenant.ShopID(ctx); ok {
		if in.ShopID == 0 {
			in.ShopID = common.FlexInt(scope)
		} else if in.ShopID.Int64() != scope {
			return Input{}, common.BadRequest("shopId", "shopId does not match the selected shop", nil)
		}
	}
	if err := common.Validate(in); err != nil {
		return Input{}, err
	}
	return in, nil
}

func (s *Service) checkCustomer(ctx context.Context, shopID, customerID int64) error {
	ok, err := s.Store.CustomerInShop(ctx, shopID, customerID)
	if err != nil {
		return db.Error("customer", err)
	}
	if !ok {
		return common.BadRequest("customerId", ErrCustomerNotInShop.Error(), ErrCustomerNotInShop)
	}
	return nil
}

func (s *Service) compute(items []totals.Item, in Input) (totals.Totals, totals.DiscountType, error) {
	err := totals.CheckItems(items)
	if err == nil {
		err = totals.CheckEntered("discount", in.Discount)
	}
	if err == nil {
		err = totals.CheckEntered("taxAmount", in.TaxAmount)
	}
	if err != nil {
		obs.ObserveTotals("invoice", err)
		return totals.Totals{}, "", amountError(err)
	}
	dt, err := totals.ParseDiscountType(in.DiscountType)
	if err != nil {
		obs.ObserveTotals("invoice", err)
		return totals.Totals{}, "", amountError(err)
	}
	t, err := s.Calc.Compute(items, totals.Discount{Value: in.Discount, Type: dt}, in.TaxAmount)
	obs.ObserveTotals("invoice", err)
	if err != nil {
		return totals.Totals{}, "", amountError(err)
	}
	return t, dt, nil
}

func amountError(err error) error {
	var aerr *totals.AmountError
	if errors.As(err, &aerr) {
		return common.BadRequest(aerr.Field, aerr.Reason, err)
	}
	return common.BadRequest("amount", err.Error(), err)
}
