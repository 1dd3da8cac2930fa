package quotation

import (
	"context"
	"errors"
	"net/url"
	"time"

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

const entity = "quotations"

// DefaultTerms is used when a quotation is saved without terms.
const DefaultTerms = "Payment due within 30 days."

var errNotConfigured = errors.New("quotation service not configured")

// Numberer issues document numbers. *numbering.Generator implements it.
type Numberer interface {
	OrDefault(number, prefix string) string
}

// Service implements quotation use cases within the request's shop scope.
type Service struct {
	Store   Store
	View    *listview.View[Quotation]
	Numbers Numberer
	Calc    totals.Calculator
	Terms   string
	Events  events.Emitter
	Logger  zerolog.Logger
	Now     func() time.Time
}

// NewService wires the list view to store. Tax is charged as a percentage of
// the net amount at totals.DefaultTaxRate until Calc is replaced.
func NewService(store Store, view listview.View[Quotation], numbers Numberer, em events.Emitter, log zerolog.Logger) *Service {
	view.Entity = entity
	view.Fields = Fields
	view.Load = store.List
	view.Logger = log
	return &Service{
		Store:   store,
		View:    &view,
		Numbers: numbers,
		Calc:    totals.Quotation,
		Terms:   DefaultTerms,
		Events:  em,
		Logger:  log,
		Now:     time.Now,
	}
}

// Preview prices in without storing anything. Amounts are rounded to two
// places.
func (s *Service) Preview(ctx context.Context, in Input) (Quotation, error) {
	q, err := s.draft(ctx, in)
	if err != nil {
		return Quotation{}, err
	}
	t := q.Totals().Rounded()
	q.Subtotal, q.DiscountAmount, q.TaxAmount, q.GrandTotal = t.Subtotal, t.DiscountAmount, t.TaxAmount, t.GrandTotal
	return q, nil
}

// Create prices and stores a quotation.
func (s *Service) Create(ctx context.Context, in Input) (Quotation, error) {
	if s == nil || s.Store == nil || s.Numbers == nil {
		return Quotation{}, errNotConfigured
	}
	q, err := s.draft(ctx, in)
	if err != nil {
		return Quotation{}, err
	}
	q.QuotationNumber = s.Numbers.OrDefault(q.QuotationNumber, numbering.QuotationPrefix)
	q, err = s.Store.Create(ctx, q)
	if err != nil {
		return Quotation{}, db.Error("quotation", err)
	}
	s.changed(ctx, events.TopicQuotationCreated, q)
	return q, nil
}

// List returns one page of the scoped shop's quotations.
func (s *Service) List(ctx context.Context, values url.Values) (listing.Page[Quotation], error) {
	if s == nil || s.View == nil {
		return listing.Page[Quotation]{}, errNotConfigured
	}
	shopID, _ := tenant.ShopID(ctx)
	return s.View.List(ctx, shopID, values)
}

// Get returns one quotation with its products.
func (s *Service) Get(ctx context.Context, id int64) (Quotation, error) {
	shopID, _ := tenant.ShopID(ctx)
	q, err := s.Store.Get(ctx, shopID, id)
	return q, db.Error("quotation", err)
}

// Delete removes a quotation visible in the scope.
func (s *Service) Delete(ctx context.Context, id int64) error {
	shopID, _ := tenant.ShopID(ctx)
	q, err := s.Store.Delete(ctx, shopID, id)
	if err != nil {
		return db.DeleteError("quotation", err)
	}
	s.changed(ctx, events.TopicQuotationDeleted, q)
	return nil
}

func (s *Service) draft(ctx context.Context, in Input) (Quotation, error) {
	in = in.normalized()
	if scope, ok := tenant.ShopID(ctx); ok {
		if in.ShopID == 0 {
			in.ShopID = common.FlexInt(scope)
		} else if in.ShopID.Int64() != scope {
			return Quotation{}, common.BadRequest("shopId", "shopId does not match the selected shop", nil)
		}
	}
	if err := common.Validate(in); err != nil {
		return Quotation{}, err
	}

	lines := in.lines()
	items := make([]totals.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, l.item())
	}
	var (
		dt totals.DiscountType
		t  totals.Totals
	)
	err := totals.CheckItems(items)
	if err == nil {
		err = totals.CheckEntered("discount", in.Discount)
	}
	if err == nil {
		dt, err = totals.ParseDiscountType(in.DiscountType)
	}
	if err == nil {
		t, err = s.Calc.Compute(items, totals.Discount{Value: in.Discount, Type: dt}, decimal.Zero)
	}
	obs.ObserveTotals("quotation", err)
	if err != nil {
		var aerr *totals.AmountError
		if errors.As(err, &aerr) {
			return Quotation{}, common.BadRequest(aerr.Field, aerr.Reason, err)
		}
		return Quotation{}, common.BadRequest("products", err.Error(), err)
	}

	date := in.QuotationDate
	if date == "" {
		date = s.now().Format(DateLayout)
	}
	terms := in.QuotationTerms
	if terms == "" {
		terms = s.Terms
	}
	return Quotation{
		ShopID:          in.ShopID.Int64(),
		QuotationNumber: in.QuotationNumber,
		QuotationDate:   date,
		QuotationTerms:  terms,
		Discount:        in.Discount,
		DiscountType:    string(dt),
		Subtotal:        t.Subtotal,
		DiscountAmount:  t.DiscountAmount,
		TaxAmount:       t.TaxAmount,
		GrandTotal:      t.GrandTotal,
		Products:        lines,
	}, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) changed(ctx context.Context, topic string, q Quotation) {
	if s.View != nil {
		s.View.Invalidate(ctx, q.ShopID)
	}
	events.Publish(tenant.WithShopID(ctx, q.ShopID), s.Events, s.Logger, topic, q.ID, map[string]any{
		"quotationId":     q.ID,
		"quotationNumber": q.QuotationNumber,
		"grandTotal":      q.GrandTotal.StringFixed(2),
	})
}
