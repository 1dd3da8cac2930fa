// Package quotation prepares price quotations for shops and renders them as
// PDF documents.
package quotation

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/listing"
	"github.com/noah-isme/toko-admin/internal/totals"
)

// DateLayout is the wire format of quotation dates.
const DateLayout = "2006-01-02"

// Line is one quoted product.
type Line struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Total is price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(l.Quantity)
}

// MarshalJSON adds the line total.
func (l Line) MarshalJSON() ([]byte, error) {
	type plain Line
	return json.Marshal(struct {
		plain
		Total decimal.Decimal `json:"total"`
	}{plain(l), l.Total()})
}

func (l Line) item() totals.Item {
	return totals.Item{ProductID: l.ProductID, ProductName: l.Name, Quantity: l.Quantity, UnitPrice: l.Price}
}

// Quotation is a stored quotation. Products are only populated by Get.
type Quotation struct {
	ID              int64           `json:"quotationId"`
	ShopID          int64           `json:"shopId"`
	QuotationNumber string          `json:"quotationNumber"`
	QuotationDate   string          `json:"quotationDate"`
	QuotationTerms  string          `json:"quotationTerms"`
	Discount        decimal.Decimal `json:"discount"`
	DiscountType    string          `json:"discountType"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	GrandTotal      decimal.Decimal `json:"grandTotal"`
	CreatedAt       time.Time       `json:"createdAt"`
	Products        []Line          `json:"products,omitempty"`
}

// Totals returns the stored amounts.
func (q Quotation) Totals() totals.Totals {
	return totals.Totals{
		Subtotal:       q.Subtotal,
		DiscountAmount: q.DiscountAmount,
		TaxAmount:      q.TaxAmount,
		GrandTotal:     q.GrandTotal,
	}
}

// Field implements listing.Record.
func (q Quotation) Field(name string) (any, bool) {
	var v string
	switch name {
	case "quotationId":
		v = strconv.FormatInt(q.ID, 10)
	case "shopId":
		v = strconv.FormatInt(q.ShopID, 10)
	case "quotationNumber":
		v = q.QuotationNumber
	case "quotationDate":
		v = q.QuotationDate
	case "quotationTerms":
		v = q.QuotationTerms
	case "grandTotal":
		v = q.GrandTotal.String()
	case "createdAt":
		return q.CreatedAt, !q.CreatedAt.IsZero()
	}
	return v, v != ""
}

// Fields configures the quotations list screen.
var Fields = listing.Fields{
	Searchable:  []string{"quotationNumber", "quotationTerms"},
	DefaultSort: "quotationNumber",
}

// LineInput is one product of the quotation form.
type LineInput struct {
	ProductID common.FlexInt  `json:"productId"`
	Name      string          `json:"name" validate:"required,max=200"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Input is the create and preview payload.
type Input struct {
	ShopID          common.FlexInt  `json:"shopId" validate:"required,gt=0"`
	QuotationNumber string          `json:"quotationNumber" validate:"max=64"`
	QuotationDate   string          `json:"quotationDate" validate:"omitempty,datetime=2006-01-02"`
	QuotationTerms  string          `json:"quotationTerms" validate:"max=1000"`
	Discount        decimal.Decimal `json:"discount"`
	DiscountType    string          `json:"discountType"`
	Products        []LineInput     `json:"products" validate:"required,min=1,dive"`
}

func (in Input) normalized() Input {
	in.QuotationNumber = strings.TrimSpace(in.QuotationNumber)
	in.QuotationDate = strings.TrimSpace(in.QuotationDate)
	if t, err := time.Parse(time.RFC3339, in.QuotationDate); err == nil {
		in.QuotationDate = t.Format(DateLayout)
	}
	in.QuotationTerms = strings.TrimSpace(in.QuotationTerms)
	for i := range in.Products {
		in.Products[i].Name = strings.TrimSpace(in.Products[i].Name)
	}
	return in
}

func (in Input) lines() []Line {
	lines := make([]Line, 0, len(in.Products))
	for _, p := range in.Products {
		lines = append(lines, Line{ProductID: p.ProductID.Int64(), Name: p.Name, Price: p.Price, Quantity: p.Quantity})
	}
	return lines
}
