// Package invoice issues shop invoices. Totals are always derived on the
// server from the line items; amounts sent by the client are ignored.
package invoice

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/listing"
	"github.com/noah-isme/toko-admin/internal/totals"
)

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// DefaultStatus is assigned when an invoice is created without a status.
const DefaultStatus = "Pending"

// PaymentModes lists the accepted payment modes in their canonical spelling.
var PaymentModes = []string{"Cash", "Card", "Online"}

// Invoice is a stored invoice. Items are only populated by Get.
type Invoice struct {
	ID             int64           `json:"invoiceId"`
	ShopID         int64           `json:"shopId"`
	CustomerID     int64           `json:"customerId"`
	InvoiceNumber  string          `json:"invoiceNumber"`
	DueDate        string          `json:"dueDate"`
	PaymentMode    string          `json:"paymentMode"`
	Discount       decimal.Decimal `json:"discount"`
	DiscountType   string          `json:"discountType"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	CreatedBy      string          `json:"createdBy"`
	CreatedOn      time.Time       `json:"createdOn"`
	Items          []totals.Item   `json:"items,omitempty"`
}

// Field implements listing.Record.
func (inv Invoice) Field(name string) (any, bool) {
	var v string
	switch name {
	case "invoiceId":
		v = strconv.FormatInt(inv.ID, 10)
	case "shopId":
		v = strconv.FormatInt(inv.ShopID, 10)
	case "customerId":
		v = strconv.FormatInt(inv.CustomerID, 10)
	case "invoiceNumber":
		v = inv.InvoiceNumber
	case "dueDate":
		v = inv.DueDate
	case "paymentMode":
		v = inv.PaymentMode
	case "status":
		v = inv.Status
	case "amount":
		v = inv.Amount.String()
	case "createdBy":
		v = inv.CreatedBy
	case "createdOn":
		return inv.CreatedOn, !inv.CreatedOn.IsZero()
	}
	return v, v != ""
}

// Fields configures the invoices list screen.
var Fields = listing.Fields{
	Searchable:  []string{"invoiceNumber", "status", "paymentMode"},
	Category:    "status",
	DefaultSort: "invoiceNumber",
}

// ItemInput is one line of an invoice form. A client-computed line total
// is not read.
type ItemInput struct {
	ProductID   common.FlexInt  `json:"productId"`
	ProductName string          `json:"productName" validate:"required,max=200"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Input is the create and preview payload.
type Input struct {
	ShopID        common.FlexInt    `json:"shopId" validate:"required,gt=0"`
	CustomerID    common.FlexInt    `json:"customerId" validate:"required,gt=0"`
	InvoiceNumber string            `json:"invoiceNumber" validate:"max=64"`
	DueDate       string            `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	PaymentMode   string            `json:"paymentMode" validate:"omitempty,oneof=Cash Card Online"`
	Discount      decimal.Decimal   `json:"discount"`
	DiscountType  string            `json:"discountType"`
	TaxAmount     decimal.Decimal   `json:"taxAmount"`
	Status        string            `json:"status" validate:"max=32"`
	CreatedBy     common.FlexString `json:"createdBy" validate:"max=100"`
	Items         []ItemInput       `json:"items" validate:"dive"`
}

func (in Input) normalized() Input {
	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	in.DueDate = normalizeDate(in.DueDate)
	in.PaymentMode = canonicalMode(in.PaymentMode)
	in.Status = strings.TrimSpace(in.Status)
	if in.Status == "" {
		in.Status = DefaultStatus
	}
	in.CreatedBy = common.FlexString(strings.TrimSpace(string(in.CreatedBy)))
	for i := range in.Items {
		in.Items[i].ProductName = strings.TrimSpace(in.Items[i].ProductName)
	}
	return in
}

// lines converts the form items for the calculator.
func (in Input) lines() []totals.Item {
	items := make([]totals.Item, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, totals.Item{
			ProductID:   it.ProductID.Int64(),
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
		})
	}
	return items
}

// normalizeDate accepts a plain date or an RFC 3339 timestamp, as sent by
// date pickers, and keeps the date part.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DateLayout)
	}
	return s
}

func canonicalMode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return PaymentModes[0]
	}
	for _, m := range PaymentModes {
		if strings.EqualFold(m, s) {
			return m
		}
	}
	return s
}
