// Package product manages a shop's product catalogue.
package product

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/listing"
)

// Categories is the fixed set of product categories.
var Categories = []string{
	"Electronics",
	"Clothing",
	"Groceries",
	"Footwear",
	"Books",
	"Home Appliances",
	"Toys",
	"Furniture",
	"Medical Supplies",
	"Sports Equipment",
}

func init() {
	common.RegisterValidation("product_category", func(fl validator.FieldLevel) bool {
		return slices.Contains(Categories, fl.Field().String())
	})
}

// Product is one catalogue entry. Quantity is expressed in BaseUnit;
// ConversionFactor converts it to TargetUnit.
type Product struct {
	ID               int64           `json:"id"`
	ShopID           int64           `json:"shop_id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	Quantity         decimal.Decimal `json:"quantity"`
	Stock            int64           `json:"stock"`
	Category         string          `json:"category"`
	Keywords         string          `json:"keywords"`
	BaseUnit         string          `json:"base_unit"`
	TargetUnit       string          `json:"target_unit"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// ConvertedQuantity is Quantity expressed in TargetUnit.
func (p Product) ConvertedQuantity() decimal.Decimal {
	return p.Quantity.Mul(p.ConversionFactor)
}

// MarshalJSON adds converted_quantity to the stored fields.
func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		ConvertedQuantity decimal.Decimal `json:"converted_quantity"`
	}{plain(p), p.ConvertedQuantity()})
}

// Field implements listing.Record. Numbers are exposed in their canonical
// decimal string form.
func (p Product) Field(name string) (any, bool) {
	var v string
	switch name {
	case "id":
		v = strconv.FormatInt(p.ID, 10)
	case "shop_id":
		v = strconv.FormatInt(p.ShopID, 10)
	case "name":
		v = p.Name
	case "description":
		v = p.Description
	case "price":
		v = p.Price.String()
	case "quantity":
		v = p.Quantity.String()
	case "stock":
		v = strconv.FormatInt(p.Stock, 10)
	case "category":
		v = p.Category
	case "keywords":
		v = p.Keywords
	case "converted_quantity":
		v = p.ConvertedQuantity().String()
	case "createdAt":
		return p.CreatedAt, !p.CreatedAt.IsZero()
	}
	return v, v != ""
}

// Fields configures the products list screen.
var Fields = listing.Fields{
	Searchable:  []string{"name", "description", "category"},
	Exact:       []string{"price"},
	Category:    "category",
	DefaultSort: "name",
}

// Input is the create and update payload. Numbers may arrive as strings.
type Input struct {
	ShopID           common.FlexInt  `json:"shop_id" validate:"required,gt=0"`
	Name             string          `json:"name" validate:"required,max=200"`
	Description      string          `json:"description" validate:"max=2000"`
	Price            decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity         decimal.Decimal `json:"quantity" validate:"gte=0"`
	Stock            common.FlexInt  `json:"stock" validate:"gte=0"`
	Category         string          `json:"category" validate:"required,product_category"`
	Keywords         string          `json:"keywords" validate:"max=500"`
	BaseUnit         string          `json:"base_unit" validate:"max=32"`
	TargetUnit       string          `json:"target_unit" validate:"max=32"`
	ConversionFactor decimal.Decimal `json:"conversion_factor" validate:"gte=0"`
}

func (in Input) normalized() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Keywords = strings.TrimSpace(in.Keywords)
	in.BaseUnit = strings.TrimSpace(in.BaseUnit)
	in.TargetUnit = strings.TrimSpace(in.TargetUnit)
	if in.ConversionFactor.IsZero() {
		in.ConversionFactor = decimal.NewFromInt(1)
	}
	return in
}
