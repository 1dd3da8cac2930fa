// Package customer manages the customers of a shop.
package customer

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/listing"
)

// Customer is a buyer registered by a shop.
type Customer struct {
	ID               int64     `json:"customerId"`
	ShopID           int64     `json:"shopId"`
	CustomerName     string    `json:"customerName"`
	CustomerEmailID  string    `json:"customerEmailId"`
	CustomerMobileNo string    `json:"customerMobileNo"`
	CustomerAddress  string    `json:"customerAddress"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Field implements listing.Record.
func (c Customer) Field(name string) (any, bool) {
	var v string
	switch name {
	case "customerId":
		v = strconv.FormatInt(c.ID, 10)
	case "shopId":
		v = strconv.FormatInt(c.ShopID, 10)
	case "customerName":
		v = c.CustomerName
	case "customerEmailId":
		v = c.CustomerEmailID
	case "customerMobileNo":
		v = c.CustomerMobileNo
	case "customerAddress":
		v = c.CustomerAddress
	case "createdAt":
		return c.CreatedAt, !c.CreatedAt.IsZero()
	}
	return v, v != ""
}

// Fields configures the customers list screen.
var Fields = listing.Fields{
	Searchable:  []string{"customerName", "customerEmailId"},
	Exact:       []string{"customerMobileNo"},
	DefaultSort: "customerName",
}

// Input is the create and update payload. ShopID falls back to the shop of
// the request scope.
type Input struct {
	ShopID           common.FlexInt `json:"shopId" validate:"required,gt=0"`
	CustomerName     string         `json:"customerName" validate:"required,max=200"`
	CustomerEmailID  string         `json:"customerEmailId" validate:"omitempty,email"`
	CustomerMobileNo string         `json:"customerMobileNo" validate:"max=20"`
	CustomerAddress  string         `json:"customerAddress" validate:"max=500"`
}

// UnmarshalJSON also accepts the short keys Name, Email, MobileNo and
// Address used by the admin customer form.
func (in *Input) UnmarshalJSON(data []byte) error {
	type plain Input
	var w struct {
		plain
		Name     string `json:"Name"`
		Email    string `json:"Email"`
		MobileNo string `json:"MobileNo"`
		Address  string `json:"Address"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*in = Input(w.plain)
	in.CustomerName = firstNonBlank(in.CustomerName, w.Name)
	in.CustomerEmailID = firstNonBlank(in.CustomerEmailID, w.Email)
	in.CustomerMobileNo = firstNonBlank(in.CustomerMobileNo, w.MobileNo)
	in.CustomerAddress = firstNonBlank(in.CustomerAddress, w.Address)
	return nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func (in Input) normalized() Input {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmailID = strings.ToLower(strings.TrimSpace(in.CustomerEmailID))
	in.CustomerMobileNo = strings.TrimSpace(in.CustomerMobileNo)
	in.CustomerAddress = strings.TrimSpace(in.CustomerAddress)
	return in
}
