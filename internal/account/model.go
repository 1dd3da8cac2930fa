// Package account manages the customer accounts that own shops. Accounts are
// a superadmin concern and are never shop scoped.
package account

import (
	"strings"
	"time"

	"github.com/noah-isme/toko-admin/internal/listing"
)

// Account is one customer account.
type Account struct {
	ID               int64     `json:"accountId"`
	CustomerName     string    `json:"customerName"`
	CustomerEmailID  string    `json:"customerEmailId"`
	CustomerMobileNo string    `json:"customerMobileNo"`
	CustomerAddress  string    `json:"customerAddress"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Field implements listing.Record.
func (a Account) Field(name string) (any, bool) {
	switch name {
	case "accountId":
		return a.ID, true
	case "customerName":
		return a.CustomerName, a.CustomerName != ""
	case "customerEmailId":
		return a.CustomerEmailID, a.CustomerEmailID != ""
	case "customerMobileNo":
		return a.CustomerMobileNo, a.CustomerMobileNo != ""
	case "customerAddress":
		return a.CustomerAddress, a.CustomerAddress != ""
	case "createdAt":
		return a.CreatedAt, !a.CreatedAt.IsZero()
	default:
		return nil, false
	}
}

// Fields configures the accounts list screen.
var Fields = listing.Fields{
	Searchable:  []string{"customerName", "customerEmailId"},
	Exact:       []string{"customerMobileNo"},
	DefaultSort: "customerName",
}

// Input is the create and update payload.
type Input struct {
	CustomerName     string `json:"customerName" validate:"required,max=200"`
	CustomerEmailID  string `json:"customerEmailId" validate:"required,email,max=320"`
	CustomerMobileNo string `json:"customerMobileNo" validate:"required,max=20"`
	CustomerAddress  string `json:"customerAddress" validate:"max=500"`
}

func (in Input) normalized() Input {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmailID = strings.ToLower(strings.TrimSpace(in.CustomerEmailID))
	in.CustomerMobileNo = strings.TrimSpace(in.CustomerMobileNo)
	in.CustomerAddress = strings.TrimSpace(in.CustomerAddress)
	return in
}
