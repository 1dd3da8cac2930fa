// Package shop manages the shops registered under customer accounts.
package shop

import (
	"slices"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/listing"
)

// Shop is one retail shop.
type Shop struct {
	ID               int64     `json:"shopId"`
	AccountID        int64     `json:"accountId"`
	ShopName         string    `json:"shopName"`
	ShopType         string    `json:"shopType"`
	ShopOwnerName    string    `json:"shopOwnerName"`
	ShopEmailID      string    `json:"shopEmailId"`
	ShopMobileNumber string    `json:"shopMobileNumber"`
	ShopCity         string    `json:"shopCity"`
	ShopCityZipCode  string    `json:"shopCityZipCode"`
	PackageType      string    `json:"packageType"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Field implements listing.Record. The id is exposed as a string so it can
// be matched as a substring.
func (s Shop) Field(name string) (any, bool) {
	var v string
	switch name {
	case "shopId":
		v = strconv.FormatInt(s.ID, 10)
	case "accountId":
		v = strconv.FormatInt(s.AccountID, 10)
	case "shopName":
		v = s.ShopName
	case "shopType":
		v = s.ShopType
	case "shopOwnerName":
		v = s.ShopOwnerName
	case "shopEmailId":
		v = s.ShopEmailID
	case "shopMobileNumber":
		v = s.ShopMobileNumber
	case "shopCity":
		v = s.ShopCity
	case "shopCityZipCode":
		v = s.ShopCityZipCode
	case "packageType":
		v = s.PackageType
	case "createdAt":
		return s.CreatedAt, !s.CreatedAt.IsZero()
	}
	return v, v != ""
}

// Fields configures the shops list screen.
var Fields = listing.Fields{
	Searchable:  []string{"shopName", "shopOwnerName", "shopCity", "shopType"},
	Exact:       []string{"shopId"},
	Category:    "shopType",
	DefaultSort: "shopName",
}

// Shop types and packages offered by the registration form.
var (
	Types    = []string{"medical", "general", "bakery", "footwear", "electrical"}
	Packages = []string{"basic", "standard", "premium"}
)

func init() {
	common.RegisterValidation("shop_type", oneOf(Types))
	common.RegisterValidation("shop_package", oneOf(Packages))
}

func oneOf(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(values, fl.Field().String())
	}
}

// Input is the create and update payload. Every field is required.
type Input struct {
	ShopName         string         `json:"shopName" validate:"required,max=200"`
	ShopType         string         `json:"shopType" validate:"required,shop_type"`
	ShopOwnerName    string         `json:"shopOwnerName" validate:"required,max=200"`
	ShopEmailID      string         `json:"shopEmailId" validate:"required,email"`
	ShopMobileNumber string         `json:"shopMobileNumber" validate:"required,max=20"`
	ShopCity         string         `json:"shopCity" validate:"required,max=100"`
	ShopCityZipCode  string         `json:"shopCityZipCode" validate:"required,max=12"`
	AccountID        common.FlexInt `json:"accountId" validate:"required,gt=0"`
	PackageType      string         `json:"packageType" validate:"required,shop_package"`
}

func (in Input) normalized() Input {
	in.ShopName = strings.TrimSpace(in.ShopName)
	in.ShopType = strings.ToLower(strings.TrimSpace(in.ShopType))
	in.ShopOwnerName = strings.TrimSpace(in.ShopOwnerName)
	in.ShopEmailID = strings.ToLower(strings.TrimSpace(in.ShopEmailID))
	in.ShopMobileNumber = NormalizeMobile(in.ShopMobileNumber)
	in.ShopCity = strings.TrimSpace(in.ShopCity)
	in.ShopCityZipCode = strings.TrimSpace(in.ShopCityZipCode)
	in.PackageType = strings.ToLower(strings.TrimSpace(in.PackageType))
	return in
}

// NormalizeMobile strips a leading +91 country code and surrounding spaces.
func NormalizeMobile(number string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(number), "+91"))
}
