package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-admin/internal/account"
	"github.com/noah-isme/toko-admin/internal/app"
	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/config"
	"github.com/noah-isme/toko-admin/internal/customer"
	"github.com/noah-isme/toko-admin/internal/obs"
	"github.com/noah-isme/toko-admin/internal/product"
	"github.com/noah-isme/toko-admin/internal/shop"
)

type demoShop struct {
	input    shop.Input
	products []product.Input
}

var demoAccounts = []account.Input{
	{CustomerName: "Budi Santoso", CustomerEmailID: "budi@toko.test", CustomerMobileNo: "081200000001", CustomerAddress: "Jl. Merdeka 1, Bandung"},
	{CustomerName: "Siti Aminah", CustomerEmailID: "siti@toko.test", CustomerMobileNo: "081200000002", CustomerAddress: "Jl. Sudirman 8, Jakarta"},
}

var demoShops = []demoShop{
	{
		input: shop.Input{
			ShopName: "Apotek Sehat", ShopType: "medical", ShopOwnerName: "Budi Santoso",
			ShopEmailID: "apotek@toko.test", ShopMobileNumber: "0227000001",
			ShopCity: "Bandung", ShopCityZipCode: "40111", PackageType: "standard",
		},
		products: []product.Input{
			{Name: "Paracetamol 500mg", Price: decimal.RequireFromString("12500"), Stock: 200, Category: "Medical Supplies", BaseUnit: "strip"},
			{Name: "Masker Medis", Price: decimal.RequireFromString("35000"), Stock: 80, Category: "Medical Supplies", BaseUnit: "box"},
		},
	},
	{
		input: shop.Input{
			ShopName: "Sepatu Kita", ShopType: "footwear", ShopOwnerName: "Siti Aminah",
			ShopEmailID: "sepatu@toko.test", ShopMobileNumber: "0217000002",
			ShopCity: "Jakarta", ShopCityZipCode: "10220", PackageType: "premium",
		},
		products: []product.Input{
			{Name: "Sneakers Kanvas", Price: decimal.RequireFromString("250000"), Stock: 40, Category: "Footwear", BaseUnit: "pair"},
			{Name: "Sandal Gunung", Price: decimal.RequireFromString("175000"), Stock: 25, Category: "Footwear", BaseUnit: "pair"},
			{Name: "Kaus Kaki Olahraga", Price: decimal.RequireFromString("30000"), Stock: 120, Category: "Clothing", BaseUnit: "pair"},
		},
	},
}

var demoCustomers = []customer.Input{
	{CustomerName: "Andi Pratama", CustomerEmailID: "andi@example.com", CustomerMobileNo: "081300000001", CustomerAddress: "Cimahi"},
	{CustomerName: "Dewi Lestari", CustomerEmailID: "dewi@example.com", CustomerMobileNo: "081300000002", CustomerAddress: "Depok"},
}

func main() {
	timeout := flag.Duration("timeout", time.Minute, "overall seeding deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	deps, err := app.Open(ctx, cfg, logger, app.Options{AppName: "toko-admin-seeder"})
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close()

	svcs, err := app.NewServices(deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise services")
	}

	if err := seed(ctx, svcs); err != nil {
		logger.Fatal().Err(err).Msg("seed demo data")
	}
	logger.Info().Msg("seeding completed")
}

func seed(ctx context.Context, svcs *app.Services) error {
	var accountIDs []int64
	for _, in := range demoAccounts {
		acc, err := svcs.Accounts.Create(ctx, in)
		if err != nil {
			if conflict(err) {
				continue
			}
			return fmt.Errorf("account %s: %w", in.CustomerEmailID, err)
		}
		accountIDs = append(accountIDs, acc.ID)
	}
	if len(accountIDs) == 0 {
		return errors.New("demo accounts already exist; nothing to seed")
	}

	for i, ds := range demoShops {
		in := ds.input
		in.AccountID = common.FlexInt(accountIDs[i%len(accountIDs)])
		sh, err := svcs.Shops.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("shop %s: %w", in.ShopName, err)
		}
		for _, p := range ds.products {
			p.ShopID = common.FlexInt(sh.ID)
			p.Keywords = strings.ToLower(p.Name)
			if _, err := svcs.Products.Create(ctx, p); err != nil {
				return fmt.Errorf("product %s: %w", p.Name, err)
			}
		}
		for _, c := range demoCustomers {
			c.ShopID = common.FlexInt(sh.ID)
			if _, err := svcs.Customers.Create(ctx, c); err != nil && !conflict(err) {
				return fmt.Errorf("customer %s: %w", c.CustomerName, err)
			}
		}
	}
	return nil
}

func conflict(err error) bool {
	var appErr *common.AppError
	return errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusConflict
}
