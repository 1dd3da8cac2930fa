// Package app assembles the shared infrastructure and domain services used by
// the API server, the event worker and the seeder.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-admin/internal/account"
	"github.com/noah-isme/toko-admin/internal/cache"
	"github.com/noah-isme/toko-admin/internal/config"
	"github.com/noah-isme/toko-admin/internal/customer"
	"github.com/noah-isme/toko-admin/internal/db"
	"github.com/noah-isme/toko-admin/internal/events"
	"github.com/noah-isme/toko-admin/internal/invoice"
	"github.com/noah-isme/toko-admin/internal/listing"
	"github.com/noah-isme/toko-admin/internal/listview"
	"github.com/noah-isme/toko-admin/internal/lock"
	"github.com/noah-isme/toko-admin/internal/numbering"
	"github.com/noah-isme/toko-admin/internal/product"
	"github.com/noah-isme/toko-admin/internal/queue"
	"github.com/noah-isme/toko-admin/internal/quotation"
	"github.com/noah-isme/toko-admin/internal/shop"
)

// Dependencies holds the connections and shared helpers of one process.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Cache   *cache.Cache
	Queue   queue.Enqueuer
	Bus     *events.Bus
	Locker  lock.Locker
	Numbers *numbering.Generator
}

// Options tunes Open.
type Options struct {
	AppName        string
	RedisMetrics   bool
	ConnectTimeout time.Duration
}

// Open connects Postgres and Redis and builds the helpers on top of them.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*Dependencies, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, opts.AppName)
	if err != nil {
		return nil, err
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		log.Error().Err(err).Msg("instrument redis tracing")
	}
	if opts.RedisMetrics {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			log.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	numbers, err := numbering.New(cfg.NodeID)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, err
	}

	q := queue.Enqueuer{R: rdb, Prefix: cfg.QueuePrefix, MaxAttempts: cfg.QueueMaxAttempts}
	return &Dependencies{
		Config:  cfg,
		Logger:  log,
		DB:      pool,
		Redis:   rdb,
		Cache:   cache.New(rdb, cfg.QueuePrefix+":list", cfg.SnapshotCacheTTL),
		Queue:   q,
		Bus:     &events.Bus{Queue: q, Kind: events.DefaultKind, MaxAttempts: cfg.QueueMaxAttempts},
		Locker:  lock.Locker{R: rdb, Prefix: cfg.QueuePrefix + ":lock"},
		Numbers: numbers,
	}, nil
}

// Close releases the connections.
func (d *Dependencies) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.DB != nil {
		d.DB.Close()
	}
	return errors.Join(errs...)
}

// Services are the domain use cases, wired with list views that share the
// snapshot cache and with the event bus.
type Services struct {
	Accounts   *account.Service
	Shops      *shop.Service
	Customers  *customer.Service
	Products   *product.Service
	Invoices   *invoice.Service
	Quotations *quotation.Service
}

// NewServices builds every domain service over d. Deleting an account or a
// shop invalidates the lists of the rows removed with it.
func NewServices(d *Dependencies) (*Services, error) {
	if d == nil || d.DB == nil {
		return nil, errors.New("app: dependencies not opened")
	}
	cfg := d.Config
	defaults := listing.Defaults{PageSize: cfg.ListDefaultPageSize, MaxPageSize: cfg.ListMaxPageSize}
	logFor := func(name string) zerolog.Logger {
		return d.Logger.With().Str("component", name).Logger()
	}

	s := &Services{
		Accounts:   account.NewService(account.NewStore(d.DB), listview.View[account.Account]{Cache: d.Cache, Defaults: defaults}, d.Bus, logFor("account")),
		Shops:      shop.NewService(shop.NewStore(d.DB), listview.View[shop.Shop]{Cache: d.Cache, Defaults: defaults}, d.Bus, logFor("shop")),
		Customers:  customer.NewService(customer.NewStore(d.DB), listview.View[customer.Customer]{Cache: d.Cache, Defaults: defaults}, d.Bus, logFor("customer")),
		Products:   product.NewService(product.NewStore(d.DB), listview.View[product.Product]{Cache: d.Cache, Defaults: defaults}, d.Bus, logFor("product")),
		Invoices:   invoice.NewService(invoice.NewStore(d.DB), listview.View[invoice.Invoice]{Cache: d.Cache, Defaults: defaults}, d.Numbers, d.Bus, logFor("invoice")),
		Quotations: quotation.NewService(quotation.NewStore(d.DB), listview.View[quotation.Quotation]{Cache: d.Cache, Defaults: defaults}, d.Numbers, d.Bus, logFor("quotation")),
	}
	s.Invoices.Calc = cfg.InvoiceCalculator()
	s.Quotations.Calc = cfg.QuotationCalculator()
	s.Quotations.Terms = cfg.QuotationTerms

	perShop := []shop.Invalidator{s.Customers.View, s.Products.View, s.Invoices.View, s.Quotations.View}
	s.Shops.Cascade = perShop
	s.Accounts.Cascade = []account.Invalidator{s.Shops.View}
	for _, v := range perShop {
		s.Accounts.Cascade = append(s.Accounts.Cascade, v)
	}
	return s, nil
}
