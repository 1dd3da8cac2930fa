package product

import (
	"context"
	"errors"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/db"
	"github.com/noah-isme/toko-admin/internal/events"
	"github.com/noah-isme/toko-admin/internal/listing"
	"github.com/noah-isme/toko-admin/internal/listview"
	"github.com/noah-isme/toko-admin/internal/tenant"
)

const entity = "products"

var errNotConfigured = errors.New("product service not configured")

// Service implements product use cases within the request's shop scope.
type Service struct {
	Store  Store
	View   *listview.View[Product]
	Events events.Emitter
	Logger zerolog.Logger
}

// NewService wires the list view to store.
func NewService(store Store, view listview.View[Product], em events.Emitter, log zerolog.Logger) *Service {
	view.Entity = entity
	view.Fields = Fields
	view.Load = store.List
	view.Logger = log
	return &Service{Store: store, View: &view, Events: em, Logger: log}
}

// List returns one page of products in scope.
func (s *Service) List(ctx context.Context, values url.Values) (listing.Page[Product], error) {
	if s == nil || s.View == nil {
		return listing.Page[Product]{}, errNotConfigured
	}
	shopID, _ := tenant.ShopID(ctx)
	return s.View.List(ctx, shopID, values)
}

// ListByShop is List for a request that must name a shop.
func (s *Service) ListByShop(ctx context.Context, values url.Values) (listing.Page[Product], error) {
	if _, ok := tenant.ShopID(ctx); !ok {
		return listing.Page[Product]{}, common.BadRequest("shopId", "shopId is required", nil)
	}
	return s.List(ctx, values)
}

// Categories returns the allowed categories and those in use by the scope.
func (s *Service) Categories(ctx context.Context) (allowed, used []string, err error) {
	shopID, _ := tenant.ShopID(ctx)
	used, err = s.Store.Categories(ctx, shopID)
	if err != nil {
		return nil, nil, err
	}
	return Categories, used, nil
}

// Get returns one product visible in scope.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	shopID, _ := tenant.ShopID(ctx)
	p, err := s.Store.Get(ctx, shopID, id)
	return p, db.Error("product", err)
}

// Create adds a product to the input shop, defaulting to the scope.
func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	in, err := s.prepare(ctx, in)
	if err != nil {
		return Product{}, err
	}
	p, err := s.Store.Create(ctx, in)
	if err != nil {
		return Product{}, db.Error("product", err)
	}
	s.changed(ctx, events.TopicProductCreated, p, p.ShopID)
	return p, nil
}

// Update replaces a product's fields.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Product, error) {
	in, err := s.prepare(ctx, in)
	if err != nil {
		return Product{}, err
	}
	scope, _ := tenant.ShopID(ctx)
	before, err := s.Store.Get(ctx, scope, id)
	if err != nil {
		return Product{}, db.Error("product", err)
	}
	p, err := s.Store.Update(ctx, scope, id, in)
	if err != nil {
		return Product{}, db.Error("product", err)
	}
	s.changed(ctx, events.TopicProductUpdated, p, before.ShopID, p.ShopID)
	return p, nil
}

// Delete removes a product visible in scope.
func (s *Service) Delete(ctx context.Context, id int64) error {
	scope, _ := tenant.ShopID(ctx)
	p, err := s.Store.Delete(ctx, scope, id)
	if err != nil {
		return db.DeleteError("product", err)
	}
	s.changed(ctx, events.TopicProductDeleted, p, p.ShopID)
	return nil
}

func (s *Service) prepare(ctx context.Context, in Input) (Input, error) {
	in = in.normalized()
	if scope, ok := tenant.ShopID(ctx); ok {
		if in.ShopID == 0 {
			in.ShopID = common.FlexInt(scope)
		} else if in.ShopID.Int64() != scope {
			return Input{}, common.BadRequest("shop_id", "shop_id does not match the selected shop", nil)
		}
	}
	if err := common.Validate(in); err != nil {
		return Input{}, err
	}
	return in, nil
}

func (s *Service) changed(ctx context.Context, topic string, p Product, shopIDs ...int64) {
	if s.View != nil {
		s.View.Invalidate(ctx, shopIDs...)
	}
	events.Publish(tenant.WithShopID(ctx, p.ShopID), s.Events, s.Logger, topic, p.ID, p)
}
