package customer

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

const entity = "customers"

var errNotConfigured = errors.New("customer service not configured")

// Service implements customer use cases within the request's shop scope.
type Service struct {
	Store  Store
	View   *listview.View[Customer]
	Events events.Emitter
	Logger zerolog.Logger
}

// NewService wires the list view to store.
func NewService(store Store, view listview.View[Customer], em events.Emitter, log zerolog.Logger) *Service {
	view.Entity = entity
	view.Fields = Fields
	view.Load = store.List
	view.Logger = log
	return &Service{Store: store, View: &view, Events: em, Logger: log}
}

// List returns one page of the scoped shop's customers, or of every shop
// when the request is unscoped.
func (s *Service) List(ctx context.Context, values url.Values) (listing.Page[Customer], error) {
	if s == nil || s.View == nil {
		return listing.Page[Customer]{}, errNotConfigured
	}
	shopID, _ := tenant.ShopID(ctx)
	return s.View.List(ctx, shopID, values)
}

// Get returns one customer visible in the scope.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	shopID, _ := tenant.ShopID(ctx)
	c, err := s.Store.Get(ctx, shopID, id)
	return c, db.Error("customer", err)
}

// Create registers a customer for the input shop, defaulting to the scope.
func (s *Service) Create(ctx context.Context, in Input) (Customer, error) {
	in, err := s.prepare(ctx, in)
	if err != nil {
		return Customer{}, err
	}
	c, err := s.Store.Create(ctx, in)
	if err != nil {
		return Customer{}, db.Error("customer", err)
	}
	s.changed(ctx, events.TopicCustomerCreated, c, c.ShopID)
	return c, nil
}

// Update replaces a customer's details. Moving a customer to another shop
// invalidates both shops' lists.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Customer, error) {
	in, err := s.prepare(ctx, in)
	if err != nil {
		return Customer{}, err
	}
	scope, _ := tenant.ShopID(ctx)
	before, err := s.Store.Get(ctx, scope, id)
	if err != nil {
		return Customer{}, db.Error("customer", err)
	}
	c, err := s.Store.Update(ctx, scope, id, in)
	if err != nil {
		return Customer{}, db.Error("customer", err)
	}
	s.changed(ctx, events.TopicCustomerUpdated, c, before.ShopID, c.ShopID)
	return c, nil
}

// Delete removes a customer visible in the scope.
func (s *Service) Delete(ctx context.Context, id int64) error {
	scope, _ := tenant.ShopID(ctx)
	c, err := s.Store.Delete(ctx, scope, id)
	if err != nil {
		return db.DeleteError("customer", err)
	}
	s.changed(ctx, events.TopicCustomerDeleted, c, c.ShopID)
	return nil
}

func (s *Service) prepare(ctx context.Context, in Input) (Input, error) {
	in = in.normalized()
	if scope, ok := tenant.ShopID(ctx); ok {
		if in.ShopID == 0 {
			in.ShopID = common.FlexInt(scope)
		} else if in.ShopID.Int64() != scope {
			return Input{}, common.BadRequest("shopId", "shopId does not match the selected shop", nil)
		}
	}
	if err := common.Validate(in); err != nil {
		return Input{}, err
	}
	return in, nil
}

func (s *Service) changed(ctx context.Context, topic string, c Customer, shopIDs ...int64) {
	if s.View != nil {
		s.View.Invalidate(ctx, shopIDs...)
	}
	events.Publish(tenant.WithShopID(ctx, c.ShopID), s.Events, s.Logger, topic, c.ID, c)
}
