package shop

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

const entity = "shops"

var errNotConfigured = errors.New("shop service not configured")

// Invalidator drops cached list snapshots. *listview.View implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, shopIDs ...int64)
}

// Service implements shop use cases.
type Service struct {
	Store  Store
	View   *listview.View[Shop]
	Events events.Emitter
	Logger zerolog.Logger
	// Cascade lists per-shop views whose rows are removed with a shop.
	Cascade []Invalidator
}

// NewService wires the list view to store.
func NewService(store Store, view listview.View[Shop], em events.Emitter, log zerolog.Logger) *Service {
	view.Entity = entity
	view.Fields = Fields
	view.Load = func(ctx context.Context, _ int64) ([]Shop, error) {
		return store.List(ctx)
	}
	view.Logger = log
	return &Service{Store: store, View: &view, Events: em, Logger: log}
}

// List returns one page of shops across all accounts.
func (s *Service) List(ctx context.Context, values url.Values) (listing.Page[Shop], error) {
	if s == nil || s.View == nil {
		return listing.Page[Shop]{}, errNotConfigured
	}
	return s.View.List(ctx, 0, values)
}

// Get returns one shop.
func (s *Service) Get(ctx context.Context, id int64) (Shop, error) {
	sh, err := s.Store.Get(ctx, id)
	return sh, db.Error("shop", err)
}

// ShopName returns the display name of a shop, for printed documents.
func (s *Service) ShopName(ctx context.Context, id int64) (string, error) {
	sh, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return sh.ShopName, nil
}

// Create validates and registers a shop under an existing account.
func (s *Service) Create(ctx context.Context, in Input) (Shop, error) {
	in = in.normalized()
	if err := common.Validate(in); err != nil {
		return Shop{}, err
	}
	sh, err := s.Store.Create(ctx, in)
	if err != nil {
		return Shop{}, db.Error("shop", err)
	}
	s.changed(ctx, events.TopicShopCreated, sh)
	return sh, nil
}

// Update replaces the editable fields of a shop.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Shop, error) {
	in = in.normalized()
	if err := common.Validate(in); err != nil {
		return Shop{}, err
	}
	sh, err := s.Store.Update(ctx, id, in)
	if err != nil {
		return Shop{}, db.Error("shop", err)
	}
	s.changed(ctx, events.TopicShopUpdated, sh)
	return sh, nil
}

// Delete removes a shop and everything it owns.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return db.DeleteError("shop", err)
	}
	for _, v := range s.Cascade {
		v.Invalidate(ctx, id)
	}
	s.changed(ctx, events.TopicShopDeleted, Shop{ID: id})
	return nil
}

func (s *Service) changed(ctx context.Context, topic string, sh Shop) {
	if s.View != nil {
		s.View.Invalidate(ctx)
	}
	events.Publish(tenant.WithShopID(ctx, sh.ID), s.Events, s.Logger, topic, sh.ID, sh)
}
