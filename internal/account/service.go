package account

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
)

const entity = "accounts"

// Invalidator drops cached list snapshots. *listview.View implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, shopIDs ...int64)
}

// Service implements account use cases on top of a Store.
type Service struct {
	Store  Store
	View   *listview.View[Account]
	Events events.Emitter
	Logger zerolog.Logger
	// Cascade lists views holding rows removed with an account.
	Cascade []Invalidator
}

// NewService wires the list view to store.
func NewService(store Store, view listview.View[Account], em events.Emitter, log zerolog.Logger) *Service {
	view.Entity = entity
	view.Fields = Fields
	view.Load = func(ctx context.Context, _ int64) ([]Account, error) {
		return store.List(ctx)
	}
	view.Logger = log
	return &Service{Store: store, View: &view, Events: em, Logger: log}
}

var errNotConfigured = errors.New("account service not configured")

// List returns one page of accounts.
func (s *Service) List(ctx context.Context, values url.Values) (listing.Page[Account], error) {
	if s == nil || s.View == nil {
		return listing.Page[Account]{}, errNotConfigured
	}
	return s.View.List(ctx, 0, values)
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	acc, err := s.Store.Get(ctx, id)
	return acc, db.Error("account", err)
}

// Create validates and stores a new account.
func (s *Service) Create(ctx context.Context, in Input) (Account, error) {
	in = in.normalized()
	if err := common.Validate(in); err != nil {
		return Account{}, err
	}
	acc, err := s.Store.Create(ctx, in)
	if err != nil {
		return Account{}, db.Error("account", err)
	}
	s.changed(ctx, events.TopicAccountCreated, acc)
	return acc, nil
}

// Update replaces the editable fields of an account.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Account, error) {
	in = in.normalized()
	if err := common.Validate(in); err != nil {
		return Account{}, err
	}
	acc, err := s.Store.Update(ctx, id, in)
	if err != nil {
		return Account{}, db.Error("account", err)
	}
	s.changed(ctx, events.TopicAccountUpdated, acc)
	return acc, nil
}

// Delete removes an account together with its shops. Snapshots of every
// removed shop are dropped from the cascaded views.
func (s *Service) Delete(ctx context.Context, id int64) error {
	shopIDs, err := s.Store.Delete(ctx, id)
	if err != nil {
		return db.DeleteError("account", err)
	}
	for _, v := range s.Cascade {
		v.Invalidate(ctx, shopIDs...)
	}
	s.changed(ctx, events.TopicAccountDeleted, Account{ID: id})
	return nil
}

func (s *Service) changed(ctx context.Context, topic string, acc Account) {
	if s.View != nil {
		s.View.Invalidate(ctx)
	}
	events.Publish(ctx, s.Events, s.Logger, topic, acc.ID, acc)
}
