package audit

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-admin/internal/db"
)

const entryColumns = `id, occurred_at, actor_kind, actor, role, shop_id, action, resource, resource_id,
method, path, route, status, request_id, ip, user_agent, metadata`

// NewStore returns a Store on the audit_logs table.
func NewStore(q db.Querier) Store {
	return &pgStore{q: q}
}

type pgStore struct {
	q db.Querier
}

func (s *pgStore) Insert(ctx context.Context, e Entry) error {
	if s == nil || s.q == nil {
		return errors.New("audit: database not configured")
	}
	var metadata any
	if len(e.Metadata) > 0 {
		metadata = []byte(e.Metadata)
	}
	_, err := s.q.Exec(ctx, `INSERT INTO audit_logs
(occurred_at, actor_kind, actor, role, shop_id, action, resource, resource_id, method, path, route, status, request_id, ip, user_agent, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.OccurredAt, e.ActorKind, e.Actor, e.Role, e.ShopID, e.Action, e.Resource, e.ResourceID,
		e.Method, e.Path, e.Route, e.Status, e.RequestID, e.IP, e.UserAgent, metadata)
	return err
}

func (s *pgStore) List(ctx context.Context, f ListFilter) ([]Entry, error) {
	if s == nil || s.q == nil {
		return nil, errors.New("audit: database not configured")
	}
	rows, err := s.q.Query(ctx, `SELECT `+entryColumns+` FROM audit_logs
WHERE ($1 = '' OR resource = $1) AND ($2 = 0 OR shop_id = $2)
ORDER BY occurred_at DESC, id DESC LIMIT $3 OFFSET $4`, f.Resource, f.ShopID, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		var metadata []byte
		err := row.Scan(&e.ID, &e.OccurredAt, &e.ActorKind, &e.Actor, &e.Role, &e.ShopID, &e.Action, &e.Resource,
			&e.ResourceID, &e.Method, &e.Path, &e.Route, &e.Status, &e.RequestID, &e.IP, &e.UserAgent, &metadata)
		e.Metadata = metadata
		return e, err
	})
}
