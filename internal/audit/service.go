// Package audit records mutating console requests.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/obs"
	"github.com/noah-isme/toko-admin/internal/tenant"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	// ActorKindUser is a console operator identified by a token.
	ActorKindUser ActorKind = "user"
	// ActorKindSystem represents internal automated actions such as seeding.
	ActorKindSystem ActorKind = "system"
	// ActorKindAnonymous is a request without a valid token.
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes who performed the action.
type Actor struct {
	Kind ActorKind
	ID   *string
	Role *string
}

// Entry is one audit_logs row.
type Entry struct {
	ID         int64           `json:"id"`
	OccurredAt time.Time       `json:"occurredAt"`
	ActorKind  string          `json:"actorKind"`
	Actor      *string         `json:"actor,omitempty"`
	Role       *string         `json:"role,omitempty"`
	ShopID     *int64          `json:"shopId,omitempty"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID *string         `json:"resourceId,omitempty"`
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	Route      *string         `json:"route,omitempty"`
	Status     int             `json:"status"`
	RequestID  *string         `json:"requestId,omitempty"`
	IP         *string         `json:"ip,omitempty"`
	UserAgent  *string         `json:"userAgent,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Resource string
	ShopID   int64
	Limit    int
	Offset   int
}

// Store defines the database operations required for auditing.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, f ListFilter) ([]Entry, error)
}

// Service persists audit logs for mutating requests.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64
}

// Record persists an audit log entry when auditing is enabled.
func (s Service) Record(ctx context.Context, actor Actor, action, resourceType, resourceID string, req *http.Request, status int, metadata []byte) error {
	if !s.Enabled {
		return nil
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 && rand.Float64() > s.SamplingRate {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := obs.RoutePatternFromContext(req.Context())
	if rc := chi.RouteContext(req.Context()); route == "" && rc != nil {
		route = rc.RoutePattern()
	}
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	requestID := middleware.GetReqID(req.Context())
	if requestID == "" {
		requestID = req.Header.Get(middleware.RequestIDHeader)
	}
	if status == 0 {
		status = http.StatusOK
	}

	entry := Entry{
		OccurredAt: time.Now().UTC(),
		ActorKind:  string(normalizeActorKind(actor.Kind)),
		Actor:      sanitizeString(actor.ID),
		Role:       sanitizeString(actor.Role),
		Action:     buildAction(action, req.Method, route),
		Resource:   buildResource(resourceType, route),
		ResourceID: pointerOf(resourceID),
		Method:     req.Method,
		Path:       req.URL.Path,
		Route:      pointerOf(route),
		Status:     status,
		RequestID:  pointerOf(requestID),
		IP:         pointerOf(common.ClientIP(req)),
		UserAgent:  pointerOf(req.UserAgent()),
		Metadata:   toJSONB(metadata, req.URL.RawQuery),
	}
	if id, ok := tenant.ShopID(req.Context()); ok {
		entry.ShopID = &id
	}
	return s.Store.Insert(ctx, entry)
}

func buildAction(action, method, route string) string {
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		return trimmed
	}
	if route == "" {
		route = "/"
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + route
}

// buildResource derives "shop.shop" from "/api/v1.0/shop/shop/{id}".
func buildResource(resourceType, route string) string {
	if trimmed := strings.TrimSpace(resourceType); trimmed != "" {
		return trimmed
	}
	segments := make([]string, 0, 4)
	for i, seg := range strings.Split(strings.Trim(route, "/ "), "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		if i == 0 && seg == "api" {
			continue
		}
		if i == 1 && strings.HasPrefix(seg, "v1") {
			continue
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return "unknown"
	}
	return strings.Join(segments, ".")
}

func normalizeActorKind(kind ActorKind) ActorKind {
	switch kind {
	case ActorKindUser, ActorKindSystem:
		return kind
	default:
		return ActorKindAnonymous
	}
}

func sanitizeString(value *string) *string {
	if value == nil {
		return nil
	}
	return pointerOf(*value)
}

func pointerOf(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toJSONB(metadata []byte, query string) json.RawMessage {
	if len(metadata) > 0 {
		return metadata
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}
	data, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil
	}
	return data
}
