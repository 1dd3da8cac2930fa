package queue

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-admin/internal/common"
)

// AdminHandler exposes DLQ inspection and replay plus per-kind stats.
type AdminHandler struct {
	Store             Store
	Queue             Enqueuer
	PageSize          int
	Logger            zerolog.Logger
	VisibilityTimeout time.Duration
}

type dlqItem struct {
	ID             uuid.UUID   `json:"id"`
	Kind           string      `json:"kind"`
	IdempotencyKey string      `json:"idempotencyKey"`
	Attempts       int         `json:"attempts"`
	LastError      *string     `json:"lastError,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	Message        taskMessage `json:"message"`
}

type replayRequest struct {
	IDs   []string `json:"ids"`
	Kind  string   `json:"kind"`
	Limit int      `json:"limit"`
}

// ListDLQ returns DLQ entries filtered by kind, newest first.
func (h *AdminHandler) ListDLQ(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.NotConfigured(w, "queue store")
		return
	}
	ctx := r.Context()
	kind := normalizeKind(r.URL.Query().Get("kind"))
	page := max(common.AtoiDefault(r.URL.Query().Get("page"), 1), 1)
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), h.pageSize())
	if limit <= 0 || limit > 200 {
		limit = h.pageSize()
	}

	entries, err := h.Store.ListQueueDlq(ctx, kind, limit, (page-1)*limit)
	if err != nil {
		common.WriteError(w, common.Internal(err))
		return
	}
	total, err := h.Store.CountQueueDlq(ctx, kind)
	if err != nil {
		common.WriteError(w, common.Internal(err))
		return
	}

	items := make([]dlqItem, 0, len(entries))
	for _, entry := range entries {
		msg, err := decodeMessage(string(entry.Payload))
		if err != nil {
			continue
		}
		items = append(items, dlqItem{
			ID:             entry.ID,
			Kind:           entry.Kind,
			IdempotencyKey: entry.IdempotencyKey,
			Attempts:       entry.Attempts,
			LastError:      entry.LastError,
			CreatedAt:      entry.CreatedAt,
			Message:        msg,
		})
	}
	totalPages := max(int((total+int64(limit)-1)/int64(limit)), 1)
	common.JSON(w, http.StatusOK, map[string]any{
		"data": items,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    limit,
			TotalItems: int(total),
			TotalPages: totalPages,
		},
	})
}

// ReplayDLQ re-enqueues DLQ entries either by id list or in a batch by kind.
func (h *AdminHandler) ReplayDLQ(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil || h.Queue.R == nil {
		common.NotConfigured(w, "queue")
		return
	}
	var req replayRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	ids := uniqueStrings(req.IDs)
	kind := normalizeKind(req.Kind)
	if len(ids) == 0 && kind == "" {
		common.WriteError(w, common.BadRequest("ids", "ids or kind required", nil))
		return
	}

	ctx := r.Context()
	replayed := make([]uuid.UUID, 0, len(ids))
	failed := make(map[string]string)

	if len(ids) > 0 {
		for _, raw := range ids {
			id, err := uuid.Parse(raw)
			if err != nil {
				failed[raw] = "invalid uuid"
				continue
			}
			entry, err := h.Store.GetQueueDlq(ctx, id)
			if err != nil {
				failed[raw] = err.Error()
				continue
			}
			if err := h.requeueEntry(ctx, entry); err != nil {
				failed[raw] = err.Error()
				continue
			}
			replayed = append(replayed, id)
		}
	} else {
		limit := req.Limit
		if limit <= 0 {
			limit = h.pageSize()
		}
		entries, err := h.Store.ListQueueDlq(ctx, kind, limit, 0)
		if err != nil {
			common.WriteError(w, common.Internal(err))
			return
		}
		for _, entry := range entries {
			if err := h.requeueEntry(ctx, entry); err != nil {
				failed[entry.ID.String()] = err.Error()
				continue
			}
			replayed = append(replayed, entry.ID)
		}
	}

	h.Logger.Info().Int("replayed", len(replayed)).Int("failed", len(failed)).Str("kind", kind).Msg("queue_dlq_replay")
	resp := map[string]any{"replayed": replayed}
	if len(failed) > 0 {
		resp["failed"] = failed
	}
	common.JSON(w, http.StatusOK, resp)
}

// Stats returns ready, in-flight and dead-lettered counts for one kind.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Queue.R == nil || h.Store == nil {
		common.NotConfigured(w, "queue")
		return
	}
	kind := normalizeKind(r.URL.Query().Get("kind"))
	if kind == "" {
		common.WriteError(w, common.BadRequest("kind", "kind is required", nil))
		return
	}
	ctx := r.Context()
	k := keys{prefix: h.Queue.Prefix}

	ready, err := h.Queue.R.ZCard(ctx, k.queue(kind)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		common.WriteError(w, common.Internal(err))
		return
	}
	inflight, err := h.Queue.R.ZCard(ctx, k.processing(kind)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		common.WriteError(w, common.Internal(err))
		return
	}
	dlq, err := h.Store.CountQueueDlq(ctx, kind)
	if err != nil {
		common.WriteError(w, common.Internal(err))
		return
	}

	var lagMillis int64
	oldest, err := h.Queue.R.ZRangeWithScores(ctx, k.queue(kind), 0, 0).Result()
	if err == nil && len(oldest) > 0 {
		if ts := time.Unix(0, int64(oldest[0].Score)); ts.Before(time.Now()) {
			lagMillis = time.Since(ts).Milliseconds()
		}
	}
	QueueDepth.WithLabelValues(queueLabel(kind)).Set(float64(ready))
	QueueDLQSize.WithLabelValues(queueLabel(kind)).Set(float64(dlq))

	visibility := h.VisibilityTimeout
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"kind":               kind,
		"ready":              ready,
		"processing":         inflight,
		"dlq":                dlq,
		"oldest_lag_ms":      lagMillis,
		"visibility_timeout": visibility.Seconds(),
	})
}

// requeueEntry enqueues the entry one attempt short of where it died so the
// worker gets a final try, then removes it from the store.
func (h *AdminHandler) requeueEntry(ctx context.Context, entry DLQEntry) error {
	msg, err := decodeMessage(string(entry.Payload))
	if err != nil {
		return err
	}
	task := Task{
		Kind:           msg.Kind,
		Payload:        msg.Payload,
		IdempotencyKey: msg.Key,
		MaxAttempts:    msg.MaxAttempts,
		Attempt:        max(msg.Attempt-1, 0),
	}
	if err := h.Queue.Enqueue(ctx, task); err != nil {
		return err
	}
	if err := h.Store.DeleteQueueDlq(ctx, entry.ID); err != nil {
		return err
	}
	if n, err := h.Store.CountQueueDlq(ctx, msg.Kind); err == nil {
		QueueDLQSize.WithLabelValues(queueLabel(msg.Kind)).Set(float64(n))
	}
	return nil
}

func (h *AdminHandler) pageSize() int {
	if h.PageSize <= 0 {
		return 50
	}
	return h.PageSize
}

func normalizeKind(kind string) string {
	return sanitizeKind(strings.ToLower(strings.TrimSpace(kind)))
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
