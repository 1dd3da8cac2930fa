package queue_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/queue"
)

func TestDLQReplay(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newMemoryStore()
	handler := queue.AdminHandler{
		Store:             store,
		Queue:             queue.Enqueuer{R: client, Prefix: "adm", DedupTTL: time.Minute, MaxAttempts: 5},
		PageSize:          10,
		VisibilityTimeout: 60 * time.Second,
	}

	raw, err := json.Marshal(struct {
		Kind        string `json:"kind"`
		Key         string `json:"key"`
		Payload     []byte `json:"payload"`
		Attempt     int    `json:"attempt"`
		MaxAttempts int    `json:"max_attempts"`
		AvailableAt int64  `json:"available_at"`
	}{
		Kind:        "webhook",
		Key:         "dlq1",
		Payload:     []byte("payload"),
		Attempt:     2,
		MaxAttempts: 3,
		AvailableAt: time.Now().UnixNano(),
	})
	require.NoError(t, err)

	entry := queue.DLQEntry{
		Kind:           "webhook",
		IdempotencyKey: "dlq1",
		Payload:        raw,
		Attempts:       2,
		CreatedAt:      time.Now(),
	}
	id, err := store.InsertQueueDlq(context.Background(), entry)
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"ids":["` + id.String() + `"]}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/queue/dlq/replay", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ReplayDLQ(rr, req)

	res := rr.Result()
	require.Equal(t, http.StatusOK, res.StatusCode)
	defer func() { _ = res.Body.Close() }()

	var resp struct {
		Replayed []string          `json:"replayed"`
		Failed   map[string]string `json:"failed"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	require.Contains(t, resp.Replayed, id.String())
	require.Empty(t, resp.Failed)

	depth, err := client.ZCard(context.Background(), "adm:queue:webhook").Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), depth)

	_, err = store.GetQueueDlq(context.Background(), id)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListDLQAndStats(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newMemoryStore()
	handler := queue.AdminHandler{
		Store:    store,
		Queue:    queue.Enqueuer{R: client, Prefix: "adm"},
		PageSize: 1,
	}
	for i, key := range []string{"a", "b"} {
		raw, err := json.Marshal(map[string]any{"kind": "events", "key": key, "attempt": 3, "max_attempts": 3})
		require.NoError(t, err)
		_, err = store.InsertQueueDlq(context.Background(), queue.DLQEntry{
			Kind:           "events",
			IdempotencyKey: key,
			Payload:        raw,
			Attempts:       3,
			CreatedAt:      time.Now().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	require.NoError(t, handler.Queue.Enqueue(context.Background(), queue.Task{Kind: "events", Payload: []byte("x")}))

	rr := httptest.NewRecorder()
	handler.ListDLQ(rr, httptest.NewRequest(http.MethodGet, "/admin/queue/dlq?kind=events", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Data []struct {
			IdempotencyKey string `json:"idempotencyKey"`
		} `json:"data"`
		Pagination struct {
			TotalItems int `json:"total_items"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	require.Len(t, list.Data, 1)
	require.Equal(t, "b", list.Data[0].IdempotencyKey)
	require.Equal(t, 2, list.Pagination.TotalItems)
	require.Equal(t, 2, list.Pagination.TotalPages)

	rr = httptest.NewRecorder()
	handler.Stats(rr, httptest.NewRequest(http.MethodGet, "/admin/queue/stats?kind=events", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var stats map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&stats))
	require.EqualValues(t, 1, stats["ready"])
	require.EqualValues(t, 2, stats["dlq"])
}

func TestReplayRequiresSelector(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	handler := queue.AdminHandler{Store: newMemoryStore(), Queue: queue.Enqueuer{R: client}}
	rr := httptest.NewRecorder()
	handler.ReplayDLQ(rr, httptest.NewRequest(http.MethodPost, "/admin/queue/dlq/replay", bytes.NewBufferString(`{}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
