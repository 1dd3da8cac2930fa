package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ReplayHeader marks a response served from the idempotency store.
const ReplayHeader = "Idempotent-Replay"

const (
	pendingMarker  = "pending"
	defaultLockTTL = time.Minute
	maxReplayBody  = 1 << 20
)

// Idem provides an Idempotency-Key middleware backed by Redis. The first
// successful response for a key is stored for TTL and replayed to later
// requests carrying the same key. Failed responses are not stored, so the
// client may retry with the same key.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
	// LockTTL bounds how long a request holds its key while being served.
	// Zero means one minute.
	LockTTL time.Duration
	// Scope returns an extra key component, such as the active shop, so the
	// same client key can be reused across scopes.
	Scope func(r *http.Request) string
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Location    string `json:"location,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (i Idem) key(r *http.Request, header string) string {
	scope := ""
	if i.Scope != nil {
		scope = i.Scope(r)
	}
	return "idem:" + Sha256Hex(r.Method+" "+r.URL.Path+"|"+scope+"|"+header)
}

func (i Idem) lockTTL() time.Duration {
	if i.LockTTL > 0 {
		return i.LockTTL
	}
	return defaultLockTTL
}

// Middleware applies idempotency semantics to unsafe methods. Safe methods
// pass through untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil || safeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := i.key(r, header)

		ok, err := i.R.SetNX(ctx, key, pendingMarker, i.lockTTL()).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			i.replay(ctx, w, key)
			return
		}

		rec := &teeWriter{ResponseWriter: w}
		stored := false
		defer func() {
			if !stored {
				_ = i.R.Del(context.WithoutCancel(ctx), key).Err()
			}
		}()
		next.ServeHTTP(rec, r)

		status := rec.statusCode()
		if status < 200 || status >= 300 || rec.overflow {
			return
		}
		data, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Location:    rec.Header().Get("Location"),
			Body:        rec.body.Bytes(),
		})
		if err != nil {
			return
		}
		if err := i.R.Set(context.WithoutCancel(ctx), key, data, i.TTL).Err(); err == nil {
			stored = true
		}
	})
}

// replay writes the stored response for key, or 409 while the first request
// is still being served.
func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key string) {
	raw, err := i.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) || (err == nil && string(raw) == pendingMarker) {
		JSONError(w, http.StatusConflict, "IDEMPOTENCY_IN_FLIGHT", "a request with this idempotency key is in progress", nil)
		return
	}
	var resp storedResponse
	if err == nil {
		err = json.Unmarshal(raw, &resp)
	}
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
		return
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	if resp.Location != "" {
		w.Header().Set("Location", resp.Location)
	}
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// teeWriter copies the response into a buffer while writing it through.
type teeWriter struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	overflow bool
}

func (t *teeWriter) WriteHeader(code int) {
	if t.status == 0 {
		t.status = code
	}
	t.ResponseWriter.WriteHeader(code)
}

func (t *teeWriter) Write(p []byte) (int, error) {
	if t.status == 0 {
		t.status = http.StatusOK
	}
	if !t.overflow {
		if t.body.Len()+len(p) > maxReplayBody {
			t.overflow = true
			t.body.Reset()
		} else {
			t.body.Write(p)
		}
	}
	return t.ResponseWriter.Write(p)
}

func (t *teeWriter) Unwrap() http.ResponseWriter { return t.ResponseWriter }

func (t *teeWriter) statusCode() int {
	if t.status == 0 {
		return http.StatusOK
	}
	return t.status
}
