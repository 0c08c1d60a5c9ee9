package common

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	redis "github.com/redis/go-redis/v9"
)

// MaxIdempotencyKeyLen bounds the Idempotency-Key header.
const MaxIdempotencyKeyLen = 255

// Idem guards checkout writes with the Idempotency-Key header. A key is
// locked in Redis for TTL; a replay within TTL gets 409 instead of opening a
// second payment session. Keys are scoped to method and path.
type Idem struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (i Idem) redisKey(r *http.Request, key string) string {
	prefix := i.Prefix
	if prefix == "" {
		prefix = "idem:"
	}
	return prefix + HashKey(r.Method, r.URL.Path, key)
}

// Middleware enforces idempotency semantics for write endpoints. A 5xx
// answer releases the key so the client may retry.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		if len(header) > MaxIdempotencyKeyLen {
			JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "idempotency key too long", map[string]any{"maxLength": MaxIdempotencyKeyLen})
			return
		}
		ctx := r.Context()
		key := i.redisKey(r, header)
		ok, err := i.R.SetNX(ctx, key, "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "idempotency store unavailable", nil)
			return
		}
		if !ok {
			JSONError(w, r, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			// runs on panic too; the request context may already be done
			bg := context.Background()
			if ww.Status() >= http.StatusInternalServerError {
				_ = i.R.Del(bg, key).Err()
				return
			}
			_ = i.R.Expire(bg, key, i.TTL).Err()
		}()
		next.ServeHTTP(ww, r)
	})
}
