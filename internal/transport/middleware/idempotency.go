package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	idempotencyLockTTL   = 30 * time.Second
)

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency replays the stored response of a POST that carried the same
// Idempotency-Key for the same user and path. A concurrent duplicate gets 409
// while the first request is still running. Only 2xx responses are stored.
func Idempotency(rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if rdb == nil || key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			session, _ := internal.SessionFromContext(r.Context())
			cacheKey := fmt.Sprintf("idemp:%s:%s:%s", r.URL.Path, session.UserID, key)
			lockKey := cacheKey + ":lock"
			ctx := r.Context()

			cached, err := rdb.Get(ctx, cacheKey).Bytes()
			switch {
			case err == nil:
				var stored storedResponse
				if err := json.Unmarshal(cached, &stored); err == nil {
					logger.Debug("replaying idempotent response", "key", cacheKey)
					w.Header().Set("Content-Type", stored.ContentType)
					w.Header().Set("Idempotent-Replayed", "true")
					w.WriteHeader(stored.Status)
					_, _ = w.Write(stored.Body)
					return
				}
				logger.Warn("discarding unreadable idempotent response", "key", cacheKey)
			case !errors.Is(err, redis.Nil):
				// redis trouble must not block writes
				logger.Warn("idempotency lookup failed", "error", err, "key", cacheKey)
				next.ServeHTTP(w, r)
				return
			}

			acquired, err := rdb.SetNX(ctx, lockKey, "locked", idempotencyLockTTL).Result()
			if err != nil {
				logger.Warn("idempotency lock failed", "error", err, "key", cacheKey)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				writeAppError(w, internal.NewConflictError("A request with this idempotency key is still being processed", internal.ErrCodeRequestInProgress))
				return
			}

			// the side effect may commit after the client hangs up, so the
			// result is stored and the lock released regardless
			storeCtx := context.WithoutCancel(ctx)
			rec := &recordingWriter{ResponseWriter: w, body: &bytes.Buffer{}}
			defer func() {
				if err := rdb.Del(storeCtx, lockKey).Err(); err != nil {
					logger.Warn("failed to release idempotency lock", "error", err, "key", lockKey)
				}
			}()

			next.ServeHTTP(rec, r)

			if rec.status() < 200 || rec.status() >= 300 {
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:      rec.status(),
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err == nil {
				err = rdb.Set(storeCtx, cacheKey, payload, ttl).Err()
			}
			if err != nil {
				logger.Warn("failed to store idempotent response", "error", err, "key", cacheKey)
			}
		})
	}
}

type recordingWriter struct {
	http.ResponseWriter
	code int
	body *bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.code = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

func (rw *recordingWriter) status() int {
	if rw.code == 0 {
		return http.StatusOK
	}
	return rw.code
}

func writeAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
