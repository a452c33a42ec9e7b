package idempotency

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header clients send to make a
// mutating call safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

// Middleware returns a Gin middleware implementing Stripe-style idempotency
// keys. The first request with a given key executes normally and its
// response is stored. A retry with the same key and body replays the stored
// response, a retry with a different body is rejected with 422, and a
// request arriving while the first is still in flight gets 409.
func Middleware(config *Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.OnlyMutating && !mutates(c.Request.Method) {
			c.Next()
			return
		}

		key := NormalizeKey(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			if config.RequireKey {
				abortJSON(c, http.StatusBadRequest, "IDEMPOTENCY_KEY_REQUIRED",
					"Idempotency-Key header is required for this operation")
				return
			}
			c.Next()
			return
		}

		if err := ValidateKey(key, config.MaxKeyLength); err != nil {
			abortJSON(c, http.StatusBadRequest, "IDEMPOTENCY_KEY_INVALID",
				fmt.Sprintf("Invalid idempotency key: %v", err))
			return
		}

		var userID string
		if config.UserIDExtractor != nil {
			userID = config.UserIDExtractor(c)
		}

		// The body is consumed for fingerprinting and restored for handlers.
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		run(c, config, key, userID, ComputeFingerprint(body))
	}
}

// run drives the idempotent request flow: acquire the key's lock, replay or
// reject based on its prior state, otherwise invoke the handler and persist
// the outcome.
func run(c *gin.Context, config *Config, key, userID, fingerprint string) {
	ctx := c.Request.Context()
	now := time.Now().UTC()

	record, isNew, err := config.Repository.AcquireLock(ctx, &IdempotencyKey{
		Key:                key,
		UserID:             userID,
		ServiceID:          config.ServiceName,
		RequestPath:        c.Request.URL.Path,
		RequestMethod:      c.Request.Method,
		RequestFingerprint: fingerprint,
		CreatedAt:          now,
		ExpiresAt:          now.Add(config.RetentionPeriod),
	})
	if err != nil {
		slog.Error("Failed to acquire idempotency lock",
			"error", err,
			"key", key,
			"service", config.ServiceName,
			"path", c.Request.URL.Path,
		)
		if config.Metrics != nil {
			config.Metrics.RecordStorageError(config.ServiceName, "acquire_lock")
		}
		abortJSON(c, http.StatusServiceUnavailable, "IDEMPOTENCY_STORAGE_UNAVAILABLE",
			"Idempotency storage is temporarily unavailable")
		return
	}

	if record.IsCompleted() {
		replay(c, config, key, fingerprint, record)
		return
	}

	if !isNew && record.IsLocked() {
		lockAge := time.Since(*record.LockedAt)
		if lockAge < config.LockTimeout {
			slog.Warn("Concurrent idempotency request",
				"key", key,
				"service", config.ServiceName,
				"path", c.Request.URL.Path,
				"lockAge", lockAge,
			)
			if config.Metrics != nil {
				config.Metrics.RecordConcurrentCollision(config.ServiceName, c.Request.URL.Path, c.Request.Method)
			}
			abortJSON(c, http.StatusConflict, "IDEMPOTENCY_CONCURRENT_REQUEST", ErrConcurrentRequest.Error())
			return
		}

		// The previous holder died mid-request; take over its lock.
		slog.Info("Stale idempotency lock detected, proceeding",
			"key", key,
			"service", config.ServiceName,
			"path", c.Request.URL.Path,
			"lockAge", lockAge,
		)
	}

	if config.Metrics != nil {
		config.Metrics.RecordMiss(config.ServiceName, c.Request.URL.Path, c.Request.Method)
	}

	recorder := &responseRecorder{
		ResponseWriter: c.Writer,
		body:           &bytes.Buffer{},
		status:         http.StatusOK,
	}
	c.Writer = recorder

	c.Next()

	persist(c, config, key, record.ID.Hex(), recorder)
}

// replay serves the stored response for a completed key, rejecting retries
// whose body differs from the original request.
func replay(c *gin.Context, config *Config, key, fingerprint string, record *IdempotencyKey) {
	if record.RequestFingerprint != fingerprint {
		slog.Warn("Idempotency parameter mismatch",
			"key", key,
			"service", config.ServiceName,
			"path", c.Request.URL.Path,
		)
		if config.Metrics != nil {
			config.Metrics.RecordParameterMismatch(config.ServiceName, c.Request.URL.Path, c.Request.Method)
		}
		abortJSON(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_PARAMETER_MISMATCH", ErrParameterMismatch.Error())
		return
	}

	slog.Info("Idempotency cache hit",
		"key", key,
		"service", config.ServiceName,
		"path", c.Request.URL.Path,
		"statusCode", record.ResponseCode,
	)
	if config.Metrics != nil {
		config.Metrics.RecordHit(config.ServiceName, c.Request.URL.Path, c.Request.Method)
	}

	for name, value := range record.ResponseHeaders {
		c.Header(name, value)
	}
	c.Data(record.ResponseCode, "application/json", record.ResponseBody)
	c.Abort()
}

// persist stores the captured response, or releases the lock on a server
// error so the client can retry immediately.
func persist(c *gin.Context, config *Config, key, keyID string, recorder *responseRecorder) {
	ctx := c.Request.Context()

	if recorder.status >= http.StatusInternalServerError {
		if err := config.Repository.ReleaseLock(ctx, keyID); err != nil {
			slog.Error("Failed to release idempotency lock",
				"error", err,
				"key", key,
				"service", config.ServiceName,
				"path", c.Request.URL.Path,
			)
			if config.Metrics != nil {
				config.Metrics.RecordStorageError(config.ServiceName, "release_lock")
			}
		}
		return
	}

	body := recorder.body.Bytes()
	if len(body) > config.MaxResponseSize {
		slog.Warn("Response too large to cache",
			"key", key,
			"service", config.ServiceName,
			"path", c.Request.URL.Path,
			"size", len(body),
			"maxSize", config.MaxResponseSize,
		)
		body = []byte(fmt.Sprintf(`{"code":"IDEMPOTENCY_RESPONSE_TRUNCATED","message":"Response too large to cache","size":%d}`, len(body)))
	}

	headers := make(map[string]string, len(c.Writer.Header()))
	for name, values := range c.Writer.Header() {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	if err := config.Repository.StoreResponse(ctx, keyID, recorder.status, body, headers); err != nil {
		slog.Error("Failed to store idempotency response",
			"error", err,
			"key", key,
			"service", config.ServiceName,
			"path", c.Request.URL.Path,
		)
		if config.Metrics != nil {
			config.Metrics.RecordStorageError(config.ServiceName, "store_response")
		}
	}
}

// responseRecorder tees the response body so it can be cached for replay.
type responseRecorder struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func mutates(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
