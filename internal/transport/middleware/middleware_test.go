package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/employee-management/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("RequestID", func() {
	It("keeps an incoming trace id and exposes it in the context", func() {
		var seen string
		h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = middleware.TraceID(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.TraceIDHeader, "trace-123")
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(seen).To(Equal("trace-123"))
		Expect(w.Header().Get(middleware.TraceIDHeader)).To(Equal("trace-123"))
	})

	It("generates one when absent", func() {
		w := httptest.NewRecorder()
		middleware.RequestID(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(w.Header().Get(middleware.TraceIDHeader)).NotTo(BeEmpty())
	})
})

var _ = Describe("LoggingMiddleware", func() {
	It("masks tokens passed in the query string", func() {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/r1/logs/stream?access_token=eyJSECRETJWT&since=2024-03-01", nil)

		middleware.LoggingMiddleware(logger)(ok).ServeHTTP(httptest.NewRecorder(), req)

		Expect(buf.String()).NotTo(ContainSubstring("eyJSECRETJWT"))
		Expect(buf.String()).To(ContainSubstring("access_token=FILTERED"))
		Expect(buf.String()).To(ContainSubstring("since=2024-03-01"))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns a panic into a 500 error body", func() {
		h := middleware.RecoveryMiddleware(quietLogger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		w := httptest.NewRecorder()

		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		var body map[string]map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["error"]["type"]).To(Equal("INTERNAL_ERROR"))
	})
})

var _ = Describe("RateLimitByIP", func() {
	It("answers 429 once the burst is spent", func() {
		h := middleware.RateLimitByIP(0.001, 2)(ok)
		codes := make([]int, 3)
		for i := range codes {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
			codes[i] = w.Code
		}
		Expect(codes).To(Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}))
	})

	It("tracks clients separately", func() {
		limiter := middleware.NewIPRateLimiter(0.001, 1)
		Expect(limiter.GetLimiter("10.0.0.1").Allow()).To(BeTrue())
		Expect(limiter.GetLimiter("10.0.0.1").Allow()).To(BeFalse())
		Expect(limiter.GetLimiter("10.0.0.2").Allow()).To(BeTrue())
	})
})

const testDocument = `
openapi: 3.0.3
info:
  title: test
  version: "1"
paths:
  /api/v1/rooms/join:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [room_code]
              properties:
                room_code:
                  type: string
      responses:
        "200":
          description: joined
  /api/v1/rooms/{id}/logs:
    get:
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
            pattern: '^[0-9a-f-]{36}$'
      responses:
        "200":
          description: logs
`

var _ = Describe("OpenAPIValidator", func() {
	var h http.Handler

	BeforeEach(func() {
		doc, err := middleware.LoadOpenAPI(context.Background(), []byte(testDocument))
		Expect(err).NotTo(HaveOccurred())
		mw, err := middleware.OpenAPIValidator(doc, quietLogger)
		Expect(err).NotTo(HaveOccurred())
		h = mw(ok)
	})

	serve := func(req *http.Request) int {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	It("accepts a body matching the schema", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/join", strings.NewReader(`{"room_code":"ab12cd"}`))
		req.Header.Set("Content-Type", "application/json")
		Expect(serve(req)).To(Equal(http.StatusOK))
	})

	It("rejects a body missing a required property", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/join", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		Expect(serve(req)).To(Equal(http.StatusBadRequest))
	})

	It("rejects a malformed path parameter", func() {
		Expect(serve(httptest.NewRequest(http.MethodGet, "/api/v1/rooms/not-a-uuid/logs", nil))).To(Equal(http.StatusBadRequest))
	})

	It("lets undescribed routes through", func() {
		Expect(serve(httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))).To(Equal(http.StatusOK))
	})
})

var _ = Describe("CORS", func() {
	h := middleware.CORS("http://app.example.com, http://localhost:3000/")(ok)

	It("echoes an allowed origin and ends preflight requests", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/leave-requests", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:3000"))
		Expect(w.Header().Get("Access-Control-Allow-Headers")).To(ContainSubstring(middleware.IdempotencyKeyHeader))
	})

	It("does not grant unknown origins", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})
})
