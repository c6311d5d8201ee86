package auth

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/transport"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Auth Handler", func() {
	var (
		handler *Handler
		rbac    *RBACAuthorization
		tokens  *JWTTokenGenerator
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		tokens = NewJWTTokenGenerator("handler-access-secret-0123456789abcdef", "handler-refresh-secret-0123456789abcdef", time.Minute, time.Hour)
		handler = NewHandler(&transport.BaseHandler{Logger: logger}, NewService(newMockRepository(), tokens, logger))

		authorizer, err := NewAuthorizer()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		rbac = NewRBACAuthorization(authorizer, logger)
	})

	bearer := func(userID, email string) string {
		t, err := tokens.GenerateAccessToken(userID, email)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return "Bearer " + t
	}

	ginkgo.Describe("Login", func() {
		ginkgo.It("should return tokens for valid credentials", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"user@example.com","password":"correct_password"}`))
			w := httptest.NewRecorder()

			handler.Login(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(w.Body.String()).To(gomega.ContainSubstring("access_token"))
		})

		ginkgo.It("should return 401 for a wrong password", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"user@example.com","password":"nope"}`))
			w := httptest.NewRecorder()

			handler.Login(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(w.Body.String()).To(gomega.ContainSubstring(string(internal.ErrCodeInvalidCredentials)))
		})
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var seen internal.Session

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = internal.SessionFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		ginkgo.BeforeEach(func() {
			seen = internal.Session{}
		})

		ginkgo.It("should put the session in the context", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests", nil)
			req.Header.Set("Authorization", bearer("u-hr", "hr@example.com"))
			w := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(seen.UserID).To(gomega.Equal("u-hr"))
			gomega.Expect(seen.Role).To(gomega.Equal(internal.RoleHR))
		})

		ginkgo.It("should accept the token as a query param on stream routes", func() {
			token := bearer("u-employee", "user@example.com")[len("Bearer "):]
			req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/x/logs/stream?access_token="+token, nil)
			w := httptest.NewRecorder()

			handler.StreamAuthMiddleware(next).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(seen.UserID).To(gomega.Equal("u-employee"))
		})

		ginkgo.It("should ignore a query token on regular routes", func() {
			token := bearer("u-employee", "user@example.com")[len("Bearer "):]
			req := httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests?access_token="+token, nil)
			w := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(seen.UserID).To(gomega.BeEmpty())
		})

		ginkgo.It("should return 401 without a token", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests", nil)
			w := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should return 403 for an inactive user", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests", nil)
			req.Header.Set("Authorization", bearer("u-gone", "gone@example.com"))
			w := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
		})
	})

	ginkgo.Describe("RequirePermission", func() {
		call := func(role internal.Role, resource, action string) int {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if role != "" {
				req = req.WithContext(internal.ContextWithSession(context.Background(), internal.Session{UserID: "u", Role: role}))
			}
			w := httptest.NewRecorder()
			rbac.RequirePermission(resource, action)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})).ServeHTTP(w, req)
			return w.Code
		}

		ginkgo.It("should let hr review leave", func() {
			gomega.Expect(call(internal.RoleHR, ResourceLeave, ActionReview)).To(gomega.Equal(http.StatusNoContent))
		})

		ginkgo.It("should not let hr upload documents", func() {
			gomega.Expect(call(internal.RoleHR, ResourceDocuments, ActionUpload)).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("should let admin do anything", func() {
			gomega.Expect(call(internal.RoleAdmin, ResourceDocuments, ActionUpload)).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(call(internal.RoleAdmin, ResourceDashboard, ActionAll)).To(gomega.Equal(http.StatusNoContent))
		})

		ginkgo.It("should forbid employees from reviewing", func() {
			gomega.Expect(call(internal.RoleEmployee, ResourceLeave, ActionReview)).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("should return 401 without a session", func() {
			gomega.Expect(call("", ResourceLeave, ActionReview)).To(gomega.Equal(http.StatusUnauthorized))
		})
	})
})
