package leave_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/employee-management/internal"
	leaveDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/leave"
	profileDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/profile"
	"github.com/frahmantamala/employee-management/internal/leave"
	leavePostgres "github.com/frahmantamala/employee-management/internal/leave/postgres"
	"github.com/frahmantamala/employee-management/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Leave Handler Integration", func() {
	var (
		db      *gorm.DB
		handler *leave.Handler

		employee = internal.Session{UserID: "a1b2c3d4-0000-4000-8000-000000000001", Role: internal.RoleEmployee}
		reviewer = internal.Session{UserID: "a1b2c3d4-0000-4000-8000-000000000002", Role: internal.RoleHR}
	)

	withSession := func(req *http.Request, s internal.Session) *http.Request {
		return req.WithContext(internal.ContextWithSession(req.Context(), s))
	}

	withID := func(req *http.Request, id string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	submit := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/leave-requests", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		handler.SubmitLeaveRequest(w, withSession(req, employee))
		return w
	}

	review := func(s internal.Session, id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/leave-requests/"+id+"/review", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		handler.ReviewLeaveRequest(w, withID(withSession(req, s), id))
		return w
	}

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&leaveDatamodel.LeaveRequest{}, &profileDatamodel.Profile{})).To(Succeed())

		service := leave.NewService(leavePostgres.NewLeaveRepository(db), nil, slogger)
		baseHandler := &transport.BaseHandler{Logger: slogger}
		handler = leave.NewHandler(baseHandler, service)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("creates a half-day request and returns 201", func() {
		w := submit(`{"leave_type":"half-day","start_date":"2024-03-01","half":"first"}`)

		Expect(w.Code).To(Equal(http.StatusCreated))
		var resp leave.LeaveRequestResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Status).To(Equal(leave.StatusPending))
		Expect(resp.EndDate).To(Equal("2024-03-01"))
		Expect(*resp.ExtraInfo).To(Equal("Half Day (first half)"))
		Expect(resp.Actions).To(BeEmpty())
	})

	It("returns 400 with field details for a bad submission", func() {
		w := submit(`{"leave_type":"full-day","start_date":"2024-03-01"}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("end_date"))
	})

	It("returns 400 for unknown body fields", func() {
		w := submit(`{"leave_type":"half-day","start_date":"2024-03-01","half":"first","approved":true}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 401 without a session", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests", nil)
		w := httptest.NewRecorder()

		handler.ListLeaveRequests(w, req)

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("lists with review actions for reviewers only", func() {
		Expect(submit(`{"leave_type":"early-out","start_date":"2024-03-01","time":"15:30"}`).Code).To(Equal(http.StatusCreated))

		list := func(s internal.Session) leave.LeaveRequestsResponse {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests", nil)
			w := httptest.NewRecorder()
			handler.ListLeaveRequests(w, withSession(req, s))
			Expect(w.Code).To(Equal(http.StatusOK))
			var resp leave.LeaveRequestsResponse
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			return resp
		}

		Expect(list(employee).LeaveRequests[0].Actions).To(BeEmpty())
		Expect(list(reviewer).LeaveRequests[0].Actions).To(ConsistOf(leave.ActionApprove, leave.ActionReject))
	})

	Describe("review", func() {
		var id string

		BeforeEach(func() {
			w := submit(`{"leave_type":"half-day","start_date":"2024-03-01","half":"second"}`)
			var resp leave.LeaveRequestResponse
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			id = resp.ID
		})

		It("approves and then refuses a second review with 409", func() {
			w := review(reviewer, id, `{"decision":"approved"}`)
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp leave.LeaveRequestResponse
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Status).To(Equal(leave.StatusApproved))
			Expect(*resp.ReviewedBy).To(Equal(reviewer.UserID))
			Expect(resp.ReviewedAt.Before(resp.CreatedAt)).To(BeFalse())

			w = review(reviewer, id, `{"decision":"rejected"}`)
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeLeaveAlreadyReviewed)))
		})

		It("returns 403 for an employee", func() {
			w := review(employee, id, `{"decision":"approved"}`)
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("returns 400 for an invalid decision", func() {
			w := review(reviewer, id, `{"decision":"maybe"}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 for a malformed id", func() {
			w := review(reviewer, "not-a-uuid", `{"decision":"approved"}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown id", func() {
			w := review(reviewer, "9f0c7a52-3a43-4a2e-9d0e-0c5b5b3c2f11", `{"decision":"approved"}`)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	It("exports an xlsx attachment", func() {
		Expect(submit(`{"leave_type":"late-arrival","start_date":"2024-03-01","time":"10:00"}`).Code).To(Equal(http.StatusCreated))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/leave-requests/export", nil)
		w := httptest.NewRecorder()
		handler.ExportLeaveRequests(w, withSession(req, reviewer))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("spreadsheetml"))
		Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring(".xlsx"))
		Expect(w.Body.Len()).To(BeNumerically(">", 0))
	})
})
