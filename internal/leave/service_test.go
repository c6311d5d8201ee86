package leave_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	leaveDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/leave"
	"github.com/frahmantamala/employee-management/internal/core/events"
	"github.com/frahmantamala/employee-management/internal/leave"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

// mockLeaveRepository keeps rows in memory and mimics the conditional review update
type mockLeaveRepository struct {
	mu        sync.Mutex
	rows      map[string]*leaveDatamodel.LeaveRequest
	names     map[string]string
	createErr error
	listErr   error
	leakAll   bool
}

func newMockLeaveRepository() *mockLeaveRepository {
	return &mockLeaveRepository{
		rows:  make(map[string]*leaveDatamodel.LeaveRequest),
		names: make(map[string]string),
	}
}

func (m *mockLeaveRepository) Create(_ context.Context, l *leaveDatamodel.LeaveRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.rows[l.ID] = &cp
	return nil
}

func (m *mockLeaveRepository) GetByID(_ context.Context, id string) (*leaveDatamodel.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, internal.ErrLeaveNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *mockLeaveRepository) list(filter func(*leaveDatamodel.LeaveRequest) bool) []*leaveDatamodel.LeaveRequestWithRequester {
	var out []*leaveDatamodel.LeaveRequestWithRequester
	for _, row := range m.rows {
		if !filter(row) {
			continue
		}
		joined := &leaveDatamodel.LeaveRequestWithRequester{LeaveRequest: *row}
		if name, ok := m.names[row.UserID]; ok {
			joined.RequesterName = &name
		}
		out = append(out, joined)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *mockLeaveRepository) ListByRequester(_ context.Context, requesterID string) ([]*leaveDatamodel.LeaveRequestWithRequester, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(r *leaveDatamodel.LeaveRequest) bool { return m.leakAll || r.UserID == requesterID }), nil
}

func (m *mockLeaveRepository) ListAll(_ context.Context) ([]*leaveDatamodel.LeaveRequestWithRequester, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(*leaveDatamodel.LeaveRequest) bool { return true }), nil
}

func (m *mockLeaveRepository) MarkReviewed(_ context.Context, id, status, reviewerID string, reviewedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return internal.ErrLeaveNotFound
	}
	if row.Status != string(leave.StatusPending) {
		return internal.ErrLeaveAlreadyReviewed
	}
	row.Status = status
	row.ReviewedBy = &reviewerID
	row.ReviewedAt = &reviewedAt
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

var _ = Describe("LeaveService", func() {
	var (
		service   *leave.Service
		repo      *mockLeaveRepository
		publisher *recordingPublisher
		clock     time.Time
		ctx       context.Context

		alice = internal.Session{UserID: "11111111-1111-1111-1111-111111111111", Role: internal.RoleEmployee}
		bob   = internal.Session{UserID: "22222222-2222-2222-2222-222222222222", Role: internal.RoleEmployee}
		hr    = internal.Session{UserID: "33333333-3333-3333-3333-333333333333", Role: internal.RoleHR}
		admin = internal.Session{UserID: "44444444-4444-4444-4444-444444444444", Role: internal.RoleAdmin}
	)

	halfDay := func() leave.Submission {
		return leave.Submission{StartDate: date("2024-03-01"), Detail: leave.HalfDay{Half: leave.HalfFirst}}
	}

	advance := func(d time.Duration) { clock = clock.Add(d) }

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockLeaveRepository()
		publisher = &recordingPublisher{}
		clock = time.Date(2024, 2, 20, 8, 0, 0, 0, time.UTC)
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = leave.NewService(repo, publisher, logger).WithClock(func() time.Time { return clock })
	})

	Describe("Submit", func() {
		It("stores a pending request owned by the caller", func() {
			// Given an employee submitting a first-half half-day leave
			// When the request is submitted
			l, err := service.Submit(ctx, alice, halfDay())

			// Then it is pending, ends on its start date and is persisted
			Expect(err).NotTo(HaveOccurred())
			Expect(l.Status).To(Equal(leave.StatusPending))
			Expect(l.RequesterID).To(Equal(alice.UserID))
			Expect(l.EndDate).To(Equal(date("2024-03-01")))
			Expect(l.ReviewedBy).To(BeNil())
			Expect(l.ReviewedAt).To(BeNil())
			Expect(repo.rows).To(HaveKey(l.ID))
			Expect(publisher.types()).To(ConsistOf(events.EventTypeLeaveSubmitted))
		})

		It("rejects an invalid submission without storing it", func() {
			sub := leave.Submission{StartDate: date("2024-03-05"), Detail: leave.FullDay{End: date("2024-03-01")}}

			_, err := service.Submit(ctx, alice, sub)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
			Expect(repo.rows).To(BeEmpty())
			Expect(publisher.types()).To(BeEmpty())
		})

		It("wraps storage failures as internal errors", func() {
			repo.createErr = errors.New("connection reset")

			_, err := service.Submit(ctx, alice, halfDay())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(500))
		})

		It("still succeeds when publishing fails", func() {
			publisher.err = errors.New("broker down")

			l, err := service.Submit(ctx, alice, halfDay())

			Expect(err).NotTo(HaveOccurred())
			Expect(repo.rows).To(HaveKey(l.ID))
		})

		It("requires a session", func() {
			_, err := service.Submit(ctx, internal.Session{}, halfDay())
			Expect(errors.Is(err, internal.ErrUnauthorizedAccess)).To(BeTrue())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			repo.names[alice.UserID] = "Alice Anders"
			_, err := service.Submit(ctx, alice, halfDay())
			Expect(err).NotTo(HaveOccurred())
			advance(time.Minute)
			_, err = service.Submit(ctx, bob, halfDay())
			Expect(err).NotTo(HaveOccurred())
			advance(time.Minute)
			_, err = service.Submit(ctx, alice, halfDay())
			Expect(err).NotTo(HaveOccurred())
		})

		It("shows an employee only their own requests", func() {
			rows, err := service.List(ctx, alice)

			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			for _, l := range rows {
				Expect(l.RequesterID).To(Equal(alice.UserID))
			}
		})

		It("drops foreign rows even if the store returns them", func() {
			repo.leakAll = true

			rows, err := service.List(ctx, bob)

			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].RequesterID).To(Equal(bob.UserID))
		})

		It("shows reviewers everything newest first with names where known", func() {
			rows, err := service.List(ctx, hr)

			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))
			Expect(rows[0].CreatedAt.After(rows[1].CreatedAt)).To(BeTrue())
			Expect(rows[1].CreatedAt.After(rows[2].CreatedAt)).To(BeTrue())
			Expect(*rows[0].RequesterName).To(Equal("Alice Anders"))
			Expect(rows[1].RequesterName).To(BeNil())
		})

		It("reports store failures as internal errors", func() {
			repo.listErr = errors.New("timeout")

			_, err := service.List(ctx, admin)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(500))
		})
	})

	Describe("Review", func() {
		var pending *leave.LeaveRequest

		BeforeEach(func() {
			var err error
			pending, err = service.Submit(ctx, alice, halfDay())
			Expect(err).NotTo(HaveOccurred())
			advance(30 * time.Minute)
		})

		It("approves a pending request", func() {
			l, err := service.Review(ctx, hr, pending.ID, leave.StatusApproved)

			Expect(err).NotTo(HaveOccurred())
			Expect(l.Status).To(Equal(leave.StatusApproved))
			Expect(*l.ReviewedBy).To(Equal(hr.UserID))
			Expect(l.ReviewedAt.Before(l.CreatedAt)).To(BeFalse())
			Expect(repo.rows[pending.ID].Status).To(Equal("approved"))
			Expect(publisher.types()).To(ContainElement(events.EventTypeLeaveReviewed))
		})

		It("forbids employees from reviewing", func() {
			_, err := service.Review(ctx, bob, pending.ID, leave.StatusApproved)

			Expect(errors.Is(err, internal.ErrUnauthorizedAccess)).To(BeTrue())
			Expect(repo.rows[pending.ID].Status).To(Equal("pending"))
		})

		It("rejects pending as a decision", func() {
			_, err := service.Review(ctx, hr, pending.ID, leave.StatusPending)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
		})

		It("reports unknown requests as not found", func() {
			_, err := service.Review(ctx, hr, "00000000-0000-0000-0000-000000000000", leave.StatusRejected)
			Expect(errors.Is(err, internal.ErrLeaveNotFound)).To(BeTrue())
		})

		It("keeps the first decision and refuses a second one", func() {
			_, err := service.Review(ctx, hr, pending.ID, leave.StatusApproved)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Review(ctx, admin, pending.ID, leave.StatusRejected)

			Expect(errors.Is(err, internal.ErrLeaveAlreadyReviewed)).To(BeTrue())
			Expect(repo.rows[pending.ID].Status).To(Equal("approved"))
			Expect(*repo.rows[pending.ID].ReviewedBy).To(Equal(hr.UserID))
		})

		It("lets exactly one of two concurrent reviews win", func() {
			var wg sync.WaitGroup
			results := make(chan error, 2)
			for _, s := range []internal.Session{hr, admin} {
				wg.Add(1)
				go func(s internal.Session) {
					defer wg.Done()
					_, err := service.Review(ctx, s, pending.ID, leave.StatusApproved)
					results <- err
				}(s)
			}
			wg.Wait()
			close(results)

			var ok, conflicts int
			for err := range results {
				if err == nil {
					ok++
				} else if errors.Is(err, internal.ErrLeaveAlreadyReviewed) {
					conflicts++
				}
			}
			Expect(ok).To(Equal(1))
			Expect(conflicts).To(Equal(1))
		})

		It("clamps reviewed_at to created_at when the clock is behind", func() {
			clock = pending.CreatedAt.Add(-time.Hour)

			l, err := service.Review(ctx, hr, pending.ID, leave.StatusRejected)

			Expect(err).NotTo(HaveOccurred())
			Expect(*l.ReviewedAt).To(Equal(pending.CreatedAt))
		})
	})

	Describe("Export", func() {
		It("writes the caller's visible rows to a workbook", func() {
			repo.names[alice.UserID] = "Alice Anders"
			_, err := service.Submit(ctx, alice, halfDay())
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Submit(ctx, bob, halfDay())
			Expect(err).NotTo(HaveOccurred())

			var buf bytes.Buffer
			Expect(service.Export(ctx, alice, &buf)).To(Succeed())

			f, err := excelize.OpenReader(&buf)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			rows, err := f.GetRows("Leave Requests")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0][0]).To(Equal("ID"))
			Expect(rows[1][1]).To(Equal("Alice Anders"))
			Expect(rows[1][2]).To(Equal("Half Day"))
			Expect(rows[1][6]).To(Equal("Half Day (first half)"))
		})
	})
})
