package leave_test

import (
	"sync"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/leave"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func strPtr(s string) *string { return &s }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	Expect(err).NotTo(HaveOccurred())
	return t
}

func validationFields(err error) []string {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue())
	details, ok := appErr.Details.(internal.ValidationErrors)
	Expect(ok).To(BeTrue())
	fields := make([]string, 0, len(details.Errors))
	for _, e := range details.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

var _ = Describe("SubmitLeaveDTO", func() {
	It("builds a half-day submission ending on its start date", func() {
		dto := leave.SubmitLeaveDTO{LeaveType: "half-day", StartDate: "2024-03-01", Half: strPtr("first")}

		sub, appErr := dto.ToSubmission()

		Expect(appErr).To(BeNil())
		Expect(sub.Detail).To(Equal(leave.HalfDay{Half: leave.HalfFirst}))

		l := leave.NewLeaveRequest("user-1", sub, time.Now())
		Expect(l.Status).To(Equal(leave.StatusPending))
		Expect(l.EndDate).To(Equal(date("2024-03-01")))
		Expect(*l.ExtraInfo).To(Equal("Half Day (first half)"))
	})

	It("requires end_date for full-day leave", func() {
		dto := leave.SubmitLeaveDTO{LeaveType: "full-day", StartDate: "2024-03-01"}

		_, appErr := dto.ToSubmission()

		Expect(appErr).NotTo(BeNil())
		Expect(validationFields(appErr)).To(ContainElement("end_date"))
	})

	It("rejects an end_date before start_date", func() {
		dto := leave.SubmitLeaveDTO{LeaveType: "full-day", StartDate: "2024-03-05", EndDate: strPtr("2024-03-01")}

		_, appErr := dto.ToSubmission()

		Expect(appErr).NotTo(BeNil())
		Expect(appErr.StatusCode).To(Equal(400))
		Expect(appErr.Error()).To(ContainSubstring("end_date must not be before start_date"))
	})

	It("rejects an unknown leave type", func() {
		dto := leave.SubmitLeaveDTO{LeaveType: "sabbatical", StartDate: "2024-03-01"}

		_, appErr := dto.ToSubmission()

		Expect(appErr).NotTo(BeNil())
		Expect(validationFields(appErr)).To(ConsistOf("leave_type"))
	})

	It("rejects a malformed start date", func() {
		dto := leave.SubmitLeaveDTO{LeaveType: "early-out", StartDate: "01/03/2024", Time: strPtr("15:00")}

		_, appErr := dto.ToSubmission()

		Expect(appErr).NotTo(BeNil())
		Expect(validationFields(appErr)).To(ContainElement("start_date"))
	})

	It("requires a clock time for early-out", func() {
		dto := leave.SubmitLeaveDTO{LeaveType: "early-out", StartDate: "2024-03-01", Time: strPtr("3pm")}

		_, appErr := dto.ToSubmission()

		Expect(appErr).NotTo(BeNil())
		Expect(validationFields(appErr)).To(ConsistOf("time"))
	})

	It("renders late-arrival extra info from the time", func() {
		dto := leave.SubmitLeaveDTO{LeaveType: "late-arrival", StartDate: "2024-03-01", Time: strPtr("10:30")}

		sub, appErr := dto.ToSubmission()
		Expect(appErr).To(BeNil())

		l := leave.NewLeaveRequest("user-1", sub, time.Now())
		Expect(*l.ExtraInfo).To(Equal("Arriving at 10:30"))
		Expect(l.EndDate).To(Equal(l.StartDate))
	})

	It("accepts legacy extra_info text in place of the typed field", func() {
		dto := leave.SubmitLeaveDTO{LeaveType: "early-out", StartDate: "2024-03-01", ExtraInfo: strPtr("Early out at 16:15")}

		sub, appErr := dto.ToSubmission()

		Expect(appErr).To(BeNil())
		Expect(sub.Detail).To(Equal(leave.EarlyOut{At: "16:15"}))
	})

	It("leaves extra_info empty for full-day leave", func() {
		dto := leave.SubmitLeaveDTO{LeaveType: "full-day", StartDate: "2024-03-01", EndDate: strPtr("2024-03-03"), Reason: strPtr("family trip")}

		sub, appErr := dto.ToSubmission()
		Expect(appErr).To(BeNil())

		l := leave.NewLeaveRequest("user-1", sub, time.Now())
		Expect(l.ExtraInfo).To(BeNil())
		Expect(*l.Reason).To(Equal("family trip"))
		Expect(l.EndDate).To(Equal(date("2024-03-03")))
	})
})

var _ = Describe("ReviewLeaveDTO", func() {
	It("accepts approved and rejected", func() {
		Expect(leave.ReviewLeaveDTO{Decision: "approved"}.Validate()).To(BeNil())
		Expect(leave.ReviewLeaveDTO{Decision: "rejected"}.Validate()).To(BeNil())
	})

	It("rejects pending as a decision", func() {
		appErr := leave.ReviewLeaveDTO{Decision: "pending"}.Validate()
		Expect(appErr).NotTo(BeNil())
		Expect(validationFields(appErr)).To(ConsistOf("decision"))
	})
})

var _ = Describe("LeaveRequest", func() {
	var (
		l        *leave.LeaveRequest
		created  time.Time
		hr       = internal.Session{UserID: "hr-1", Role: internal.RoleHR}
		employee = internal.Session{UserID: "emp-1", Role: internal.RoleEmployee}
	)

	BeforeEach(func() {
		created = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		sub := leave.Submission{StartDate: date("2024-03-04"), Detail: leave.FullDay{End: date("2024-03-05")}}
		l = leave.NewLeaveRequest("emp-1", sub, created)
	})

	It("offers approve and reject to reviewers while pending", func() {
		Expect(l.Actions(hr)).To(Equal([]leave.Action{leave.ActionApprove, leave.ActionReject}))
	})

	It("offers nothing to employees", func() {
		Expect(l.Actions(employee)).To(BeEmpty())
	})

	It("offers nothing once reviewed", func() {
		l.Review("hr-1", leave.StatusApproved, created.Add(time.Hour))
		Expect(l.CanBeReviewed()).To(BeFalse())
		Expect(l.Actions(hr)).To(BeEmpty())
	})

	It("never records a review before creation", func() {
		l.Review("hr-1", leave.StatusRejected, created.Add(-time.Minute))

		Expect(*l.ReviewedAt).To(Equal(created))
		Expect(*l.ReviewedBy).To(Equal("hr-1"))
		Expect(l.Status).To(Equal(leave.StatusRejected))
	})

	It("labels types for people", func() {
		Expect(leave.TypeLabel(leave.TypeLateArrival)).To(Equal("Late Arrival"))
		Expect(leave.TypeLabel(leave.TypeFullDay)).To(Equal("Full Day"))
	})

	It("labels types from many goroutines at once", func() {
		var wg sync.WaitGroup
		labels := make([]string, 64)
		for i := range labels {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				labels[i] = leave.TypeLabel(leave.TypeLateArrival)
			}(i)
		}
		wg.Wait()

		for _, label := range labels {
			Expect(label).To(Equal("Late Arrival"))
		}
	})
})
