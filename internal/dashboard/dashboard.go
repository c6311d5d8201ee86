// Package dashboard computes the role-dependent counters shown on the home
// screen.
package dashboard

// Stats holds the dashboard counters. Employees is only set for admin and hr.
type Stats struct {
	Employees     *int64 `json:"employees,omitempty"`
	PendingLeaves int64  `json:"pending_leaves"`
	Documents     int64  `json:"documents"`
	Rooms         int64  `json:"rooms"`
}
