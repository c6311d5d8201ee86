package dashboard

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Counter runs the individual count queries. An empty userID counts across
// every user.
type Counter interface {
	CountEmployees(ctx context.Context) (int64, error)
	CountPendingLeaves(ctx context.Context, userID string) (int64, error)
	CountDocuments(ctx context.Context, userID string) (int64, error)
	CountRooms(ctx context.Context, userID string) (int64, error)
}

const (
	countEmployeesQuery         = `SELECT COUNT(*) FROM profiles`
	countPendingLeavesQuery     = `SELECT COUNT(*) FROM leave_requests WHERE status = 'pending'`
	countUserPendingLeavesQuery = `SELECT COUNT(*) FROM leave_requests WHERE status = 'pending' AND user_id = $1`
	countDocumentsQuery         = `SELECT COUNT(*) FROM documents`
	countUserDocumentsQuery     = `SELECT COUNT(*) FROM documents WHERE user_id = $1`
	countRoomsQuery             = `SELECT COUNT(*) FROM chat_rooms`
	countUserRoomsQuery         = `SELECT COUNT(*) FROM room_members WHERE user_id = $1`
)

type SQLCounter struct {
	db *sqlx.DB
}

func NewSQLCounter(db *sqlx.DB) *SQLCounter {
	return &SQLCounter{db: db}
}

func (c *SQLCounter) count(ctx context.Context, all, scoped, userID string) (int64, error) {
	var n int64
	if userID == "" {
		err := c.db.GetContext(ctx, &n, all)
		return n, err
	}
	err := c.db.GetContext(ctx, &n, scoped, userID)
	return n, err
}

func (c *SQLCounter) CountEmployees(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.GetContext(ctx, &n, countEmployeesQuery)
	return n, err
}

func (c *SQLCounter) CountPendingLeaves(ctx context.Context, userID string) (int64, error) {
	return c.count(ctx, countPendingLeavesQuery, countUserPendingLeavesQuery, userID)
}

func (c *SQLCounter) CountDocuments(ctx context.Context, userID string) (int64, error) {
	return c.count(ctx, countDocumentsQuery, countUserDocumentsQuery, userID)
}

func (c *SQLCounter) CountRooms(ctx context.Context, userID string) (int64, error) {
	return c.count(ctx, countRoomsQuery, countUserRoomsQuery, userID)
}
