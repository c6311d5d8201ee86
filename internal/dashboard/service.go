package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/auth"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Authorizer decides whether a role sees company-wide counters.
type Authorizer interface {
	Can(role internal.Role, resource, action string) (bool, error)
}

type Service struct {
	counter Counter
	authz   Authorizer
	logger  *slog.Logger
	sf      singleflight.Group
	timeout time.Duration
}

func NewService(counter Counter, authz Authorizer, logger *slog.Logger) *Service {
	return &Service{
		counter: counter,
		authz:   authz,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Get returns company-wide counters for roles holding dashboard:all and the
// caller's own counters for everyone else. Identical concurrent requests share
// one set of queries.
func (s *Service) Get(ctx context.Context, session internal.Session) (*Stats, error) {
	key := "user:" + session.UserID
	scope := session.UserID
	if s.companyWide(session) {
		key, scope = "all", ""
	}

	// the flight outlives any single caller, so it must not inherit one
	// caller's cancellation
	flightCtx := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(key, func() (interface{}, error) {
		return s.collect(flightCtx, scope)
	})

	select {
	case <-ctx.Done():
		s.logger.Warn("dashboard request abandoned", "error", ctx.Err(), "user_id", session.UserID)
		return nil, internal.NewInternalError("failed to load dashboard", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			s.logger.Error("failed to load dashboard", "error", res.Err, "user_id", session.UserID)
			return nil, internal.NewInternalError("failed to load dashboard", res.Err)
		}
		if res.Shared {
			s.logger.Debug("dashboard result shared", "key", key)
		}
		stats := *res.Val.(*Stats)
		return &stats, nil
	}
}

func (s *Service) companyWide(session internal.Session) bool {
	allowed, err := s.authz.Can(session.Role, auth.ResourceDashboard, auth.ActionAll)
	if err != nil {
		s.logger.Warn("dashboard scope check failed, using own scope", "error", err, "user_id", session.UserID)
		return false
	}
	return allowed
}

func (s *Service) collect(ctx context.Context, userID string) (*Stats, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	var stats Stats
	g, gctx := errgroup.WithContext(ctx)

	if userID == "" {
		g.Go(func() error {
			n, err := s.counter.CountEmployees(gctx)
			stats.Employees = &n
			return err
		})
	}
	g.Go(func() (err error) {
		stats.PendingLeaves, err = s.counter.CountPendingLeaves(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		stats.Documents, err = s.counter.CountDocuments(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		stats.Rooms, err = s.counter.CountRooms(gctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}
