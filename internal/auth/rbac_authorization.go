package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/transport"
)

const (
	ResourceLeave     = "leave"
	ResourceEmployees = "employees"
	ResourceDocuments = "documents"
	ResourceRooms     = "rooms"
	ResourceDashboard = "dashboard"

	ActionRead   = "read"
	ActionWrite  = "write"
	ActionReview = "review"
	ActionCreate = "create"
	ActionUpload = "upload"
	ActionAll    = "all"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// rolePolicies is the whole permission table. Employees hold no extra
// permissions; self-service routes are not behind RequirePermission.
var rolePolicies = [][]string{
	{string(internal.RoleAdmin), "*", "*"},
	{string(internal.RoleHR), ResourceLeave, ActionReview},
	{string(internal.RoleHR), ResourceEmployees, ActionRead},
	{string(internal.RoleHR), ResourceEmployees, ActionWrite},
	{string(internal.RoleHR), ResourceRooms, ActionCreate},
	{string(internal.RoleHR), ResourceDashboard, ActionAll},
}

// Authorizer answers role/resource/action questions with a casbin enforcer.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if _, err := e.AddPolicies(rolePolicies); err != nil {
		return nil, fmt.Errorf("load rbac policy: %w", err)
	}
	return &Authorizer{enforcer: e}, nil
}

func (a *Authorizer) Can(role internal.Role, resource, action string) (bool, error) {
	return a.enforcer.Enforce(string(role), resource, action)
}

type RBACAuthorization struct {
	*transport.BaseHandler
	authorizer *Authorizer
	logger     *slog.Logger
}

func NewRBACAuthorization(authorizer *Authorizer, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		authorizer:  authorizer,
		logger:      logger,
	}
}

// RequirePermission lets the request through only if the session role may
// perform action on resource.
func (ra *RBACAuthorization) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := internal.SessionFromContext(r.Context())
			if !ok {
				ra.logger.Warn("authorization check failed: no session in context")
				ra.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			allowed, err := ra.authorizer.Can(session.Role, resource, action)
			if err != nil {
				ra.logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "user_id", session.UserID)
				ra.HandleServiceError(w, internal.NewInternalError("authorization check failed", err))
				return
			}

			if !allowed {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", session.UserID,
					"role", session.Role,
					"resource", resource,
					"action", action)
				ra.HandleServiceError(w, internal.ErrUnauthorizedAccess)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
