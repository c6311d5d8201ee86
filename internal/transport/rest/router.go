package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/employee-management/api"
	"github.com/frahmantamala/employee-management/internal/auth"
	"github.com/frahmantamala/employee-management/internal/dashboard"
	"github.com/frahmantamala/employee-management/internal/document"
	"github.com/frahmantamala/employee-management/internal/leave"
	"github.com/frahmantamala/employee-management/internal/notification"
	"github.com/frahmantamala/employee-management/internal/profile"
	"github.com/frahmantamala/employee-management/internal/transport/middleware"
	"github.com/frahmantamala/employee-management/internal/transport/swagger"
	"github.com/frahmantamala/employee-management/internal/worklog"
	"github.com/go-chi/chi"
)

// Handlers are the domain handlers mounted under /api/v1. A nil handler
// leaves its routes unregistered.
type Handlers struct {
	Auth         *auth.Handler
	Profile      *profile.Handler
	Leave        *leave.Handler
	Document     *document.Handler
	WorkLog      *worklog.Handler
	Notification *notification.Handler
	Dashboard    *dashboard.Handler
}

// Middlewares are the optional route middlewares. Nil entries are skipped.
type Middlewares struct {
	AllowedOrigins string
	OpenAPI        func(http.Handler) http.Handler
	Idempotency    func(http.Handler) http.Handler
	LoginRateLimit func(http.Handler) http.Handler
	// Avatars serves public profile pictures under /files/avatars.
	Avatars http.Handler
}

func use(r chi.Router, mw func(http.Handler) http.Handler) {
	if mw != nil {
		r.Use(mw)
	}
}

func RegisterAllRoutes(router *chi.Mux, health *HealthHandler, rbac *auth.RBACAuthorization, h Handlers, mws Middlewares, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORS(mws.AllowedOrigins))

	// OpenAPI document and Swagger UI live outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.OpenAPI)
	})
	router.Handle("/swagger/*", swagger.Handler())

	if mws.Avatars != nil {
		router.Handle("/files/avatars/*", http.StripPrefix("/files/avatars", mws.Avatars))
	}

	router.Route("/api/v1", func(r chi.Router) {
		use(r, mws.OpenAPI)

		r.Get("/health", health.healthCheckHandler)
		r.Get("/ping", health.pingHandler)

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.With(optional(mws.LoginRateLimit)...).Post("/login", h.Auth.Login)
			if h.Profile != nil {
				ar.With(optional(mws.LoginRateLimit)...).Post("/register", h.Profile.Register)
			}
			ar.Post("/refresh", h.Auth.RefreshToken)
			ar.Post("/logout", h.Auth.Logout)
		})

		if h.WorkLog != nil {
			r.With(h.Auth.StreamAuthMiddleware).Get("/rooms/{id}/logs/stream", h.WorkLog.StreamLogs)
		}
		if h.Notification != nil && h.Notification.Hub != nil {
			r.With(h.Auth.StreamAuthMiddleware).Get("/notifications/stream", h.Notification.StreamNotifications)
		}

		// everything below requires a bearer token
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			use(pr, mws.Idempotency)

			if h.Profile != nil {
				pr.Route("/profile/me", func(mr chi.Router) {
					mr.Get("/", h.Profile.GetMe)
					mr.Put("/", h.Profile.UpdateMe)
					mr.Post("/avatar", h.Profile.UploadAvatar)
				})

				pr.Route("/employees", func(er chi.Router) {
					er.With(rbac.RequirePermission(auth.ResourceEmployees, auth.ActionRead)).Get("/", h.Profile.ListEmployees)
					er.Group(func(wr chi.Router) {
						wr.Use(rbac.RequirePermission(auth.ResourceEmployees, auth.ActionWrite))
						wr.Post("/", h.Profile.CreateEmployee)
						wr.Put("/{id}", h.Profile.UpdateEmployee)
					})
				})
			}

			if h.Leave != nil {
				pr.Route("/leave-requests", func(lr chi.Router) {
					lr.Post("/", h.Leave.SubmitLeaveRequest)
					lr.Get("/", h.Leave.ListLeaveRequests)
					lr.Get("/export", h.Leave.ExportLeaveRequests)

					lr.Group(func(rr chi.Router) {
						rr.Use(rbac.RequirePermission(auth.ResourceLeave, auth.ActionReview))
						rr.Patch("/{id}/review", h.Leave.ReviewLeaveRequest)
					})
				})
			}

			if h.Document != nil {
				pr.Route("/documents", func(dr chi.Router) {
					dr.Get("/", h.Document.ListDocuments)
					dr.Get("/{id}/download", h.Document.DownloadDocument)
					dr.With(rbac.RequirePermission(auth.ResourceDocuments, auth.ActionUpload)).Post("/", h.Document.UploadDocument)
				})
			}

			if h.WorkLog != nil {
				// flat patterns so the stream route above shares this subtree
				pr.Get("/rooms", h.WorkLog.ListRooms)
				pr.With(rbac.RequirePermission(auth.ResourceRooms, auth.ActionCreate)).Post("/rooms", h.WorkLog.CreateRoom)
				pr.Post("/rooms/join", h.WorkLog.JoinRoom)
				pr.Get("/rooms/{id}/logs", h.WorkLog.ListLogs)
				pr.Post("/rooms/{id}/logs", h.WorkLog.CreateLog)
			}

			if h.Notification != nil {
				pr.Get("/notifications", h.Notification.ListNotifications)
				pr.Patch("/notifications/{id}/read", h.Notification.MarkRead)
				pr.Post("/notifications/read-all", h.Notification.MarkAllRead)
			}

			if h.Dashboard != nil {
				pr.Get("/dashboard", h.Dashboard.GetDashboard)
			}
		})
	})
}

func optional(mw func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
	if mw == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{mw}
}
