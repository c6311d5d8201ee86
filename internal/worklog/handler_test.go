package worklog_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/core/events"
	"github.com/frahmantamala/employee-management/internal/transport"
	"github.com/frahmantamala/employee-management/internal/worklog"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("WorkLog Handler", func() {
	var (
		handler *worklog.Handler
		service *worklog.Service
		hub     *worklog.Hub
		bus     *events.EventBus
		room    *worklog.Room

		hr       = internal.Session{UserID: "hr-1", Role: internal.RoleHR}
		employee = internal.Session{UserID: "emp-1", Role: internal.RoleEmployee}
	)

	withSession := func(req *http.Request, s internal.Session) *http.Request {
		return req.WithContext(internal.ContextWithSession(req.Context(), s))
	}

	withID := func(req *http.Request, id string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(logger)
		hub = worklog.NewHub(logger)
		hub.Register(bus)

		service = worklog.NewService(newMockWorkLogRepository(), nil, bus, logger).
			WithCodeGenerator(func() (string, error) { return "ROOM01", nil })
		handler = worklog.NewHandler(&transport.BaseHandler{Logger: logger}, service, hub)

		var err error
		room, err = service.CreateRoom(context.Background(), hr, worklog.CreateRoomDTO{Name: "Ops"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		bus.Wait()
	})

	It("creates a room for hr with 201", func() {
		service.WithCodeGenerator(func() (string, error) { return "ROOM02", nil })
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms", bytes.NewBufferString(`{"name":"Design"}`))
		w := httptest.NewRecorder()

		handler.CreateRoom(w, withSession(req, hr))

		Expect(w.Code).To(Equal(http.StatusCreated))
		var resp worklog.RoomResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.RoomCode).To(Equal("ROOM02"))
	})

	It("joins by lowercase code and reports repeat joins with 409", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/join", bytes.NewBufferString(`{"room_code":"room01"}`))
		w := httptest.NewRecorder()
		handler.JoinRoom(w, withSession(req, employee))
		Expect(w.Code).To(Equal(http.StatusOK))

		req = httptest.NewRequest(http.MethodPost, "/api/v1/rooms/join", bytes.NewBufferString(`{"room_code":"ROOM01"}`))
		w = httptest.NewRecorder()
		handler.JoinRoom(w, withSession(req, employee))
		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("returns 404 for an unknown room code", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/join", bytes.NewBufferString(`{"room_code":"NOPE00"}`))
		w := httptest.NewRecorder()
		handler.JoinRoom(w, withSession(req, employee))
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("rejects a malformed since parameter", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/"+room.ID+"/logs?since=yesterday", nil)
		w := httptest.NewRecorder()
		handler.ListLogs(w, withID(withSession(req, hr), room.ID))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 403 to non-members", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/"+room.ID+"/logs", nil)
		w := httptest.NewRecorder()
		handler.ListLogs(w, withID(withSession(req, employee), room.ID))
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("streams new logs to a member as server-sent events", func() {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, withSession(req, hr))
			})
		})
		r.Get("/rooms/{id}/logs/stream", handler.StreamLogs)
		server := httptest.NewServer(r)
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/rooms/"+room.ID+"/logs/stream", nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))

		reader := bufio.NewReader(resp.Body)
		line, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal(": connected\n"))
		Eventually(func() int { return hub.Subscribers(room.ID) }).Should(Equal(1))

		_, err = service.CreateLog(context.Background(), hr, room.ID, worklog.CreateLogDTO{LogDate: "2024-03-04", Tasks: "deployed"})
		Expect(err).NotTo(HaveOccurred())

		var data string
		for data == "" {
			line, err = reader.ReadString('\n')
			Expect(err).NotTo(HaveOccurred())
			if strings.HasPrefix(line, "data: ") {
				data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}

		var delta worklog.LogResponse
		Expect(json.Unmarshal([]byte(data), &delta)).To(Succeed())
		Expect(delta.Tasks).To(Equal("deployed"))
		Expect(delta.RoomID).To(Equal(room.ID))
	})
})
