package profile_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/profile"
	"github.com/frahmantamala/employee-management/internal/storage"
	"github.com/frahmantamala/employee-management/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"
)

var _ = Describe("Profile Handler", func() {
	var (
		handler *profile.Handler
		repo    *mockProfileRepository

		employee = internal.Session{UserID: "emp-1", Role: internal.RoleEmployee}
		hr       = internal.Session{UserID: "hr-1", Role: internal.RoleHR}
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = newMockProfileRepository()
		repo.add("emp-1", "emp@example.com", "Eli Employee", "employee")
		repo.add("hr-1", "hr@example.com", "Hana HR", "hr")

		store := storage.NewStore(afero.NewMemMapFs(), internal.StorageConfig{MaxUploadMB: 1}, logger)
		svc := profile.NewService(repo, store, logger, bcrypt.MinCost)
		handler = profile.NewHandler(&transport.BaseHandler{Logger: logger}, svc, store.MaxBytes())
	})

	as := func(req *http.Request, s internal.Session) *http.Request {
		return req.WithContext(internal.ContextWithSession(req.Context(), s))
	}

	multipartBody := func(filename, contentType string, content []byte) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())
		return body, mw.FormDataContentType()
	}

	It("returns the current profile", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/me", nil)
		w := httptest.NewRecorder()

		handler.GetMe(w, as(req, employee))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp profile.ProfileResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Email).To(Equal("emp@example.com"))
		Expect(resp.Role).To(Equal(internal.RoleEmployee))
	})

	It("uploads an avatar from a multipart form", func() {
		body, ct := multipartBody("me.jpg", "image/jpeg", []byte("jpeg"))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/me/avatar", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()

		handler.UploadAvatar(w, as(req, employee))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp profile.ProfileResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(*resp.ProfilePicURL).To(HaveSuffix(".jpg"))
	})

	It("returns 400 when the file part is missing", func() {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		Expect(mw.WriteField("note", "no file")).To(Succeed())
		Expect(mw.Close()).To(Succeed())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/me/avatar", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()

		handler.UploadAvatar(w, as(req, employee))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("creates an employee and reports duplicates with 409", func() {
		payload := `{"email":"new@example.com","password":"password123","full_name":"New Person","role":"employee"}`

		req := httptest.NewRequest(http.MethodPost, "/api/v1/employees", bytes.NewBufferString(payload))
		w := httptest.NewRecorder()
		handler.CreateEmployee(w, as(req, hr))
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(w.Body.String()).NotTo(ContainSubstring("password"))

		req = httptest.NewRequest(http.MethodPost, "/api/v1/employees", bytes.NewBufferString(payload))
		w = httptest.NewRecorder()
		handler.CreateEmployee(w, as(req, hr))
		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("registers a self-service account as an employee", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
			bytes.NewBufferString(`{"email":"self@example.com","password":"password123","full_name":"Self Signup"}`))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		Expect(w.Code).To(Equal(http.StatusCreated))
		var resp profile.ProfileResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Role).To(Equal(internal.RoleEmployee))
	})

	It("rejects a signup that tries to pick its role", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
			bytes.NewBufferString(`{"email":"boss@example.com","password":"password123","full_name":"Would Be Admin","role":"admin"}`))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(repo.roles).NotTo(ContainElement("admin"))
	})

	It("forbids employees from listing the directory", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/employees", nil)
		w := httptest.NewRecorder()

		handler.ListEmployees(w, as(req, employee))

		Expect(w.Code).To(Equal(http.StatusForbidden))
	})
})
