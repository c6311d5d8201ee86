package document_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/employee-management/internal"
	documentDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/document"
	"github.com/frahmantamala/employee-management/internal/document"
	documentPostgres "github.com/frahmantamala/employee-management/internal/document/postgres"
	"github.com/frahmantamala/employee-management/internal/storage"
	"github.com/frahmantamala/employee-management/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Document Handler Integration", func() {
	var (
		db      *gorm.DB
		handler *document.Handler

		admin    = internal.Session{UserID: "7d1e4c60-0000-4000-8000-00000000000a", Role: internal.RoleAdmin}
		employee = internal.Session{UserID: "7d1e4c60-0000-4000-8000-000000000001", Role: internal.RoleEmployee}
		other    = internal.Session{UserID: "7d1e4c60-0000-4000-8000-000000000002", Role: internal.RoleEmployee}
	)

	withSession := func(req *http.Request, s internal.Session) *http.Request {
		return req.WithContext(internal.ContextWithSession(req.Context(), s))
	}

	withID := func(req *http.Request, id string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	upload := func(s internal.Session, userID, filename, content string) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		Expect(mw.WriteField("user_id", userID)).To(Succeed())
		part, err := mw.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte(content))
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		handler.UploadDocument(w, withSession(req, s))
		return w
	}

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&documentDatamodel.Document{})).To(Succeed())

		store := storage.NewStore(afero.NewMemMapFs(), internal.StorageConfig{MaxUploadMB: 1}, slogger)
		service := document.NewService(documentPostgres.NewDocumentRepository(db), store, nil, slogger)
		handler = document.NewHandler(&transport.BaseHandler{Logger: slogger}, service, store.MaxBytes())
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("uploads for an employee and lets only them and reviewers download it", func() {
		// Given an admin uploads a document for the employee
		w := upload(admin, employee.UserID, "contract.txt", "signed")
		Expect(w.Code).To(Equal(http.StatusCreated))

		var created document.DocumentResponse
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.UserID).To(Equal(employee.UserID))
		Expect(created.UploadedBy).To(Equal(admin.UserID))

		// When the owner downloads it
		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.ID+"/download", nil)
		w = httptest.NewRecorder()
		handler.DownloadDocument(w, withID(withSession(req, employee), created.ID))

		// Then the original bytes come back as an attachment
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("signed"))
		Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring(`filename=contract.txt`))

		// And another employee cannot see it
		req = httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.ID+"/download", nil)
		w = httptest.NewRecorder()
		handler.DownloadDocument(w, withID(withSession(req, other), created.ID))
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("returns a download link that works for the owner", func() {
		w := upload(admin, employee.UserID, "payslip.txt", "march")
		Expect(w.Code).To(Equal(http.StatusCreated))

		var created document.DocumentResponse
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.FileURL).To(Equal("/api/v1/documents/" + created.ID + "/download"))

		r := chi.NewRouter()
		r.Get("/api/v1/documents/{id}/download", func(w http.ResponseWriter, req *http.Request) {
			handler.DownloadDocument(w, withSession(req, employee))
		})
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, created.FileURL, nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("march"))
	})

	It("returns 404 when the owner has no profile", func() {
		Expect(db.Callback().Create().Before("gorm:create").Register("test:missing_owner", func(tx *gorm.DB) {
			_ = tx.AddError(gorm.ErrForeignKeyViolated)
		})).To(Succeed())

		w := upload(admin, other.UserID, "orphan.txt", "x")

		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeProfileNotFound)))
	})

	It("lists only the caller's documents for employees", func() {
		Expect(upload(admin, employee.UserID, "mine.txt", "a").Code).To(Equal(http.StatusCreated))
		Expect(upload(admin, other.UserID, "theirs.txt", "b").Code).To(Equal(http.StatusCreated))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
		w := httptest.NewRecorder()
		handler.ListDocuments(w, withSession(req, employee))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp document.DocumentsResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Documents).To(HaveLen(1))
		Expect(resp.Documents[0].FileName).To(Equal("mine.txt"))

		req = httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
		w = httptest.NewRecorder()
		handler.ListDocuments(w, withSession(req, admin))
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Documents).To(HaveLen(2))
	})

	It("returns 403 when a non-admin uploads", func() {
		w := upload(employee, employee.UserID, "self.txt", "x")
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("returns 400 for a malformed document id", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/abc/download", nil)
		w := httptest.NewRecorder()
		handler.DownloadDocument(w, withID(withSession(req, admin), "abc"))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 401 without a session", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
		w := httptest.NewRecorder()
		handler.ListDocuments(w, req)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})
})
