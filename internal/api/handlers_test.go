package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvintake/internal/config"
	"cvintake/internal/database"
	"cvintake/internal/intake"
)

type fakeSubmitter struct {
	calls  int
	got    intake.Submission
	result *intake.Result
	err    error
}

func (f *fakeSubmitter) Submit(_ context.Context, _ *slog.Logger, sub intake.Submission) (*intake.Result, error) {
	f.calls++
	f.got = sub
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeLister struct {
	rows  []database.Submission
	limit int
	err   error
}

func (f *fakeLister) ListRecent(_ context.Context, limit int) ([]database.Submission, error) {
	f.limit = limit
	return f.rows, f.err
}

func newTestRouter(t *testing.T, submitter Submitter, lister SubmissionLister, maxBytes int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(&config.Config{}, logger)
	h := Handlers{
		Submit:         NewSubmitHandler(submitter, maxBytes),
		Health:         NewHealthHandler(time.Now().Add(-90 * time.Second)),
		InternalSecret: "s3cret",
	}
	if lister != nil {
		h.Submissions = NewSubmissionsHandler(lister)
	}
	RegisterRoutes(router, h)
	return router
}

func newSubmitForm(t *testing.T, fields map[string]string, fileName, fileType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="cv"; filename="`+fileName+`"`)
		header.Set("Content-Type", fileType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{"name": "Ada", "email": "ada@example.com", "phone": "123"}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestSubmit_Success(t *testing.T) {
	submitter := &fakeSubmitter{result: &intake.Result{ApplicationID: "1715000000000", CVURL: "https://cv.example.com/x"}}
	router := newTestRouter(t, submitter, nil, 1<<20)

	for _, path := range []string{"/submit", "/api/submit"} {
		body, contentType := newSubmitForm(t, validFields(), "cv.pdf", "application/pdf", []byte("%PDF-1.4"))
		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d body=%s", path, w.Code, w.Body.String())
		}
		got := decodeBody(t, w)
		if got["success"] != true || got["message"] != "Application processed successfully!" {
			t.Fatalf("%s: unexpected body %v", path, got)
		}
		if got["applicationId"] != "1715000000000" || got["cvUrl"] != "https://cv.example.com/x" {
			t.Fatalf("%s: unexpected ids %v", path, got)
		}
	}

	if submitter.got.FileName != "cv.pdf" || submitter.got.MIMEType != "application/pdf" || string(submitter.got.File) != "%PDF-1.4" {
		t.Fatalf("file not forwarded: %+v", submitter.got)
	}
	if submitter.got.CorrelationID == "" {
		t.Fatalf("expected correlation id to be forwarded")
	}
}

func TestSubmit_MissingFields(t *testing.T) {
	cases := map[string]func() (*bytes.Buffer, string){
		"no file": func() (*bytes.Buffer, string) {
			return newSubmitForm(t, validFields(), "", "", nil)
		},
		"no phone": func() (*bytes.Buffer, string) {
			fields := validFields()
			delete(fields, "phone")
			return newSubmitForm(t, fields, "cv.pdf", "application/pdf", []byte("x"))
		},
		"not multipart": func() (*bytes.Buffer, string) {
			return bytes.NewBufferString(`{"name":"Ada"}`), "application/json"
		},
	}

	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			router := newTestRouter(t, &fakeSubmitter{}, nil, 1<<20)
			body, contentType := build()
			req := httptest.NewRequest(http.MethodPost, "/submit", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
			}
			got := decodeBody(t, w)
			if got["error"] != "Missing required fields" || got["details"] != "Please provide name, email, phone and CV file" {
				t.Fatalf("unexpected body %s", w.Body.String())
			}
		})
	}
}

func TestSubmit_TooLarge(t *testing.T) {
	submitter := &fakeSubmitter{}
	router := newTestRouter(t, submitter, nil, 1024)

	body, contentType := newSubmitForm(t, validFields(), "cv.pdf", "application/pdf", bytes.Repeat([]byte("a"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/submit", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w); got["error"] != "File upload failed" {
		t.Fatalf("unexpected body %v", got)
	}
	if submitter.calls != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestSubmit_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "processing",
			err:        &intake.ProcessingError{Step: intake.StepStorage, Message: "Failed to upload CV file: boom"},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Application processing failed","message":"Failed to upload CV file: boom"}`,
		},
		{
			name:       "rejected",
			err:        &intake.UploadRejectedError{Message: "malicious file detected"},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"File upload failed","message":"malicious file detected"}`,
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Application processing failed","message":"boom"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeSubmitter{err: tc.err}, nil, 1<<20)
			body, contentType := newSubmitForm(t, validFields(), "cv.pdf", "application/pdf", []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/api/submit", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d got %d", tc.wantStatus, w.Code)
			}
			if strings.TrimSpace(w.Body.String()) != tc.wantBody {
				t.Fatalf("unexpected body %s", w.Body.String())
			}
		})
	}
}

func TestSubmit_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, &fakeSubmitter{}, nil, 1<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/submit", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &fakeSubmitter{}, nil, 1<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	got := decodeBody(t, w)
	if got["message"] != "OK" {
		t.Fatalf("unexpected body %v", got)
	}
	if uptime, _ := got["uptime"].(float64); uptime < 90 {
		t.Fatalf("expected uptime >= 90s, got %v", got["uptime"])
	}
	if ts, _ := got["timestamp"].(float64); ts <= 0 {
		t.Fatalf("expected unix millis timestamp, got %v", got["timestamp"])
	}
}

func TestListSubmissions(t *testing.T) {
	sent := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	lister := &fakeLister{rows: []database.Submission{{
		Model:              gorm.Model{CreatedAt: sent},
		ApplicationID:      "1715000000000",
		ObjectKey:          "1715000000000_ada.pdf",
		Email:              "ada@example.com",
		Education:          datatypes.JSON(`["Education\nMIT"]`),
		ConfirmationSentAt: &sent,
	}}}
	router := newTestRouter(t, &fakeSubmitter{}, lister, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/internal/submissions?limit=500", nil)
	req.Header.Set("X-Internal-Secret", "s3cret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if lister.limit != maxListLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxListLimit, lister.limit)
	}

	var body struct {
		Count       int `json:"count"`
		Submissions []struct {
			ApplicationID string   `json:"applicationId"`
			ObjectKey     string   `json:"objectKey"`
			Education     []string `json:"education"`
			Projects      []string `json:"projects"`
		} `json:"submissions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Submissions[0].ApplicationID != "1715000000000" || body.Submissions[0].ObjectKey != "1715000000000_ada.pdf" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if len(body.Submissions[0].Education) != 1 || body.Submissions[0].Projects == nil {
		t.Fatalf("sections not decoded: %s", w.Body.String())
	}
}

func TestListSubmissions_RequiresSecret(t *testing.T) {
	router := newTestRouter(t, &fakeSubmitter{}, &fakeLister{}, 1<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/submissions", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestListSubmissions_BadLimit(t *testing.T) {
	router := newTestRouter(t, &fakeSubmitter{}, &fakeLister{}, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/internal/submissions?limit=abc", nil)
	req.Header.Set("X-Internal-Secret", "s3cret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}
