package documents_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"edms-backend/internal/bootstrap"
	"edms-backend/internal/shared/config"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app, err := bootstrap.Build(config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		UploadDir:       t.TempDir(),
	})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func multipartBody(t *testing.T, fileName, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

type documentResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	ProjectID   *int   `json:"projectId"`
	FilePath    string `json:"filePath"`
	StorageType string `json:"storageType"`
	FileSize    int64  `json:"fileSize"`
	IsAnalyzed  bool   `json:"isAnalyzed"`
}

func TestUploadCreatesDocument(t *testing.T) {
	app := newTestApp(t)

	body, contentType := multipartBody(t, "daily-report.txt", "crane arrived on site", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var doc documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if doc.ID == 0 {
		t.Fatal("expected a document id")
	}
	if doc.Name != "daily-report.txt" {
		t.Fatalf("expected name daily-report.txt, got %s", doc.Name)
	}
	if doc.Type != "TXT" {
		t.Fatalf("expected type TXT, got %s", doc.Type)
	}
	if doc.StorageType != "supabase" {
		t.Fatalf("expected supabase storage, got %s", doc.StorageType)
	}
	// No storage credentials in tests: the locator degrades to a placeholder.
	if doc.FilePath != "supabase://documents/daily-report.txt" {
		t.Fatalf("unexpected filePath %s", doc.FilePath)
	}
	if doc.FileSize != int64(len("crane arrived on site")) {
		t.Fatalf("unexpected fileSize %d", doc.FileSize)
	}
	if doc.IsAnalyzed {
		t.Fatal("expected isAnalyzed false right after upload")
	}
}

func TestUploadHonorsNameAndProjectFields(t *testing.T) {
	app := newTestApp(t)

	body, contentType := multipartBody(t, "raw.txt", "x", map[string]string{
		"name":      "Renamed Report",
		"projectId": "1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var doc documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if doc.Name != "Renamed Report" {
		t.Fatalf("expected overridden name, got %s", doc.Name)
	}
	// Storage routing uses the resolved name, so the locator carries the
	// override rather than the wire filename.
	if doc.FilePath != "supabase://documents/Renamed Report" {
		t.Fatalf("expected locator under overridden name, got %s", doc.FilePath)
	}
	if doc.ProjectID == nil || *doc.ProjectID != 1 {
		t.Fatalf("expected projectId 1, got %v", doc.ProjectID)
	}
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	app := newTestApp(t)

	big := strings.Repeat("x", 21<<20)
	body, contentType := multipartBody(t, "oversized.txt", big, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "exceeds the 20MB limit") {
		t.Fatalf("expected size-limit message, got %s", resp.Body.String())
	}

	// Nothing may have been persisted.
	listReq := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	listResp := httptest.NewRecorder()
	app.Router.ServeHTTP(listResp, listReq)
	var docs []documentResponse
	if err := json.NewDecoder(listResp.Body).Decode(&docs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents after rejected upload, got %d", len(docs))
	}
}

func TestUploadRequiresFile(t *testing.T) {
	app := newTestApp(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("name", "nothing attached"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "file is required") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestUploadRejectsBadProjectID(t *testing.T) {
	app := newTestApp(t)

	body, contentType := multipartBody(t, "a.txt", "x", map[string]string{"projectId": "zero"})
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	app := newTestApp(t)

	body, contentType := multipartBody(t, "plan.txt", "foundation plan", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d", resp.Code)
	}
	var created documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	docPath := fmt.Sprintf("/api/documents/%d", created.ID)

	// Fetch it back.
	getReq := httptest.NewRequest(http.MethodGet, docPath, nil)
	getResp := httptest.NewRecorder()
	app.Router.ServeHTTP(getResp, getReq)
	if getResp.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", getResp.Code)
	}

	// Rename it.
	patch := bytes.NewBufferString(`{"name":"Foundation Plan v2"}`)
	patchReq := httptest.NewRequest(http.MethodPatch, docPath, patch)
	patchReq.Header.Set("Content-Type", "application/json")
	patchResp := httptest.NewRecorder()
	app.Router.ServeHTTP(patchResp, patchReq)
	if patchResp.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", patchResp.Code, patchResp.Body.String())
	}
	var patched documentResponse
	if err := json.NewDecoder(patchResp.Body).Decode(&patched); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	if patched.Name != "Foundation Plan v2" {
		t.Fatalf("expected renamed document, got %s", patched.Name)
	}

	// Delete it, then confirm the repeat delete 404s.
	delReq := httptest.NewRequest(http.MethodDelete, docPath, nil)
	delResp := httptest.NewRecorder()
	app.Router.ServeHTTP(delResp, delReq)
	if delResp.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", delResp.Code)
	}

	delAgain := httptest.NewRequest(http.MethodDelete, docPath, nil)
	delAgainResp := httptest.NewRecorder()
	app.Router.ServeHTTP(delAgainResp, delAgain)
	if delAgainResp.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: expected 404, got %d", delAgainResp.Code)
	}
}

func TestDocumentNotFound(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/999", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("expected not_found code, got %s", envelope.Error.Code)
	}
}

func TestRecentDocumentsRespectsLimit(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 6; i++ {
		body, contentType := multipartBody(t, "doc.txt", "content", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()
		app.Router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("upload %d: expected 201, got %d", i, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/documents/recent", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var docs []documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(docs) != 4 {
		t.Fatalf("expected default limit of 4, got %d", len(docs))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/documents/recent?limit=2", nil)
	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
}

func TestProjectDocumentsListing(t *testing.T) {
	app := newTestApp(t)

	body, contentType := multipartBody(t, "filed.txt", "x", map[string]string{"projectId": "2"})
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d", resp.Code)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/projects/2/documents", nil)
	listResp := httptest.NewRecorder()
	app.Router.ServeHTTP(listResp, listReq)
	if listResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listResp.Code)
	}
	var docs []documentResponse
	if err := json.NewDecoder(listResp.Body).Decode(&docs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one filed document, got %d", len(docs))
	}

	missingReq := httptest.NewRequest(http.MethodGet, "/api/projects/99/documents", nil)
	missingResp := httptest.NewRecorder()
	app.Router.ServeHTTP(missingResp, missingReq)
	if missingResp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown project, got %d", missingResp.Code)
	}
}
