package projects_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
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

func doJSON(t *testing.T, app *bootstrap.App, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	return resp
}

type projectResponse struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

func TestProjectsSeededList(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/projects", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var projects []projectResponse
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("expected 3 seeded projects, got %d", len(projects))
	}
}

func TestProjectCreateDefaultsStatus(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/projects",
		`{"name":"Metro Line Extension","location":"Jakarta","startDate":"2026-09-01"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var project projectResponse
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if project.Status != "active" {
		t.Fatalf("expected default status active, got %s", project.Status)
	}
	if project.ID == 0 {
		t.Fatal("expected a project id")
	}
}

func TestProjectCreateValidation(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/projects", `{"location":"Jakarta"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []struct {
					Field string `json:"field"`
					Rule  string `json:"rule"`
				} `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %s", envelope.Error.Code)
	}
	if len(envelope.Error.Details.Fields) == 0 {
		t.Fatal("expected violated fields in details")
	}
}

func TestProjectCreateRejectsUnknownStatus(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/projects",
		`{"name":"X","location":"Y","status":"paused"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.Code)
	}
}

func TestProjectPatchAndDelete(t *testing.T) {
	app := newTestApp(t)

	createResp := doJSON(t, app, http.MethodPost, "/api/projects",
		`{"name":"Depot Rebuild","location":"Bekasi","status":"pending"}`)
	if createResp.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", createResp.Code)
	}
	var created projectResponse
	if err := json.NewDecoder(createResp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	path := fmt.Sprintf("/api/projects/%d", created.ID)

	patchResp := doJSON(t, app, http.MethodPatch, path, `{"status":"completed"}`)
	if patchResp.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", patchResp.Code, patchResp.Body.String())
	}
	var patched projectResponse
	if err := json.NewDecoder(patchResp.Body).Decode(&patched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if patched.Status != "completed" {
		t.Fatalf("expected completed, got %s", patched.Status)
	}
	if patched.Name != "Depot Rebuild" {
		t.Fatalf("patch must not clear name, got %s", patched.Name)
	}

	delResp := doJSON(t, app, http.MethodDelete, path, "")
	if delResp.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", delResp.Code)
	}
	delAgain := doJSON(t, app, http.MethodDelete, path, "")
	if delAgain.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: expected 404, got %d", delAgain.Code)
	}
}

func TestProjectRecentLimit(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/projects/recent", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var projects []projectResponse
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("expected default limit of 3, got %d", len(projects))
	}

	resp = doJSON(t, app, http.MethodGet, "/api/projects/recent?limit=1", "")
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(projects))
	}
}

func TestProjectBadIDRejected(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/projects/abc", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", resp.Code)
	}
}
