package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/evotools/evo-dispatch/pkg/response"
	validatorpkg "github.com/evotools/evo-dispatch/pkg/validator"
)

// TestScheduleText_BadJSON verifies that invalid JSON returns 400 Bad Request.
func TestScheduleText_BadJSON(t *testing.T) {
	e := echo.New()
	// Validator is not needed here because Bind will fail before Validate is called.
	handler := NewJobHandler(nil)

	reqBody := `{"instance": "loja", "number":`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/text", strings.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.ScheduleText(c)
	if err != nil {
		t.Fatalf("ScheduleText returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	var resp response.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}

	if resp.Success {
		t.Fatalf("expected Success=false, got true")
	}
	if resp.Error == "" {
		t.Fatalf("expected Error to be non-empty")
	}
}

// TestScheduleText_MissingFields verifies that validation failure returns 422
// with field details.
func TestScheduleText_MissingFields(t *testing.T) {
	e := echo.New()
	e.Validator = validatorpkg.New()

	// service is nil on purpose; validation fails before the service is called.
	handler := NewJobHandler(nil)

	reqBody := `{"instance": "loja"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/text", strings.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.ScheduleText(c)
	if err != nil {
		t.Fatalf("ScheduleText returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}

	var resp validatorpkg.ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}

	if resp.Error != "Validation failed" {
		t.Fatalf("expected Error=%q, got %q", "Validation failed", resp.Error)
	}
	if _, ok := resp.Details["number"]; !ok {
		t.Fatalf("expected Details to contain 'number' key, got %v", resp.Details)
	}
	if _, ok := resp.Details["text"]; !ok {
		t.Fatalf("expected Details to contain 'text' key, got %v", resp.Details)
	}
}

// TestScheduleMedia_InvalidMediaType verifies the oneof constraint on mediatype.
func TestScheduleMedia_InvalidMediaType(t *testing.T) {
	e := echo.New()
	e.Validator = validatorpkg.New()
	handler := NewJobHandler(nil)

	reqBody := `{
		"instance": "loja",
		"number": "5511999999999",
		"mediatype": "audio",
		"mimetype": "audio/ogg",
		"media": "https://example.com/a.ogg",
		"scheduledAt": "2030-01-01T10:00:00Z"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/media", strings.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.ScheduleMedia(c)
	if err != nil {
		t.Fatalf("ScheduleMedia returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}

	var resp validatorpkg.ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if _, ok := resp.Details["mediatype"]; !ok {
		t.Fatalf("expected Details to contain 'mediatype' key, got %v", resp.Details)
	}
}

// TestListJobs_InvalidPagination verifies that bad query params return 400
// before the service is touched.
func TestListJobs_InvalidPagination(t *testing.T) {
	e := echo.New()
	handler := NewJobHandler(nil)

	cases := []string{
		"/api/v1/jobs?page=0",
		"/api/v1/jobs?page=abc",
		"/api/v1/jobs?pageSize=0",
		"/api/v1/jobs?pageSize=101",
	}

	for _, target := range cases {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.ListJobs(c); err != nil {
			t.Fatalf("%s: ListJobs returned error: %v", target, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", target, http.StatusBadRequest, rec.Code)
		}
	}
}
