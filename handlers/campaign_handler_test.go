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

// TestGetTemplate verifies the CSV template download: content type, attachment
// header and the required number column.
func TestGetTemplate(t *testing.T) {
	e := echo.New()
	handler := NewCampaignHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/template", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.GetTemplate(c); err != nil {
		t.Fatalf("GetTemplate returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv content type, got %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "contatos.csv") {
		t.Errorf("expected contatos.csv attachment, got %q", cd)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "number,") {
		t.Errorf("expected template to start with the number column, got %q", body)
	}
}

// TestImportContacts_InvalidCSV verifies that a CSV without a number column is
// rejected with 400.
func TestImportContacts_InvalidCSV(t *testing.T) {
	e := echo.New()
	e.Validator = validatorpkg.New()
	handler := NewCampaignHandler(nil)

	reqBody := `{"csv": "nome,mensagem\nJoão,Olá"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/import", strings.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ImportContacts(c); err != nil {
		t.Fatalf("ImportContacts returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	var resp response.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if !strings.Contains(resp.Error, "number") {
		t.Errorf("expected error to mention the number column, got %q", resp.Error)
	}
}

// TestImportContacts_ParsesContacts verifies the happy path returns the parsed
// records without touching the job service.
func TestImportContacts_ParsesContacts(t *testing.T) {
	e := echo.New()
	e.Validator = validatorpkg.New()
	handler := NewCampaignHandler(nil)

	reqBody := `{"csv": "number,nome\n5511999999999,João"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/import", strings.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ImportContacts(c); err != nil {
		t.Fatalf("ImportContacts returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp struct {
		Success bool                `json:"success"`
		Data    []map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected Success=true")
	}
	if len(resp.Data) != 1 || resp.Data[0]["nome"] != "João" {
		t.Fatalf("unexpected parsed contacts: %#v", resp.Data)
	}
}

// TestScheduleCampaign_MissingCSV verifies that the csv field is required.
func TestScheduleCampaign_MissingCSV(t *testing.T) {
	e := echo.New()
	e.Validator = validatorpkg.New()
	handler := NewCampaignHandler(nil)

	reqBody := `{"instance": "loja", "scheduledAt": "2030-01-01T10:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", strings.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ScheduleCampaign(c); err != nil {
		t.Fatalf("ScheduleCampaign returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}

	var resp validatorpkg.ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if _, ok := resp.Details["csv"]; !ok {
		t.Fatalf("expected Details to contain 'csv' key, got %v", resp.Details)
	}
}
