package report

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medivault/portal/internal/platform/auth"
)

func multipartBody(t *testing.T, fields map[string]string, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(fileContent))
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func callerContext(c echo.Context, userID, userType string) {
	ctx := c.Request().Context()
	ctx = context.WithValue(ctx, auth.UserIDKey, userID)
	ctx = context.WithValue(ctx, auth.UserTypeKey, userType)
	c.SetRequest(c.Request().WithContext(ctx))
}

func TestLinkReportHandler(t *testing.T) {
	f := newFixture(nil)
	h := NewHandler(f.svc, time.Hour)
	centerID := uuid.NewString()

	body, contentType := multipartBody(t, map[string]string{
		"name":       "Blood Panel",
		"type":       "blood",
		"lab":        "City Diagnostics",
		"patient_id": f.patient.String(),
		"date":       "2026-08-01",
	}, "panel.pdf", "pdf bytes")

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	callerContext(c, centerID, auth.TypeCenter)

	if err := h.LinkReport(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var result LinkResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Report.HasFile() {
		t.Error("expected stored file")
	}
	if result.Report.UploadedBy == nil || result.Report.UploadedBy.String() != centerID {
		t.Errorf("expected uploader recorded, got %v", result.Report.UploadedBy)
	}
	if result.Report.Date.Format("2006-01-02") != "2026-08-01" {
		t.Errorf("unexpected date: %v", result.Report.Date)
	}
}

func TestLinkReportHandlerNoFile(t *testing.T) {
	f := newFixture(nil)
	h := NewHandler(f.svc, time.Hour)

	body, contentType := multipartBody(t, map[string]string{
		"name":       "X-Ray",
		"type":       "imaging",
		"lab":        "City Diagnostics",
		"patient_id": f.patient.String(),
	}, "", "")

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	callerContext(c, uuid.NewString(), auth.TypeCenter)

	if err := h.LinkReport(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var result LinkResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Report.HasFile() {
		t.Error("expected no file key")
	}
}

func TestLinkReportHandlerUnknownPatient(t *testing.T) {
	f := newFixture(nil)
	h := NewHandler(f.svc, time.Hour)

	body, contentType := multipartBody(t, map[string]string{
		"name":       "X-Ray",
		"type":       "imaging",
		"lab":        "City Diagnostics",
		"patient_id": uuid.NewString(),
	}, "", "")

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	c := e.NewContext(req, httptest.NewRecorder())
	callerContext(c, uuid.NewString(), auth.TypeCenter)

	err := h.LinkReport(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestListByPatientHandlerOwnership(t *testing.T) {
	f := newFixture(nil)
	h := NewHandler(f.svc, time.Hour)
	ctx := context.Background()

	if _, err := f.svc.Link(ctx, f.input()); err != nil {
		t.Fatal(err)
	}

	// The patient reads their own feed.
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients/"+f.patient.String()+"/reports", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.patient.String())
	callerContext(c, f.patient.String(), auth.TypePatient)
	if err := h.ListByPatient(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Another patient is refused.
	req = httptest.NewRequest(http.MethodGet, "/patients/"+f.patient.String()+"/reports", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(f.patient.String())
	callerContext(c, uuid.NewString(), auth.TypePatient)
	err := h.ListByPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}

	// A center can read any patient's feed.
	req = httptest.NewRequest(http.MethodGet, "/patients/"+f.patient.String()+"/reports", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.patient.String())
	callerContext(c, uuid.NewString(), auth.TypeCenter)
	if err := h.ListByPatient(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for center, got %d", rec.Code)
	}
}

func TestListByLabHandlerRequiresLabParam(t *testing.T) {
	f := newFixture(nil)
	h := NewHandler(f.svc, time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	callerContext(c, uuid.NewString(), auth.TypeCenter)

	err := h.ListByLab(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestFileURLHandler(t *testing.T) {
	f := newFixture(nil)
	h := NewHandler(f.svc, 30*time.Minute)
	ctx := context.Background()

	linked, err := f.svc.Link(ctx, f.input())
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/reports/"+linked.Report.ID.String()+"/file-url", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(linked.Report.ID.String())
	callerContext(c, uuid.NewString(), auth.TypeCenter)

	handlerErr := h.FileURL(c)
	httpErr, ok := handlerErr.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("report without file must answer 404, got %v", handlerErr)
	}
}
