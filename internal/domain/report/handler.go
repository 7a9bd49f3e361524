package report

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medivault/portal/internal/platform/auth"
	"github.com/medivault/portal/internal/platform/objstore"
	"github.com/medivault/portal/pkg/pagination"
)

type Handler struct {
	svc    *Service
	urlTTL time.Duration
}

func NewHandler(svc *Service, urlTTL time.Duration) *Handler {
	return &Handler{svc: svc, urlTTL: urlTTL}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	centerGroup := api.Group("", auth.RequireType(auth.TypeCenter))
	centerGroup.POST("/reports", h.LinkReport)
	centerGroup.GET("/reports", h.ListByLab)

	readGroup := api.Group("", auth.RequireType(auth.TypePatient, auth.TypeCenter))
	readGroup.GET("/patients/:id/reports", h.ListByPatient)
	readGroup.GET("/patients/:id/reports/recent", h.RecentByPatient)
	readGroup.GET("/reports/:id", h.GetReport)
	readGroup.GET("/reports/:id/file-url", h.FileURL)
}

// LinkReport accepts a multipart form with the report fields and an optional
// file part named "file".
func (h *Handler) LinkReport(c echo.Context) error {
	patientID, err := uuid.Parse(c.FormValue("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}

	in := LinkInput{
		Name:      c.FormValue("name"),
		Type:      c.FormValue("type"),
		Lab:       c.FormValue("lab"),
		PatientID: patientID,
	}
	if uploader, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		in.UploadedBy = uploader
	}
	if date := c.FormValue("date"); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		in.Date = parsed
	}

	if fileHeader, err := c.FormFile("file"); err == nil {
		src, err := fileHeader.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file")
		}
		defer src.Close()
		in.FileName = fileHeader.Filename
		in.File = src
	}

	result, err := h.svc.Link(c.Request().Context(), in)
	switch {
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrTypeRequired),
		errors.Is(err, ErrLabRequired), errors.Is(err, ErrPatientRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, objstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.authorizePatientRead(c, patientID); err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	reports, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(reports, total, pg.Limit, pg.Offset))
}

func (h *Handler) RecentByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.authorizePatientRead(c, patientID); err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	reports, err := h.svc.Recent(c.Request().Context(), patientID, pg.Limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, reports)
}

func (h *Handler) ListByLab(c echo.Context) error {
	lab := c.QueryParam("lab")
	if lab == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "lab query parameter is required")
	}

	pg := pagination.FromContext(c)
	reports, total, err := h.svc.ListByLab(c.Request().Context(), lab, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(reports, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetReport(c echo.Context) error {
	rep, err := h.loadAuthorized(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) FileURL(c echo.Context) error {
	rep, err := h.loadAuthorized(c)
	if err != nil {
		return err
	}

	url, err := h.svc.FileURL(c.Request().Context(), rep.ID, h.urlTTL)
	switch {
	case errors.Is(err, ErrNoFile):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, objstore.ErrObjectNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "report file is missing from storage")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"url":        url,
		"expires_in": int(h.urlTTL.Seconds()),
	})
}

// loadAuthorized fetches the report from the :id param and enforces that a
// patient caller owns it.
func (h *Handler) loadAuthorized(c echo.Context) (*Report, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rep, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "report not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.authorizePatientRead(c, rep.PatientID); err != nil {
		return nil, err
	}
	return rep, nil
}

func (h *Handler) authorizePatientRead(c echo.Context, patientID uuid.UUID) error {
	ctx := c.Request().Context()
	if auth.UserTypeFromContext(ctx) == auth.TypePatient && auth.UserIDFromContext(ctx) != patientID.String() {
		return echo.NewHTTPError(http.StatusForbidden, "cannot read another patient's reports")
	}
	return nil
}
