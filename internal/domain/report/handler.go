package report

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clindoc/clindoc/internal/pipeline/extract"
	"github.com/clindoc/clindoc/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/documents/analyze", h.Analyze)
	api.GET("/reports", h.ListReports)
	api.GET("/reports/:id", h.GetReport)
	api.GET("/reports/:id/bundle", h.GetBundle)
	api.GET("/reports/:id/safety", h.GetSafety)
	api.DELETE("/reports/:id", h.DeleteReport)
}

// Analyze accepts a multipart upload under the "document" field, runs the
// pipeline on it, and returns the stored report. The upload is spooled to a
// temp file that is removed when the request finishes.
func (h *Handler) Analyze(c echo.Context) error {
	fileHeader, err := c.FormFile("document")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "document file is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read upload")
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "clindoc-upload-*")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot spool upload")
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot spool upload")
	}
	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read spooled upload")
	}

	doc := extract.RawDocument{
		Filename:  fileHeader.Filename,
		MediaType: fileHeader.Header.Get("Content-Type"),
		Data:      data,
	}
	rep, err := h.svc.Analyze(c.Request().Context(), doc)
	if err != nil {
		var exErr *extract.Error
		if errors.As(err, &exErr) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, exErr.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rep, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) ListReports(c echo.Context) error {
	pg := pagination.FromContext(c)
	risk := c.QueryParam("risk_level")
	if risk != "" && !validRiskLevels[risk] {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid risk_level")
	}
	items, total, err := h.svc.List(c.Request().Context(), risk, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetBundle(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rep, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	return c.JSONBlob(http.StatusOK, rep.Bundle)
}

func (h *Handler) GetSafety(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rep, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	return c.JSONBlob(http.StatusOK, rep.Safety)
}

func (h *Handler) DeleteReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
