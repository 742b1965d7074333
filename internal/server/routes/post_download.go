package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/tabula-web/backend/internal/apperr"
	"github.com/OFFIS-RIT/tabula-web/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/export"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/table"
)

// DownloadHandler re-runs the extraction and streams the selected table, or
// all tables for table_index -1, in the requested format.
func DownloadHandler(c echo.Context) error {
	type downloadBody struct {
		TableIndex int    `form:"table_index"`
		Format     string `form:"format" validate:"omitempty,oneof=csv excel json"`
	}

	app := c.(*middleware.AppContext).App
	fh, err := checkUpload(c, app)
	if err != nil {
		return respondError(c, err)
	}
	data := &downloadBody{TableIndex: 0, Format: string(export.FormatCSV)}
	if err := bindForm(c, data); err != nil {
		return respondError(c, err)
	}
	format, err := export.ParseFormat(data.Format)
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.KindValidation, "Invalid format", err))
	}
	form := newExtractionForm()
	if err := bindForm(c, form); err != nil {
		return respondError(c, err)
	}
	params, err := form.params()
	if err != nil {
		return respondError(c, err)
	}

	var tables []table.Table
	err = withUpload(app, fh, func(path string) error {
		var err error
		tables, err = app.Extraction.Extract(c.Request().Context(), path, params)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}

	sel, err := export.Select(tables, data.TableIndex)
	switch {
	case errors.Is(err, export.ErrNoTables):
		return respondError(c, apperr.New(apperr.KindTableNotFound, "No tables found"))
	case errors.Is(err, export.ErrTableNotFound):
		return respondError(c, apperr.New(apperr.KindTableNotFound, "The requested table was not found"))
	case err != nil:
		return respondError(c, err)
	}

	file, err := export.Encode(sel, format)
	if err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+file.Name+`"`)
	return c.Blob(http.StatusOK, file.ContentType, file.Body)
}
