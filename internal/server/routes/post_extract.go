package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/tabula-web/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/table"
)

// ExtractHandler returns a preview of every table found in the selection.
func ExtractHandler(c echo.Context) error {
	type extractResponse struct {
		Tables []table.Table `json:"tables"`
		Count  int           `json:"count"`
	}

	app := c.(*middleware.AppContext).App
	fh, err := checkUpload(c, app)
	if err != nil {
		return respondError(c, err)
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

	return c.JSON(http.StatusOK, extractResponse{
		Tables: tables,
		Count:  len(tables),
	})
}
