package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/tabula-web/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/region"
)

// DetectTablesHandler proposes regions for the tables the engine finds on
// one page.
func DetectTablesHandler(c echo.Context) error {
	type detectTablesBody struct {
		Page int `form:"page" validate:"min=1"`
	}
	type detectTablesResponse struct {
		Areas []region.Region `json:"areas"`
		Page  int             `json:"page"`
	}

	app := c.(*middleware.AppContext).App
	fh, err := checkUpload(c, app)
	if err != nil {
		return respondError(c, err)
	}
	data := &detectTablesBody{Page: 1}
	if err := bindForm(c, data); err != nil {
		return respondError(c, err)
	}

	var areas []region.Region
	err = withUpload(app, fh, func(path string) error {
		var err error
		areas, err = app.Extraction.Detect(c.Request().Context(), path, data.Page)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, detectTablesResponse{
		Areas: areas,
		Page:  data.Page,
	})
}
