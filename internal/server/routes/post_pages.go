package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/tabula-web/backend/internal/server/middleware"
)

// PageImageHandler renders one page of the upload as PNG.
func PageImageHandler(c echo.Context) error {
	type pageImageBody struct {
		Page int `form:"page" validate:"min=1"`
	}

	app := c.(*middleware.AppContext).App
	fh, err := checkUpload(c, app)
	if err != nil {
		return respondError(c, err)
	}
	data := &pageImageBody{Page: 1}
	if err := bindForm(c, data); err != nil {
		return respondError(c, err)
	}

	var img []byte
	err = withUpload(app, fh, func(path string) error {
		var err error
		img, err = app.Extraction.RenderPage(c.Request().Context(), path, data.Page, app.RenderDPI)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Blob(http.StatusOK, "image/png", img)
}

func PageCountHandler(c echo.Context) error {
	type pageCountResponse struct {
		PageCount int `json:"page_count"`
	}

	app := c.(*middleware.AppContext).App
	fh, err := checkUpload(c, app)
	if err != nil {
		return respondError(c, err)
	}

	var count int
	err = withUpload(app, fh, func(path string) error {
		var err error
		count, err = app.Extraction.PageCount(path)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, pageCountResponse{PageCount: count})
}
