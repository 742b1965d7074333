package routes

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/tabula-web/backend/internal/apperr"
	"github.com/OFFIS-RIT/tabula-web/backend/internal/extraction"
	"github.com/OFFIS-RIT/tabula-web/backend/internal/scratch"
	"github.com/OFFIS-RIT/tabula-web/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/engine"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/logger"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/region"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func respondError(c echo.Context, err error) error {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "path", c.Path(), "err", err)
	} else {
		logger.Debug("Request rejected", "path", c.Path(), "status", status, "err", err)
	}
	return c.JSON(status, errorResponse{Detail: apperr.Detail(err)})
}

// checkUpload validates the "file" part before anything is written to disk.
// Size is checked before the extension.
func checkUpload(c echo.Context, app *middleware.App) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "A PDF file is required")
	}
	if fh.Size > app.MaxUploadBytes {
		return nil, apperr.Newf(apperr.KindTooLarge, "File size must be %s or less", formatSize(app.MaxUploadBytes))
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		return nil, apperr.New(apperr.KindUnsupportedFile, "Only PDF files are supported")
	}
	return fh, nil
}

// withUpload stores the upload in a private scratch directory, runs fn on
// it and removes the directory before returning.
func withUpload(app *middleware.App, fh *multipart.FileHeader, fn func(path string) error) error {
	src, err := fh.Open()
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "Failed to read upload", err)
	}
	content, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "Failed to read upload", err)
	}

	file, err := scratch.Write(app.TempDir, "input.pdf", content)
	if err != nil {
		return err
	}
	defer file.Remove()

	return fn(file.Path)
}

func bindForm(c echo.Context, data any) error {
	if err := c.Bind(data); err != nil {
		return apperr.New(apperr.KindValidation, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
	}
	return nil
}

// extractionForm holds the fields shared by /extract and /download.
type extractionForm struct {
	Mode    string `form:"mode" validate:"omitempty,oneof=lattice stream"`
	Pages   string `form:"pages"`
	Area    string `form:"area"`
	Regions string `form:"regions"`
}

func newExtractionForm() *extractionForm {
	return &extractionForm{Mode: string(engine.ModeLattice), Pages: "all", Regions: "[]"}
}

func (f *extractionForm) params() (extraction.Params, error) {
	mode, err := engine.ParseMode(f.Mode)
	if err != nil {
		return extraction.Params{}, apperr.Wrap(apperr.KindValidation, "Invalid mode", err)
	}
	pages, err := region.ParsePages(f.Pages)
	if err != nil {
		return extraction.Params{}, apperr.New(apperr.KindValidation, err.Error())
	}
	area, err := region.ParseArea(f.Area)
	if err != nil {
		return extraction.Params{}, apperr.New(apperr.KindValidation, err.Error())
	}
	regions, err := region.ParseRegions(f.Regions)
	if err != nil {
		return extraction.Params{}, apperr.New(apperr.KindValidation, err.Error())
	}

	return extraction.Params{
		Mode:    mode,
		Pages:   pages,
		Area:    area,
		Regions: regions,
	}, nil
}

func formatSize(n int64) string {
	const mib = 1024 * 1024
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
