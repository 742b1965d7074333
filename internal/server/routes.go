package server

import (
	"github.com/OFFIS-RIT/tabula-web/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check routes
	e.GET("/", routes.HealthHandler)
	e.GET("/health", routes.HealthHandler)

	// Page routes
	e.POST("/page-image", routes.PageImageHandler)
	e.POST("/page-count", routes.PageCountHandler)

	// Table routes
	e.POST("/extract", routes.ExtractHandler)
	e.POST("/download", routes.DownloadHandler)
	e.POST("/detect-tables", routes.DetectTablesHandler)
}
