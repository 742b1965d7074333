package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/tabula-web/backend/internal/extraction"
)

// App holds the process wide dependencies shared by all handlers.
type App struct {
	Extraction     *extraction.Service
	MaxUploadBytes int64
	// TempDir is the parent of per request scratch directories. Empty means
	// os.TempDir.
	TempDir   string
	RenderDPI int
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
