package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/tabula-web/backend/internal/apperr"
	"github.com/OFFIS-RIT/tabula-web/backend/internal/extraction"
	mid "github.com/OFFIS-RIT/tabula-web/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/engine"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/logger"
	"github.com/OFFIS-RIT/tabula-web/backend/pkg/render"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// New builds the echo instance with all middleware and routes.
func New(cfg Config, app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = errorHandler

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		// Needed so browsers expose the download file name.
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.bodyLimit()))
	if cfg.RateLimitRPS > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimitRPS),
				Burst:     max(1, int(cfg.RateLimitRPS)),
				ExpiresIn: 3 * time.Minute,
			}),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				return c.JSON(http.StatusTooManyRequests, errorResponse{Detail: "Too many requests"})
			},
		}))
	}

	RegisterRoutes(e)
	return e
}

func Init() {
	cfg := LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.NewTabula(engine.NewTabulaParams{
		JavaBin:     cfg.JavaBin,
		JarPath:     cfg.TabulaJar,
		Timeout:     cfg.EngineTimeout,
		MaxParallel: cfg.EngineMaxParallel,
	})
	raster := render.NewPdftoppm(render.NewPdftoppmParams{
		Bin:     cfg.PdftoppmBin,
		Timeout: cfg.EngineTimeout,
	})
	if _, err := os.Stat(cfg.TabulaJar); err != nil {
		logger.Warn("Tabula jar not found, extraction requests will fail", "path", cfg.TabulaJar, "err", err)
	}

	app := &mid.App{
		Extraction: extraction.NewService(extraction.NewServiceParams{
			Engine:     eng,
			Rasterizer: raster,
		}),
		MaxUploadBytes: cfg.MaxUploadBytes,
		TempDir:        cfg.TempDir,
		RenderDPI:      cfg.RenderDPI,
	}
	e := New(cfg, app)

	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

// errorHandler renders errors that escape handlers and middleware in the
// same {"detail": ...} shape the handlers use.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := apperr.Status(err)
	detail := apperr.Detail(err)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		detail = fmt.Sprint(he.Message)
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "uri", c.Request().RequestURI, "err", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{Detail: detail})
	}
	if err != nil {
		logger.Error("Failed to write error response", "err", err)
	}
}
