package httpapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	promwrap "ansel/internal/middleware"
	httprouters "ansel/internal/transport/http"

	"github.com/arl/statsviz"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type Server struct {
	m       *http.ServeMux
	log     *slog.Logger
	e       *echo.Echo
	routers *httprouters.Routers
	host    string
	port    string
	timeout time.Duration
}

type Options struct {
	Host          string
	Port          string
	Timeout       time.Duration
	SessionSecret string
	MaxUpload     int64
}

func New(log *slog.Logger, opts Options, routers *httprouters.Routers) *Server {
	e := echo.New()
	e.HideBanner = true

	validate := validator.New()
	e.Validator = &CustomValidator{validator: validate}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	e.Use(session.Middleware(sessions.NewCookieStore([]byte(opts.SessionSecret))))

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(promwrap.PrometheusMetrics)

	if opts.MaxUpload > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", opts.MaxUpload)))
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogLatency:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			)

			return nil
		},
	}))

	mux := http.NewServeMux()
	err := statsviz.Register(mux)
	if err != nil {
		log.Info("Statsviz start with error", slog.Any("error:", err.Error()))
	}

	return &Server{
		m:       mux,
		log:     log,
		e:       e,
		routers: routers,
		host:    opts.Host,
		port:    opts.Port,
		timeout: opts.Timeout,
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info(op, slog.String("Start", "server"), slog.String("port", s.port))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	s.e.Server.ReadTimeout = s.timeout
	s.e.Server.WriteTimeout = s.timeout

	if err := s.e.Start(fmt.Sprintf("%s:%s", s.host, s.port)); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	optCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	s.log.Info("stopping", slog.String("op", op))

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

func (s *Server) BuildRouters() {
	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	debug := s.e.Group("/debug")
	{
		debug.GET("/statsviz/", echo.WrapHandler(s.m))
		debug.GET("/statsviz/*", echo.WrapHandler(s.m))
	}

	api := s.e.Group("/api/v1", s.routers.Identity)
	{
		galleries := api.Group("/galleries")
		{
			galleries.GET("", s.routers.ListGalleries)
			galleries.POST("", s.routers.CreateGallery)
			galleries.GET("/random", s.routers.GetRandomGallery)
			galleries.GET("/batch", s.routers.GetGalleriesBatch)
			galleries.GET("/exists", s.routers.GalleryExists)
			galleries.GET("/slug/:slug", s.routers.GetGalleryBySlug)
			galleries.GET("/:id", s.routers.GetGallery)
			galleries.DELETE("/:id", s.routers.RemoveGallery)
			galleries.POST("/:id/empty", s.routers.EmptyGallery)
			galleries.POST("/:id/unlock", s.routers.UnlockGallery)
			galleries.GET("/:id/images", s.routers.GetGalleryImages)
			galleries.GET("/:id/tags", s.routers.GetGalleryTags)
			galleries.PUT("/:id/tags", s.routers.SetGalleryTags)
			galleries.GET("/:id/key", s.routers.GetGalleryKeyImage)
		}

		api.GET("/categories", s.routers.ListCategories)

		images := api.Group("/images")
		{
			images.POST("", s.routers.CreateImage)
			images.POST("/upload", s.routers.UploadImage)
			images.GET("/recent", s.routers.GetRecentImages)
			images.GET("/json", s.routers.GetImageJSON)
			images.GET("/:id", s.routers.GetImage)
			images.PUT("/:id", s.routers.UpdateImage)
			images.DELETE("/:id", s.routers.DeleteImage)
			images.GET("/:id/view/:view", s.routers.GetImageView)
			images.GET("/:id/attributes", s.routers.GetImageAttributes)
			images.POST("/:id/attributes", s.routers.SaveImageAttribute)
			images.POST("/:id/comments", s.routers.AddComment)
		}

		geo := api.Group("/geo")
		{
			geo.GET("/images", s.routers.GetImagesGeodata)
			geo.GET("/recent", s.routers.GetRecentGeodata)
			geo.GET("/locations", s.routers.SearchLocations)
		}
	}
}
