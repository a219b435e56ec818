package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/session"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		SessionSvc *session.Service
		Validate   *validator.Validate
		Translator ut.Translator
		Registry   *prometheus.Registry
	}

	Server struct {
		app      *echo.Echo
		conf     *core.Config
		logger   core.Logger
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:      echo.New(),
		conf:     deps.Conf,
		logger:   deps.Logger,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	s.setup(deps)
	return s
}

func (s *Server) setup(deps ServerDeps) {
	conf := deps.Conf
	metrics := newHTTPMetrics(deps.Registry)
	if err := session.RegisterMetrics(deps.Registry); err != nil {
		deps.Logger.Error("registering session metrics", err)
	}

	s.app.HideBanner = conf.TestMode
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metrics.instrument)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/metrics", echo.WrapHandler(metrics.handler()))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig(conf))
	limiter := newIPRateLimiter(conf.Server.PublicRateLimit, conf.Server.PublicRateBurst)

	registerSessionAPI(v1, jwt, deps.SessionSvc)
	registerSlotAPI(v1, jwt, deps.SessionSvc)
	registerPublicAPI(v1, limiter.middleware, deps.SessionSvc)
}

// Start listens for requests. A failure to listen is reported through Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// signalShutdown asks the process to shut down gracefully, as an interrupt would.
func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
