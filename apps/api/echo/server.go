package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/payment"
	"github.com/darasahq/darasa/core/user"
)

type (
	ServerDeps struct {
		Addr           string
		DisableReqLogs bool
		Logger         core.Logger
		UserSvc        user.Service
		CourseSvc      course.Service
		TokenIssuer    *access.TokenIssuer
		Guard          *access.Guard
		Limiter        access.RateLimiter
		Coordinator    *payment.Coordinator
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps  ServerDeps
		app   *echo.Echo
		errCh chan error
		sigCh chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:  deps,
		app:   echo.New(),
		errCh: make(chan error, 1),
		sigCh: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.deps.UserSvc)
	registerVideoAPI(v1, jwt, videoDeps{
		userSvc:   s.deps.UserSvc,
		courseSvc: s.deps.CourseSvc,
		issuer:    s.deps.TokenIssuer,
		guard:     s.deps.Guard,
		limiter:   s.deps.Limiter,
	})
	registerPaymentAPI(v1, jwt, s.deps.Coordinator)
}

func (s *server) Start() {
	signal.Notify(s.sigCh, syscall.SIGINT, syscall.SIGTERM)
	s.errCh <- s.app.Start(s.deps.Addr)
}

func (s *server) Errors() <-chan error { return s.errCh }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.sigCh }

// signalShutdown fakes an OS signal so the main goroutine starts a
// graceful shutdown. Called by the error handler on core shutdown errors.
func (s *server) signalShutdown() {
	s.sigCh <- syscall.SIGTERM
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}
