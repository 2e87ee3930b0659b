package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/metal-toolbox/bootline/internal/dispatcher"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	DefaultListenAddress = "0.0.0.0:8080"

	defaultRateLimit       = 100
	defaultRateLimitBurst  = 200
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Options configures the HTTP server.
type Options struct {
	ListenAddress string `mapstructure:"listen_address"`
	// RateLimit is the sustained requests per second allowed, RateLimitBurst the bucket size.
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (o *Options) defaults() {
	if o.ListenAddress == "" {
		o.ListenAddress = DefaultListenAddress
	}

	if o.RateLimit == 0 {
		o.RateLimit = defaultRateLimit
	}

	if o.RateLimitBurst == 0 {
		o.RateLimitBurst = defaultRateLimitBurst
	}

	if o.ReadTimeout == 0 {
		o.ReadTimeout = defaultReadTimeout
	}

	if o.WriteTimeout == 0 {
		o.WriteTimeout = defaultWriteTimeout
	}

	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}
}

// Server is the HTTP shell serving network boot clients, handlers only call the dispatcher.
type Server struct {
	opts        Options
	dispatcher  *dispatcher.Dispatcher
	rateLimiter *rate.Limiter
	logger      *logrus.Logger
	engine      *gin.Engine
}

// New returns a Server with its routes registered.
func New(opts Options, d *dispatcher.Dispatcher, logger *logrus.Logger) *Server {
	opts.defaults()

	s := &Server{
		opts:        opts,
		dispatcher:  d,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimitBurst),
		logger:      logger,
	}

	s.engine = s.newEngine()

	return s
}

func (s *Server) newEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	// system endpoints, not rate limited
	engine.GET("/healthz", s.healthz)

	api := engine.Group("/")
	api.Use(s.requestID(), s.accessLog(), s.rateLimit())

	s.registerRoutes(api)

	return engine
}

// Handler returns the instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.engine, "bootline")
}

// Run serves HTTP requests until the context is canceled, the server is then
// shut down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.opts.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.WithField("address", s.opts.ListenAddress).Info("http server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")

	return httpServer.Shutdown(shutdownCtx)
}
