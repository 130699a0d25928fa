package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-apikeys/app/controller"
	"github.com/vibast-solutions/ms-go-apikeys/app/credential"
	"github.com/vibast-solutions/ms-go-apikeys/app/database"
	keysgrpc "github.com/vibast-solutions/ms-go-apikeys/app/grpc"
	"github.com/vibast-solutions/ms-go-apikeys/app/metrics"
	"github.com/vibast-solutions/ms-go-apikeys/app/middleware"
	"github.com/vibast-solutions/ms-go-apikeys/app/service"
	"github.com/vibast-solutions/ms-go-apikeys/config"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  `Start both HTTP (Echo) and gRPC servers for key management and validation.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type application struct {
	db        *sqlx.DB
	metrics   *metrics.Metrics
	sessions  *service.SessionService
	validator service.Validator
	lifecycle service.LifecycleService
}

func runServe(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err = configureLogging(cfg.Log); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	hasher, err := credential.NewBcryptHasher(cfg.Hashing.BcryptCost)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure hashing")
	}
	logrus.WithField("bcrypt_cost", hasher.Cost()).Info("Secret hashing configured")

	m := metrics.New(metrics.DefaultNamespace)
	s := newStores(db)
	app := &application{
		db:        db,
		metrics:   m,
		sessions:  service.NewSessionService(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL),
		validator: newValidator(s, hasher, m),
		lifecycle: newLifecycle(s, hasher, m),
	}

	if err = serve(ctx, cfg, app); err != nil {
		logrus.WithError(err).Fatal("Server stopped with error")
	}
	logrus.Info("Servers stopped")
}

// serve runs both servers until ctx is cancelled or one of them fails, then
// shuts both down.
func serve(ctx context.Context, cfg *config.Config, app *application) error {
	e, err := newHTTPServer(cfg.HTTP, app)
	if err != nil {
		return err
	}
	grpcServer := newGRPCServer(app)

	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logrus.WithField("addr", grpcAddr).Info("Starting gRPC server")
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newHTTPServer(cfg config.ServerConfig, app *application) (*echo.Echo, error) {
	ipExtractor, err := middleware.IPExtractor(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor

	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"request_id": v.RequestID,
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	registerRoutes(e, app)
	return e, nil
}

func registerRoutes(e *echo.Echo, app *application) {
	healthController := controller.NewHealthController(app.db)
	validateController := controller.NewValidateController(app.validator)
	keyController := controller.NewKeyController(app.lifecycle)
	authMiddleware := middleware.NewAuthMiddleware(app.sessions)
	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(app.validator)

	e.GET("/health", healthController.Health)
	e.GET("/metrics", echo.WrapHandler(app.metrics.Handler()))
	e.POST("/validate", validateController.Validate)

	keys := e.Group("/keys")
	keys.Use(authMiddleware.RequireAuth)
	keys.POST("/generate", keyController.Generate)
	keys.GET("", keyController.List)
	keys.DELETE("/:id", keyController.Revoke)
	keys.GET("/:id/usage", keyController.Usage)

	v1 := e.Group("/v1")
	v1.Use(apiKeyMiddleware.RequireAPIKey)
	v1.Match([]string{http.MethodGet, http.MethodPost}, "/identity", validateController.Identity)
}

func newGRPCServer(app *application) *grpc.Server {
	public := keysgrpc.PublicMethods()
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(keysgrpc.APIKeyUnaryInterceptor(app.validator, public...)),
		grpc.StreamInterceptor(keysgrpc.APIKeyStreamInterceptor(app.validator, public...)),
	)
	keysgrpc.RegisterKeyServiceServer(grpcServer, keysgrpc.NewServer(app.validator))
	return grpcServer
}
