package cmd

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-hr-auth/app/controller"
	hrgrpc "github.com/vibast-solutions/ms-go-hr-auth/app/grpc"
	"github.com/vibast-solutions/ms-go-hr-auth/app/mailer"
	"github.com/vibast-solutions/ms-go-hr-auth/app/metrics"
	"github.com/vibast-solutions/ms-go-hr-auth/app/middleware"
	"github.com/vibast-solutions/ms-go-hr-auth/app/repository"
	"github.com/vibast-solutions/ms-go-hr-auth/app/service"
	"github.com/vibast-solutions/ms-go-hr-auth/config"
	"github.com/vibast-solutions/ms-go-hr-auth/migrations"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  `Start the HTTP (Echo) API and the internal gRPC session service. Both stop gracefully on SIGINT or SIGTERM.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if cfg.MySQL.AutoMigrate {
		if err := migrations.Up(ctx, db); err != nil {
			logrus.WithError(err).Fatal("Failed to apply migrations")
		}
	}

	m, closeMailer, err := mailer.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure mailer")
	}
	defer closeMailer()

	var appMetrics *metrics.Metrics
	var opts []service.UserAuthServiceOption
	if cfg.Metrics.Enabled {
		appMetrics = metrics.New(cfg.App.Name)
		opts = append(opts, service.WithOutcomeRecorder(appMetrics))
	}

	userAuthService, err := service.NewUserAuthService(
		db,
		repository.NewUserRepository(db),
		repository.NewConsumedTokenRepository(db),
		m,
		cfg,
		opts...,
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build auth service")
	}

	var limiter echomiddleware.RateLimiterStore
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Store == "redis" {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()
			limiter = middleware.NewRateLimiterStore(cfg, rdb)
		} else {
			limiter = middleware.NewRateLimiterStore(cfg, nil)
		}
	}

	e := newHTTPServer(cfg, userAuthService, db, appMetrics, limiter)
	grpcServer := hrgrpc.NewServer(hrgrpc.NewSessionServer(userAuthService))

	errCh := make(chan error, 2)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			errCh <- err
			return
		}
		logrus.WithField("addr", grpcAddr).Info("Starting gRPC server")
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logrus.Info("Shutdown signal received")
	case err := <-errCh:
		logrus.WithError(err).Error("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown failed")
	}
	grpcServer.GracefulStop()
	logrus.Info("Servers stopped")
}

// newHTTPServer wires middleware and routes. appMetrics and limiter are
// optional.
func newHTTPServer(
	cfg *config.Config,
	userAuthService service.UserAuthService,
	db *sql.DB,
	appMetrics *metrics.Metrics,
	limiter echomiddleware.RateLimiterStore,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		// LogURIPath leaves out the query string so verification tokens never reach the logs.
		LogURIPath:   true,
		LogRoutePath: true,
		LogRequestID: true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"request_id": v.RequestID,
				"remote_ip":  v.RemoteIP,
				"method":     v.Method,
				"path":       v.URIPath,
				"route":      v.RoutePath,
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
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.HTTP.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if appMetrics != nil {
		e.Use(appMetrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(appMetrics.Handler()))
	}

	healthController := controller.NewHealthController(db)
	e.GET("/healthz", healthController.Health)

	authController := controller.NewUserAuthController(userAuthService)
	authMiddleware := middleware.NewAuthMiddleware(userAuthService)

	api := e.Group("/api")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	api.POST("/signup", authController.Signup)
	api.GET("/verify-email", authController.VerifyEmail)
	api.POST("/resend-verification", authController.ResendVerification)
	api.POST("/login", authController.Login)
	api.POST("/forgot-password", authController.ForgotPassword)
	api.POST("/reset-password", authController.ResetPassword)

	apiProtected := api.Group("")
	apiProtected.Use(authMiddleware.RequireAuth)
	apiProtected.GET("/me", authController.Me)

	return e
}
