package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ihavelanded/ms-go-esim/app/carrier"
	"github.com/ihavelanded/ms-go-esim/app/catalog"
	"github.com/ihavelanded/ms-go-esim/app/controller"
	"github.com/ihavelanded/ms-go-esim/app/payment"
	"github.com/ihavelanded/ms-go-esim/app/repository"
	"github.com/ihavelanded/ms-go-esim/app/service"
	"github.com/ihavelanded/ms-go-esim/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the Echo HTTP server exposing the storefront API.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, services, cleanup := mustCreateServices()
	defer cleanup()

	orderController := controller.NewOrderController(services.orders)
	accountController := controller.NewAccountController(services.accounts)

	e := setupHTTPServer(orderController, accountController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	orderController *controller.OrderController,
	accountController *controller.AccountController,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
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
	e.Use(ensureRequestID())

	e.GET("/health", orderController.Health)

	orders := e.Group("/orders")
	orders.GET("/verify-session", orderController.VerifySession)

	payments := e.Group("/payments")
	payments.POST("/create-session", orderController.CreateCheckoutSession)

	esim := e.Group("/esim")
	esim.GET("/usage", orderController.Usage)

	catalogGroup := e.Group("/catalog")
	catalogGroup.GET("/packages", orderController.ListPackages)

	webhooks := e.Group("/webhooks")
	webhooks.POST("/carrier", orderController.CarrierWebhook)

	accounts := e.Group("/accounts")
	accounts.POST("/register", accountController.Register)
	accounts.POST("/login", accountController.Login)
	accounts.GET("/orders", accountController.Orders, accountController.RequireToken)

	return e
}

// ensureRequestID accepts a caller-supplied X-Request-ID and generates one
// for browser traffic that sends none.
func ensureRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				requestID = uuid.NewString()
				ctx.Request().Header.Set(echo.HeaderXRequestID, requestID)
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

type appServices struct {
	orders   *service.OrderService
	accounts *service.AccountService
}

func mustCreateServices() (*config.Config, *appServices, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	orderRepo := repository.NewOrderRepository(db)
	eventRepo := repository.NewOrderEventRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	stripeClient := payment.NewStripeClient(payment.Config{
		SecretKey:   cfg.Stripe.SecretKey,
		BaseURL:     cfg.Stripe.BaseURL,
		HTTPTimeout: cfg.Stripe.HTTPTimeout,
	})

	carrierClient := carrier.NewClient(carrier.Config{
		BaseURL:          cfg.Carrier.BaseURL,
		AppKey:           cfg.Carrier.AppKey,
		AppSecret:        cfg.Carrier.AppSecret,
		PurchaseDeadline: cfg.Carrier.EffectivePurchaseDeadline(),
		QueryTimeout:     cfg.Carrier.QueryTimeout,
	})

	table := catalog.NewTable(catalog.PackagePlan{
		LocationCode: cfg.Provisioning.DefaultLocationCode,
		PackageCode:  cfg.Provisioning.DefaultPackageCode,
	})

	orderService := service.NewOrderService(
		stripeClient,
		carrierClient,
		table,
		orderRepo,
		eventRepo,
		cfg.Provisioning,
	)
	accountService := service.NewAccountService(accountRepo, orderRepo, cfg.Auth)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, &appServices{orders: orderService, accounts: accountService}, cleanup
}
