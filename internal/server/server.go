// Package server wires the whole application together: config, logging,
// database, cache, storage, the notification hub, services, routes, and the
// HTTP and gRPC listeners.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feirahub/feira/app/controllers"
	appgraphql "github.com/feirahub/feira/app/graphql"
	"github.com/feirahub/feira/app/listeners"
	"github.com/feirahub/feira/app/repositories"
	"github.com/feirahub/feira/app/routes"
	"github.com/feirahub/feira/app/services"
	"github.com/feirahub/feira/config"
	"github.com/feirahub/feira/internal/cart"
	"github.com/feirahub/feira/pkg/cache"
	"github.com/feirahub/feira/pkg/database"
	feiragrpc "github.com/feirahub/feira/pkg/grpc"
	"github.com/feirahub/feira/pkg/logger"
	"github.com/feirahub/feira/pkg/metrics"
	"github.com/feirahub/feira/pkg/middleware"
	"github.com/feirahub/feira/pkg/reqid"
	"github.com/feirahub/feira/pkg/router"
	"github.com/feirahub/feira/pkg/schedule"
	"github.com/feirahub/feira/pkg/storage"
	"github.com/feirahub/feira/pkg/workerpool"
	"github.com/feirahub/feira/pkg/ws"
)

const shutdownTimeout = 10 * time.Second

// Start boots every subsystem and blocks until SIGINT/SIGTERM, then shuts
// down gracefully.
func Start() error {
	if err := config.Load(); err != nil {
		return err
	}

	closeLogger := logger.Setup()
	defer closeLogger()

	if err := database.Connect(); err != nil {
		return err
	}
	if err := cache.Connect(); err != nil {
		// The cache helpers no-op without redis; catalogue reads fall
		// through to the database.
		logger.Warn("server: redis unavailable, running without cache", "error", err)
	}
	storage.Connect()

	// Notification hub. Shop-room joins are authorized against ownership.
	hub := ws.NewHub()
	hub.ShopAccess = repositories.NewShopRepository().OwnedBy
	go hub.Run()
	listeners.RegisterOrderEvents(hub)
	if config.Get("MAIL_USERNAME", "") != "" {
		listeners.RegisterOrderMail(repositories.NewUserRepository())
	}

	checkoutPool := workerpool.New(config.GetInt("CHECKOUT_WORKERS", 8))
	defer checkoutPool.Shutdown()

	// Carts never hit the database, so a periodic sweep is the only thing
	// keeping abandoned ones from accumulating.
	carts := cart.NewStore()
	schedule.Hourly().Name("cart-sweep").WithoutOverlapping().Run(func() {
		if n := carts.Sweep(24 * time.Hour); n > 0 {
			logger.Info("server: swept stale carts", "count", n)
		}
	})
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	schedule.Start(schedCtx)

	r, err := BuildRouter(hub, carts, checkoutPool)
	if err != nil {
		return err
	}

	grpcSrv, _, err := feiragrpc.Start(config.GRPCPort())
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: listening", "addr", httpSrv.Addr, "env", config.AppEnv())
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		feiragrpc.Stop(grpcSrv)
		return err
	case sig := <-stop:
		logger.Info("server: shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("server: http shutdown", "error", err)
	}
	feiragrpc.Stop(grpcSrv)
	return nil
}

// BuildRouter assembles the middleware stack, controllers and route table.
// It does not open any listener, so the CLI can use it to print routes.
func BuildRouter(hub *ws.Hub, carts *cart.Store, checkoutPool *workerpool.Pool) (*router.Router, error) {
	shopRepo := repositories.NewShopRepository()
	userRepo := repositories.NewUserRepository()
	productRepo := repositories.NewProductRepository()
	orderRepo := repositories.NewOrderRepository()

	authSvc := services.NewAuthService(userRepo)
	orderSvc := services.NewOrderService(orderRepo, shopRepo, userRepo)

	checkoutSvc := services.NewCheckoutService(orderSvc, carts, checkoutPool)

	schema, err := appgraphql.NewCatalogSchema(shopRepo, productRepo)
	if err != nil {
		return nil, err
	}

	r := router.New()
	r.Use(metrics.Middleware())
	r.Use(reqid.Middleware())
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions()))

	r.Get("/metrics", "metrics", metrics.Handler())
	routes.RegisterAPI(r, routes.Controllers{
		Auth:     controllers.NewAuthController(authSvc),
		Shops:    controllers.NewShopController(shopRepo, productRepo),
		Products: controllers.NewProductController(productRepo, shopRepo),
		Cart:     controllers.NewCartController(carts, productRepo, shopRepo),
		Checkout: controllers.NewCheckoutController(checkoutSvc),
		Orders:   controllers.NewOrderController(orderSvc),
		Realtime: controllers.NewRealtimeController(hub),
		GraphQL:  controllers.NewGraphQLController(schema),
	})
	return r, nil
}
