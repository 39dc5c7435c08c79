package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junaidrashid-git/floreria-api/cart"
	"github.com/junaidrashid-git/floreria-api/checkout"
	"github.com/junaidrashid-git/floreria-api/config"
	checkoutControllers "github.com/junaidrashid-git/floreria-api/controllers/checkout"
	orderControllers "github.com/junaidrashid-git/floreria-api/controllers/order"
	"github.com/junaidrashid-git/floreria-api/middleware"
	"github.com/junaidrashid-git/floreria-api/models"
	"github.com/junaidrashid-git/floreria-api/realtime"
	"github.com/junaidrashid-git/floreria-api/routes"
	"github.com/junaidrashid-git/floreria-api/upstream"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterIdle     = time.Hour
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	shipping, err := config.LoadShipping(cfg.ShippingConfigPath)
	if err != nil {
		return err
	}
	calculator := checkout.NewCalculator(shipping)

	api := upstream.NewClient(upstream.Config{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.APITimeout,
		Attempts: cfg.APIRetries,
		Backoff:  cfg.APIRetryBackoff,
	}, logger.Named("upstream"))

	var cartOpts []cart.Option
	if cfg.CartMirror {
		cartOpts = append(cartOpts, cart.WithMirror(api))
	}
	carts := cart.NewStore(cart.NewGormStorage(db), logger.Named("cart"), cartOpts...)

	hub := realtime.NewHub(logger.Named("realtime"))
	carts.OnChange(func(owner string, c *cart.Cart) {
		hub.Publish(realtime.CartTopic(owner), "carrito_actualizado", c)
	})

	orders := models.NewOrderHistory(db)
	submitter := checkout.NewSubmitter(api, carts, orders, calculator, cfg.CheckoutSuccessURL, logger.Named("checkout"))
	submitter.OnOrder(orderControllers.BroadcastNewOrder(hub))
	submitter.SetLocation(cfg.ShopLocation)
	sessions := checkout.NewSessions(db, cfg.SessionTTL)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.MaxMultipartMemory = 32 << 20

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY", "X-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r, routes.Dependencies{
		Config:   cfg,
		DB:       db,
		Logger:   logger,
		Carts:    carts,
		Orders:   orders,
		Checkout: checkoutControllers.NewCheckoutController(sessions, carts, submitter, calculator, logger.Named("checkout")),
		Hub:      hub,
		Limiter:  limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server running", zap.String("port", cfg.Port), zap.Bool("cart_mirror", cfg.CartMirror))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.ShippingConfigPath != "" {
		g.Go(func() error {
			return config.WatchShipping(gctx, cfg.ShippingConfigPath, logger.Named("shipping"), calculator.Replace)
		})
	}

	s := &sweeper{
		db:       db,
		carts:    carts,
		sessions: sessions,
		limiter:  limiter,
		logger:   logger.Named("cleanup"),
		now:      time.Now,
	}
	g.Go(func() error {
		s.runDaily(gctx, cfg.CleanupHour)
		return nil
	})

	return g.Wait()
}
