package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/staybook/badwords"
	"github.com/joy095/staybook/clients"
	"github.com/joy095/staybook/config"
	"github.com/joy095/staybook/config/rabbitmq"
	"github.com/joy095/staybook/handlers/image_handlers"
	"github.com/joy095/staybook/logger"
	middleware "github.com/joy095/staybook/middlewares"
	"github.com/joy095/staybook/models/booking_models"
	"github.com/joy095/staybook/models/payment_models"
	"github.com/joy095/staybook/models/user_models"
	"github.com/joy095/staybook/routes"
	"github.com/joy095/staybook/services/booking_service"
	"github.com/joy095/staybook/services/notification_service"
	"github.com/joy095/staybook/services/payment_service"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := openStack(ctx, true, true)
			if err != nil {
				return err
			}
			defer s.close()
			if port != "" {
				s.cfg.Server.Port = port
			}
			return serve(ctx, s)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func newGateway(cfg config.GatewayConfig) (clients.PaymentGateway, error) {
	switch cfg.Provider {
	case "chapa":
		return clients.NewChapaClient(cfg), nil
	case "razorpay":
		return clients.NewRazorpayGateway(cfg), nil
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", cfg.Provider)
	}
}

// newDispatcher publishes to the broker when one is configured and otherwise
// delivers notifications from a goroutine inside the API process.
func newDispatcher(ctx context.Context, s *stack) (notification_service.Dispatcher, func(), error) {
	if s.cfg.Queue.URL != "" {
		publisher, err := rabbitmq.NewPublisher(ctx, s.cfg.Queue.URL, s.cfg.Queue.NotificationQueue)
		if err != nil {
			return nil, nil, err
		}
		return notification_service.NewQueueDispatcher(publisher), publisher.Close, nil
	}

	logger.WarnLogger.Warn("RABBITMQ_URL not set; sending notifications in-process")
	worker, err := newNotificationWorker(s)
	if err != nil {
		return nil, nil, err
	}
	return notification_service.NewInProcessDispatcher(worker), func() {}, nil
}

func serve(ctx context.Context, s *stack) error {
	cfg := s.cfg

	gateway, err := newGateway(cfg.Gateway)
	if err != nil {
		return err
	}
	dispatcher, closeDispatcher, err := newDispatcher(ctx, s)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	payments := payment_service.NewService(payment_models.NewStore(s.pool), gateway, dispatcher, payment_service.Options{
		Currency:        cfg.Gateway.SettlementCurrency,
		CallbackURL:     cfg.Server.PublicBaseURL + "/api/payments/callback",
		ReturnURL:       cfg.Server.FrontendURL + "/payment/complete",
		SignedCallbacks: cfg.Gateway.WebhookSecret != "",
	})
	users := func(ctx context.Context, id uuid.UUID) (*user_models.User, error) {
		return user_models.GetUserByID(ctx, s.gdb, id)
	}
	bookings := booking_service.NewService(booking_models.NewRepository(s.gdb), users, dispatcher)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	r.Use(middleware.RequestLogger())

	words := badwords.New()
	if cfg.BadWordsFile != "" {
		if words, err = badwords.Load(cfg.BadWordsFile); err != nil {
			return err
		}
	}

	var images *image_handlers.ImageService
	if cfg.ImageServiceURL != "" {
		images = image_handlers.NewImageService(cfg.ImageServiceURL)
	}

	deps := routes.Deps{Config: cfg, DB: s.gdb, Redis: s.redis, Words: words, Images: images}
	routes.RegisterHealthRoutes(r)
	routes.RegisterListingRoutes(r, deps)
	routes.RegisterBookingRoutes(r, deps, bookings)
	routes.RegisterPaymentRoutes(r, deps, payments)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoLogger.Infof("Starting server on port %s (gateway %s)", cfg.Server.Port, gateway.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.InfoLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.InfoLogger.Info("Server exited")
	return nil
}
