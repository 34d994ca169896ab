package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/supplylane/be-fulfillment/internal/cache"
	"github.com/supplylane/be-fulfillment/internal/client"
	"github.com/supplylane/be-fulfillment/internal/handler"
	"github.com/supplylane/be-fulfillment/internal/platform/config"
	"github.com/supplylane/be-fulfillment/internal/platform/database"
	"github.com/supplylane/be-fulfillment/internal/platform/logger"
	"github.com/supplylane/be-fulfillment/internal/platform/middleware"
	natsclient "github.com/supplylane/be-fulfillment/internal/platform/nats"
	"github.com/supplylane/be-fulfillment/internal/repository"
	"github.com/supplylane/be-fulfillment/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Fulfillment Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db)
	fulfillmentRepo := repository.NewFulfillmentRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)

	// The directory lookup sits on every approval path; cache it when
	// Redis is configured.
	var directory service.DirectoryStore = directoryRepo
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		directory = cache.NewDirectoryCache(directoryRepo, rdb, cfg.Redis.TTL, log.Logger)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Directory cache enabled")
	}

	// Initialize NATS (optional; the publisher degrades to a no-op)
	var natsConn *natsclient.Client
	if cfg.NATS.URL != "" {
		natsConn, err = natsclient.Connect(cfg.NATS.URL, cfg.Service.Name)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer natsConn.Close()
		log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
	}
	eventPublisher := client.NewOrderEventPublisher(natsConn, log.Logger)

	// Select the fiscal gateway
	var fiscal service.FiscalGateway
	if cfg.Fiscal.Mode == "http" {
		fiscal = client.NewHTTPFiscalGateway(cfg.Fiscal.BaseURL, cfg.Fiscal.Timeout, log.Logger)
		log.Info().Str("base_url", cfg.Fiscal.BaseURL).Msg("Using HTTP fiscal gateway")
	} else {
		fiscal = client.NewMockFiscalGateway(client.MockFiscalConfig{}, log.Logger)
		log.Info().Msg("Using mock fiscal gateway")
	}

	// Initialize services
	taxService := service.NewTaxService(catalogRepo, inventoryRepo, service.MissPolicy(cfg.Tax.MissPolicy), log)
	intakeService := service.NewOrderIntakeService(orderRepo, directory, eventPublisher, log)
	queryService := service.NewOrderQueryService(orderRepo, inventoryRepo, directory, log)
	fulfillmentService := service.NewFulfillmentService(
		orderRepo, fulfillmentRepo, invoiceRepo, directory,
		taxService, fiscal, eventPublisher, log,
	)

	// Sellers learn about new orders through the created-event stream;
	// the payload itself is always re-read from the database.
	if err := client.SubscribeOrderCreated(natsConn, log.Logger, func(evt client.OrderEvent) {
		log.Debug().
			Str("order_id", evt.OrderID).
			Str("seller_id", evt.SellerID).
			Msg("Order created notification received")
	}); err != nil {
		log.Error().Err(err).Msg("Failed to subscribe to order events")
	}

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(intakeService, queryService, fulfillmentService, orderRepo, invoiceRepo, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Order routes
	mux.HandleFunc("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListOrders(w, r)
		case http.MethodPost:
			httpHandler.CreateOrder(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/orders/get", httpHandler.GetOrder)
	mux.HandleFunc("/api/v1/orders/approve", httpHandler.ApproveOrder)
	mux.HandleFunc("/api/v1/orders/reject", httpHandler.RejectOrder)

	// Invoice routes
	mux.HandleFunc("/api/v1/invoices/get", httpHandler.GetInvoice)
	mux.HandleFunc("/api/v1/invoices/register", httpHandler.RegisterInvoice)
	mux.HandleFunc("/api/v1/invoices/verify", httpHandler.VerifyInvoice)
	mux.HandleFunc("/api/v1/invoices/cancel", httpHandler.CancelInvoice)

	// Inventory routes
	mux.HandleFunc("/api/v1/inventory", httpHandler.ListInventory)
	mux.HandleFunc("/api/v1/inventory/price", httpHandler.SetStockPrice)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(cfg.Server.WriteTimeout)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
