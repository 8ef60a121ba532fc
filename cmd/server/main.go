package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"github.com/rl1809/click-n-sip/internal/adapter/handler"
	"github.com/rl1809/click-n-sip/internal/adapter/notifier"
	"github.com/rl1809/click-n-sip/internal/adapter/storage"
	"github.com/rl1809/click-n-sip/internal/config"
	"github.com/rl1809/click-n-sip/internal/core/service"
	"github.com/rl1809/click-n-sip/internal/port"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load catalog
	var repo port.CatalogRepository = storage.NewStaticCatalog()
	var db *sql.DB
	if cfg.Catalog.Source == config.CatalogMySQL {
		db, err = sql.Open("mysql", cfg.Catalog.MySQLDSN)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping mysql: %v", err)
		}
		log.Println("connected to mysql")

		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
			log.Fatalf("failed to create catalog schema: %v", err)
		}
		if cfg.Catalog.Seed {
			if err := mysqlAdapter.SeedCatalog(ctx, storage.SeedProducts(), storage.SeedCategories()); err != nil {
				log.Fatalf("failed to seed catalog: %v", err)
			}
			log.Println("seeded catalog")
		}
		repo = mysqlAdapter
	}

	catalog, err := service.LoadCatalogService(ctx, repo)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	log.Printf("loaded catalog: %d products, %d categories", len(catalog.Products()), len(catalog.Categories()))

	// Initialize Redis
	var rdb *redis.Client
	var redisAdapter *storage.RedisAdapter
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: 20,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		log.Println("connected to redis")
		redisAdapter = storage.NewRedisAdapter(rdb, cfg.Redis.NotificationChannel, cfg.Redis.OrderChannel)
	}

	// Initialize sessions
	opts, err := cfg.SessionOptions()
	if err != nil {
		log.Fatalf("invalid session options: %v", err)
	}
	if redisAdapter != nil {
		opts.OrderEvents = redisAdapter
	}

	inboxes := notifier.NewInboxSet(cfg.Session.InboxSize)
	registry := service.NewRegistry(catalog, func(sessionID string) port.Notifier {
		sinks := notifier.Multi{inboxes.For(sessionID), notifier.LogNotifier{SessionID: sessionID}}
		if redisAdapter != nil {
			sinks = append(sinks, redisAdapter.SessionNotifier(sessionID))
		}
		return sinks
	}, opts)

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	handler.RegisterStorefrontServer(grpcServer, handler.NewGRPCHandler(registry, inboxes.Remove))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(registry, inboxes, inboxes.Remove)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(httpHandler.Routes(cfg.RequestLog), "clicknsip"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")

	registry.Close()
	log.Println("sessions closed")

	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	log.Println("connections closed")
}
