// main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"go-storefront/cache"
	"go-storefront/config"
	"go-storefront/controllers"
	"go-storefront/repository"
	"go-storefront/routes"
	"go-storefront/services"
	"go-storefront/utils"
	"go-storefront/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found. Proceeding with environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// MongoDB
	client, err := utils.ConnectDB(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error("disconnect MongoDB", "error", err)
		}
	}()
	db := client.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	log.Info("connected to MongoDB", "database", cfg.Mongo.Database)

	checks := map[string]controllers.Check{
		"mongodb": func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	}

	// Redis
	var (
		productCache cache.ProductCache = cache.Noop{}
		dedupe       worker.Deduper
	)
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		productCache = cache.NewRedisProductCache(redisClient, cfg.Redis.ProductCacheTTL, log)
		dedupe = cache.NewIdempotency(redisClient, "storefront:")
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		log.Info("connected to Redis")
	}

	// Email
	mailer, err := utils.NewMailer(cfg.Email, log)
	if err != nil {
		return err
	}
	emailService := utils.NewEmailService(mailer, cfg.Email.SenderName, cfg.Email.OrderNotification)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Order notifications: RabbitMQ when configured, otherwise in-process
	var notifier services.OrderNotifier
	if cfg.RabbitMQ.Enabled() {
		amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		defer amqpConn.Close()

		pubCh, err := amqpConn.Channel()
		if err != nil {
			return err
		}
		defer pubCh.Close()
		if err := worker.DeclareOrderTopology(pubCh); err != nil {
			return err
		}

		consumeCh, err := amqpConn.Channel()
		if err != nil {
			return err
		}
		defer consumeCh.Close()
		if err := consumeCh.Qos(1, 0, false); err != nil {
			return err
		}

		notificationWorker := worker.NewNotificationWorker(consumeCh, orderRepo, userRepo, emailService, dedupe, log)
		if err := notificationWorker.Start(ctx); err != nil {
			return err
		}
		defer notificationWorker.Stop()

		notifier = worker.NewPublisher(pubCh, log)
		checks["rabbitmq"] = func(context.Context) error {
			if amqpConn.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		}
		log.Info("connected to RabbitMQ")
	} else {
		inline := worker.NewInlineNotifier(emailService, log)
		defer inline.Wait()
		notifier = inline
	}

	// Services
	userService := services.NewUserService(userRepo, emailService, services.UserServiceConfig{
		JWTSecret:        cfg.JWT.Secret,
		JWTExpiry:        cfg.JWT.Expiration,
		AllowAdminSignup: cfg.JWT.AllowAdminSignup,
	}, log)
	productService := services.NewProductService(productRepo, productCache, log)
	orderService := services.NewOrderService(orderRepo, productRepo, userRepo, notifier, log)

	handler := routes.NewHandler(routes.Controllers{
		User:    controllers.NewUserController(userService, cfg.JWT.Expiration, cfg.Server.SecureCookies, log),
		Product: controllers.NewProductController(productService, log),
		Order:   controllers.NewOrderController(orderService, log),
		Health:  controllers.NewHealthController(checks),
	}, []byte(cfg.JWT.Secret), cfg.Server.AllowedOrigins, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server is running", "port", cfg.Server.Port)
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

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
