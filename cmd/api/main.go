package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/flicky/go-storefront-api/internal/config"
	"github.com/flicky/go-storefront-api/internal/handler"
	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
	"github.com/flicky/go-storefront-api/internal/service"
	"github.com/flicky/go-storefront-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	decimal.MarshalJSONWithoutQuotes = true

	app := &cli.App{
		Name:  "storefront",
		Usage: "storefront backend",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API and the order worker",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "migrate", Usage: "apply schema migrations before serving"},
				},
				Action: func(c *cli.Context) error {
					return serve(c.Context, log, c.Bool("migrate"))
				},
			},
			{
				Name:      "migrate",
				Usage:     "apply or revert schema migrations",
				ArgsUsage: "up|down",
				Action: func(c *cli.Context) error {
					return runMigrate(log, c.Args().First())
				},
			},
			{
				Name:  "create-admin",
				Usage: "create an ADMIN account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: func(c *cli.Context) error {
					return createAdmin(c.Context, log, c.String("username"), c.String("password"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("storefront", "error", err)
		os.Exit(1)
	}
}

func runMigrate(log *slog.Logger, direction string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	switch direction {
	case "", "up":
		err = repository.Migrate(cfg.DB.MigrateURL(), true)
	case "down":
		err = repository.Migrate(cfg.DB.MigrateURL(), false)
	default:
		return fmt.Errorf("unknown migrate direction %q", direction)
	}
	if err != nil {
		return err
	}
	log.Info("migrations applied", "direction", direction)
	return nil
}

func createAdmin(ctx context.Context, log *slog.Logger, username, password string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := openPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	auth := service.NewAuthService(
		repository.NewTxManager(pool),
		repository.NewUserRepository(pool),
		repository.NewProfileRepository(pool),
		cfg.JWT.Secret,
		cfg.JWT.Expiration,
	)
	user, err := auth.CreateUser(ctx, username, password, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info("admin created", "user_id", user.ID, "username", user.Username)
	return nil
}

func openPool(ctx context.Context, db config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(db.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = db.MaxConns
	if db.StatementTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(db.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func serve(parent context.Context, log *slog.Logger, migrateFirst bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrateFirst {
		if err := repository.Migrate(cfg.DB.MigrateURL(), true); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	// PostgreSQL
	dbPool, err := openPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer amqpConn.Close()

	publishCh, err := amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	defer publishCh.Close()

	if err := worker.SetupRabbitMQ(publishCh); err != nil {
		return fmt.Errorf("setup RabbitMQ: %w", err)
	}

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	defer consumeCh.Close()
	log.Info("connected to RabbitMQ")

	// Repositories
	txManager := repository.NewTxManager(dbPool)
	userRepo := repository.NewUserRepository(dbPool)
	profileRepo := repository.NewProfileRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	// Services
	productSvc := service.NewProductService(productRepo, categoryRepo, redisClient)
	services := handler.Services{
		Auth:       service.NewAuthService(txManager, userRepo, profileRepo, cfg.JWT.Secret, cfg.JWT.Expiration),
		Categories: service.NewCategoryService(categoryRepo),
		Products:   productSvc,
		Profiles:   service.NewProfileService(profileRepo),
		Carts:      service.NewCartService(cartRepo, productRepo, log),
		Orders: service.NewOrderService(
			txManager, orderRepo, cartRepo, productRepo, profileRepo,
			worker.NewOrderPublisher(publishCh), log,
		),
	}

	health := handler.NewHealthHandler(
		handler.Dependency{Name: "postgres", Ping: dbPool.Ping},
		handler.Dependency{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		handler.Dependency{Name: "rabbitmq", Ping: func(context.Context) error {
			if amqpConn.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		}},
	)

	orderWorker := worker.NewOrderWorker(consumeCh, productSvc, redisClient, log)
	if err := orderWorker.Start(ctx); err != nil {
		return fmt.Errorf("start order worker: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.NewRouter(services, health, cfg.JWT.Secret, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		orderWorker.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
