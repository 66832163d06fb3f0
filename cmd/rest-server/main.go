package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	rv8 "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
	"github.com/taskhive/tasks-api/cmd/internal"
	internaldomain "github.com/taskhive/tasks-api/internal"
	"github.com/taskhive/tasks-api/internal/envvar"
	"github.com/taskhive/tasks-api/internal/kafka"
	"github.com/taskhive/tasks-api/internal/memcached"
	"github.com/taskhive/tasks-api/internal/postgresql"
	"github.com/taskhive/tasks-api/internal/rabbitmq"
	"github.com/taskhive/tasks-api/internal/redis"
	"github.com/taskhive/tasks-api/internal/rest"
	"github.com/taskhive/tasks-api/internal/service"
	"go.uber.org/zap"
)

func main() {
	var env, address string

	flag.StringVar(&env, "env", "", "Environment Variables filename")
	flag.StringVar(&address, "address", ":9234", "HTTP Server Address")
	flag.Parse()

	errC, err := run(env, address)
	if err != nil {
		log.Fatalf("Couldn't run: %s", err)
	}

	if err := <-errC; err != nil {
		log.Fatalf("Error while running: %s", err)
	}
}

func run(env, address string) (<-chan error, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "zap.NewProduction")
	}

	if err := envvar.Load(env); err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "envvar.Load")
	}

	vault, err := internal.NewVaultProvider()
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewVaultProvider")
	}

	conf := envvar.New(vault)

	pool, err := internal.NewPostgreSQL(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewPostgreSQL")
	}

	var (
		msgBroker service.TaskMessageBrokerRepository
		rmq       *internal.RabbitMQ
		producer  *internal.KafkaProducer
	)

	switch os.Getenv("MESSAGE_BROKER") {
	case "kafka":
		producer, err = internal.NewKafkaProducer(conf)
		if err != nil {
			return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewKafkaProducer")
		}

		msgBroker = kafka.NewTask(producer.Producer, producer.Topic)
	default:
		rmq, err = internal.NewRabbitMQ(conf)
		if err != nil {
			return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewRabbitMQ")
		}

		msgBroker = rabbitmq.NewTask(rmq.Channel)
	}

	rdb, err := internal.NewRedis(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewRedis")
	}

	memcached, err := internal.NewMemcached(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewMemcached")
	}

	if _, err := internal.NewOTExporter(conf); err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewOTExporter")
	}

	jwtSecret, err := conf.Get("JWT_SECRET")
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "conf.Get JWT_SECRET")
	}

	logging := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info(r.Method,
				zap.Time("time", time.Now()),
				zap.String("url", r.URL.String()),
			)

			h.ServeHTTP(w, r)
		})
	}

	srv, err := newServer(serverConfig{
		Address:     address,
		DB:          pool,
		MsgBroker:   msgBroker,
		Redis:       rdb,
		Memcached:   memcached,
		JWTSecret:   []byte(jwtSecret),
		Metrics:     promhttp.Handler(),
		Middlewares: []func(next http.Handler) http.Handler{otelchi.Middleware("tasks-api-server"), logging},
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("newServer %w", err)
	}

	errC := make(chan error, 1)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		defer func() {
			logger.Sync()
			pool.Close()
			if rmq != nil {
				rmq.Close()
			}
			if producer != nil {
				producer.Producer.Close()
			}
			rdb.Close()
			stop()
			cancel()
			close(errC)
		}()

		srv.SetKeepAlivesEnabled(false)

		if err := srv.Shutdown(ctxTimeout); err != nil {
			errC <- err
		}

		logger.Info("Shutdown completed")
	}()

	go func() {
		logger.Info("Listening and serving", zap.String("address", address))

		// "ListenAndServe always returns a non-nil error. After Shutdown or Close, the returned
		// error is ErrServerClosed."
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errC <- err
		}
	}()

	return errC, nil
}

type serverConfig struct {
	Address     string
	DB          *pgxpool.Pool
	MsgBroker   service.TaskMessageBrokerRepository
	Redis       *rv8.Client
	Memcached   *memcache.Client
	JWTSecret   []byte
	Metrics     http.Handler
	Middlewares []func(next http.Handler) http.Handler
	Logger      *zap.Logger
}

func newServer(conf serverConfig) (*http.Server, error) {
	router := chi.NewRouter()
	router.Use(render.SetContentType(render.ContentTypeJSON))

	for _, mw := range conf.Middlewares {
		router.Use(mw)
	}

	taskRepo := memcached.NewTask(conf.Memcached, postgresql.NewTask(conf.DB), conf.Logger)
	taskSvc := service.NewTask(conf.Logger, taskRepo, conf.MsgBroker)

	categorySvc := service.NewCategory(postgresql.NewCategory(conf.DB))

	tokens := redis.NewTokenStore(conf.Redis, 7*24*time.Hour)
	userSvc := service.NewUser(postgresql.NewUser(conf.DB), tokens, conf.JWTSecret, 24*time.Hour)

	rest.RegisterOpenAPI(router)

	router.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"success":true,"message":"Task Management API is running"}`))
	})

	router.Handle("/metrics", conf.Metrics)

	router.Route("/api", func(r chi.Router) {
		rest.NewUserHandler(userSvc).RegisterAuth(r)

		r.Group(func(r chi.Router) {
			r.Use(rest.BearerAuth(conf.JWTSecret, userSvc))

			rest.NewTaskHandler(taskSvc).Register(r)
			rest.NewCategoryHandler(categorySvc).Register(r)
			rest.NewUserHandler(userSvc).Register(r)
		})
	})

	lmt := tollbooth.NewLimiter(30, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Second})
	lmtmw := tollbooth.LimitHandler(lmt, router)

	return &http.Server{
		Handler:           lmtmw,
		Addr:              conf.Address,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 1 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}, nil
}
