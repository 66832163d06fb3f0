package main

import (
	"bytes"
	"context"
	"encoding/gob"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cb "github.com/mercari/go-circuitbreaker"
	"github.com/taskhive/tasks-api/cmd/internal"
	internaldomain "github.com/taskhive/tasks-api/internal"
	"github.com/taskhive/tasks-api/internal/elasticsearch"
	"github.com/taskhive/tasks-api/internal/envvar"
	"go.uber.org/zap"
)

const rabbitMQConsumerName = "elasticsearch-indexer"

func main() {
	var env string

	flag.StringVar(&env, "env", "", "Environment Variables filename")
	flag.Parse()

	errC, err := run(env)
	if err != nil {
		log.Fatalf("Couldn't run: %s", err)
	}

	if err := <-errC; err != nil {
		log.Fatalf("Error while running: %s", err)
	}
}

func run(env string) (<-chan error, error) {
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

	esClient, err := internal.NewElasticSearch(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewElasticSearch")
	}

	rmq, err := internal.NewRabbitMQ(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewRabbitMQ")
	}

	if _, err := internal.NewOTExporter(conf); err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewOTExporter")
	}

	srv := &Server{
		logger: logger,
		rmq:    rmq,
		task:   elasticsearch.NewTask(esClient),
		breaker: cb.New(
			cb.WithOpenTimeout(time.Minute),
			cb.WithTripFunc(cb.NewTripFuncConsecutiveFailures(3)),
		),
		done: make(chan struct{}),
	}

	errC := make(chan error, 1)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		ctxTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)

		defer func() {
			_ = logger.Sync()
			rmq.Close()
			stop()
			cancel()
			close(errC)
		}()

		if err := srv.Shutdown(ctxTimeout); err != nil {
			errC <- err
		}

		logger.Info("Shutdown completed")
	}()

	go func() {
		logger.Info("Listening and serving")

		if err := srv.ListenAndServe(); err != nil {
			errC <- err
		}
	}()

	return errC, nil
}

// Server consumes the task events and keeps the search index in sync.
type Server struct {
	logger  *zap.Logger
	rmq     *internal.RabbitMQ
	task    *elasticsearch.Task
	breaker *cb.CircuitBreaker
	done    chan struct{}
}

// ListenAndServe binds an anonymous queue to the task events and consumes them until the
// channel is canceled.
func (s *Server) ListenAndServe() error {
	queue, err := s.rmq.Channel.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "channel.QueueDeclare")
	}

	err = s.rmq.Channel.QueueBind(
		queue.Name,      // queue name
		"tasks.event.*", // routing key
		"tasks",         // exchange
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		return internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "channel.QueueBind")
	}

	msgs, err := s.rmq.Channel.Consume(
		queue.Name,           // queue
		rabbitMQConsumerName, // consumer
		false,                // auto-ack
		false,                // exclusive
		false,                // no-local
		false,                // no-wait
		nil,                  // args
	)
	if err != nil {
		return internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "channel.Consume")
	}

	go func() {
		for msg := range msgs {
			s.logger.Info("Received message", zap.String("routingKey", msg.RoutingKey))

			var nack bool

			switch msg.RoutingKey {
			case "tasks.event.created", "tasks.event.updated":
				task, err := decodeTask(msg.Body)
				if err != nil {
					s.logger.Info("Ignoring message, invalid body", zap.Error(err))
					_ = msg.Ack(false)

					continue
				}

				nack = s.index(task) != nil
			case "tasks.event.deleted":
				id, err := decodeID(msg.Body)
				if err != nil {
					s.logger.Info("Ignoring message, invalid body", zap.Error(err))
					_ = msg.Ack(false)

					continue
				}

				nack = s.remove(id) != nil
			default:
				nack = true
			}

			if nack {
				s.logger.Info("Nacking", zap.String("routingKey", msg.RoutingKey))
				_ = msg.Nack(false, nack)
			} else {
				_ = msg.Ack(false)
			}
		}

		s.logger.Info("No more messages to consume, exiting")
		s.done <- struct{}{}
	}()

	return nil
}

// Shutdown cancels the consumer and waits for in-flight messages to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	_ = s.rmq.Channel.Cancel(rabbitMQConsumerName, false)

	for {
		select {
		case <-ctx.Done():
			return internaldomain.WrapErrorf(ctx.Err(), internaldomain.ErrorCodeUnknown, "context.Done")
		case <-s.done:
			return nil
		}
	}
}

func (s *Server) index(task internaldomain.Task) error {
	if !s.breaker.Ready() {
		return internaldomain.NewErrorf(internaldomain.ErrorCodeUnavailable, "circuit open")
	}

	_, err := s.breaker.Do(context.Background(), func() (interface{}, error) {
		return nil, s.task.Index(context.Background(), task)
	})
	if err != nil {
		s.logger.Error("index failed", zap.Error(err))
	}

	return err
}

func (s *Server) remove(id uuid.UUID) error {
	if !s.breaker.Ready() {
		return internaldomain.NewErrorf(internaldomain.ErrorCodeUnavailable, "circuit open")
	}

	_, err := s.breaker.Do(context.Background(), func() (interface{}, error) {
		return nil, s.task.Delete(context.Background(), id)
	})
	if err != nil {
		s.logger.Error("delete failed", zap.Error(err))
	}

	return err
}

func decodeTask(b []byte) (internaldomain.Task, error) {
	var res internaldomain.Task

	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&res); err != nil {
		return internaldomain.Task{}, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "gob.Decode")
	}

	return res, nil
}

func decodeID(b []byte) (uuid.UUID, error) {
	var res uuid.UUID

	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&res); err != nil {
		return uuid.Nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "gob.Decode")
	}

	return res, nil
}
