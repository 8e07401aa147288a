package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/oksasatya/sape-server/config"
	"github.com/oksasatya/sape-server/internal/domain/repository"
	"github.com/oksasatya/sape-server/internal/indexer"
	pginfra "github.com/oksasatya/sape-server/internal/infrastructure/postgres"
	"github.com/oksasatya/sape-server/pkg/helpers"
	"github.com/oksasatya/sape-server/pkg/mailer"
)

func main() {
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-indexer", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQChangesQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.StorageDriver != config.StoragePostgres {
		log.Fatal("indexer needs STORAGE_DRIVER=postgres to look up persons and events")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{AppName: cfg.AppName + "-indexer", MaxConns: 4})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	var store indexer.DocumentStore
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		store = helpers.NewESStore(es, cfg.ESIndexPrefix)
	} else {
		logger.Warn("ELASTICSEARCH_ADDRS empty; search index not maintained")
	}

	var mail mailer.Sender
	switch {
	case !cfg.MailSendEnabled:
		logger.Info("MAIL_SEND_ENABLED=false; entry confirmations disabled")
	case cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "":
		log.Fatal("Mailgun not configured")
	default:
		mail = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender, "entry-confirmation")
	}

	conn, ch, err := helpers.DialRabbit(cfg.RabbitMQURL, cfg.RabbitMQChangesQueue)
	if err != nil {
		log.Fatalf("amqp: %v", err)
	}
	defer func() { _ = conn.Close() }()
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch between indexer replicas
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQChangesQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	var (
		persons repository.PersonRepository = pginfra.NewPersonRepository(pool)
		events  repository.EventRepository  = pginfra.NewEventRepository(pool)
	)
	w := indexer.NewWorker(store, mail, persons, events, cfg.AppName, logger)

	done := make(chan struct{})
	go func() {
		w.Run(ctx, msgs)
		close(done)
	}()

	logger.WithField("queue", cfg.RabbitMQChangesQueue).Info("indexer listening")
	<-ctx.Done()
	logger.Info("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
