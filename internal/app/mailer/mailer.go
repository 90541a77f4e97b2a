// Package mailer запускает потребителя очереди уведомлений, отправляющего письма сброса пароля.
package mailer

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/users-api/internal/config"
	"github.com/magabrotheeeer/users-api/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/users-api/internal/lib/sl"
	"github.com/magabrotheeeer/users-api/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/users-api/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	queue         string
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

func New(ctx context.Context, cfg *config.MailerConfig, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, err
	}

	queues := rabbitmq.NotificationQueues(cfg.RabbitMQ.Queue, cfg.RabbitMQ.RoutingKey)
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, queues)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(logger, transport, cfg.SMTP.ResetURL)

	return &App{
		conn:          conn,
		ch:            ch,
		queue:         cfg.RabbitMQ.Queue,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	wg, err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, a.queue, a.senderService.SendPasswordReset)
	if err != nil {
		a.logger.Error("failed to start consumer", slog.String("queue", a.queue), sl.Err(err))
		a.close()
		return err
	}
	a.logger.Info("mailer consuming", slog.String("queue", a.queue))

	<-ctx.Done()
	a.logger.Info("mailer shutting down gracefully")
	wg.Wait()
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
