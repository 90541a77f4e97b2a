package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/users-api/internal/lib/sl"
)

// maxInFlight — сколько сообщений обрабатывается одновременно.
const maxInFlight = 10

// ConsumerMessage запускает потребителя очереди queueName. Успешно обработанные
// сообщения подтверждаются, при ошибке обработчика сообщение возвращается в очередь.
// Возвращённый WaitGroup завершается, когда остановлен цикл чтения и все
// обработчики вернули управление.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler func(context.Context, []byte) error) (*sync.WaitGroup, error) {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(sl.Op(op), slog.String("queue", queueName))
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		sem := make(chan struct{}, maxInFlight)
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				wg.Add(1)
				go func(d amqp.Delivery) {
					defer wg.Done()
					defer func() { <-sem }()
					handleDelivery(ctx, log, d, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return wg, nil
}

// acknowledger — часть amqp.Delivery для подтверждения.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, log *slog.Logger, d amqp.Delivery, handler func(context.Context, []byte) error) {
	settle(ctx, log, &d, d.Body, handler)
}

func settle(ctx context.Context, log *slog.Logger, ack acknowledger, body []byte, handler func(context.Context, []byte) error) {
	if err := handler(ctx, body); err != nil {
		log.Error("failed to handle message", sl.Err(err))
		if nackErr := ack.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
