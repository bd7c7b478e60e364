package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
)

// Handler обрабатывает тело одного сообщения.
type Handler func(ctx context.Context, body []byte) error

// Workers максимальное число одновременно обрабатываемых сообщений.
const Workers = 10

// HandlerTimeout сколько может обрабатываться одно сообщение. Отмена ctx
// потребителя не прерывает уже начатую обработку.
const HandlerTimeout = 30 * time.Second

// ConsumerMessage читает очередь queueName и вызывает handler для каждого
// сообщения. Успешные сообщения подтверждаются, ошибочные отклоняются без
// возврата в очередь. Возвращается после отмены ctx или закрытия канала,
// дождавшись обработки уже полученных сообщений.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger, handler Handler) error {
	const op = "rabbitmq.ConsumerMessage"

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, Workers)
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				process(ctx, d, log, handler)
			}(d)
		}
	}
}

func process(ctx context.Context, d amqp.Delivery, log *slog.Logger, handler Handler) {
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), HandlerTimeout)
	defer cancel()

	if err := handler(hctx, d.Body); err != nil {
		log.Error("message handling failed, dropping", sl.Err(err), slog.String("routing_key", d.RoutingKey))
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
