package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Notifier delivers a confirmation, typically by email.
type Notifier interface {
	NotifyRegistration(ctx context.Context, ev RegistrationConfirmedEvent) error
}

// Worker consumes registration.confirmed and hands each message to a
// Notifier. Undeliverable messages are rejected without requeue.
type Worker struct {
	url      string
	notifier Notifier
	log      *zap.Logger
	// OnResult is called after each message with the delivery outcome.
	OnResult func(err error)
}

func NewWorker(url string, n Notifier, log *zap.Logger) *Worker {
	return &Worker{url: url, notifier: n, log: log}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled, reconnecting
// with exponential backoff (capped at 30s) when the broker goes away.
func (w *Worker) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(w.url)
		if err != nil {
			w.log.Warn("notify-worker: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = w.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.log.Warn("notify-worker: consume loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (w *Worker) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		w.log.Warn("notify-worker: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(RegistrationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(RegistrationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	w.log.Info("notify-worker: consuming", zap.String("queue", RegistrationQueue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := w.handleMessage(ctx, d.Body); err != nil {
				w.log.Error("notify-worker: handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, body []byte) (err error) {
	defer func() {
		if w.OnResult != nil {
			w.OnResult(err)
		}
	}()
	var ev RegistrationConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Email == "" {
		return errors.New("message has no recipient")
	}
	if err := w.notifier.NotifyRegistration(ctx, ev); err != nil {
		return fmt.Errorf("deliver to %s: %w", ev.Email, err)
	}
	w.log.Info("notify-worker: confirmation delivered",
		zap.Uint64("participant_id", ev.ParticipantID), zap.Uint64("event_id", ev.EventID))
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
