// Package notify sends registration confirmations. Drivers are selected by
// NOTIFY_DRIVER: log, smtp or amqp.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

// Notifier delivers a registration confirmation for a participant.
type Notifier interface {
	NotifyRegistration(ctx context.Context, ev queue.RegistrationConfirmedEvent) error
}

// New builds the notifier named by cfg.NotifyDriver.
func New(cfg config.Config, log *zap.Logger) (Notifier, error) {
	switch cfg.NotifyDriver {
	case "", "log":
		return NewLogNotifier(log), nil
	case "smtp":
		return NewSMTPNotifier(cfg.SMTP), nil
	case "amqp":
		return NewAMQPPublisher(cfg.RabbitMQURL), nil
	}
	return nil, fmt.Errorf("unknown notify driver %q", cfg.NotifyDriver)
}

// LogNotifier only records the confirmation in the log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier { return &LogNotifier{log: log} }

func (n *LogNotifier) NotifyRegistration(_ context.Context, ev queue.RegistrationConfirmedEvent) error {
	n.log.Info("registration confirmed",
		zap.Uint64("participant_id", ev.ParticipantID),
		zap.String("email", ev.Email),
		zap.Uint64("event_id", ev.EventID),
		zap.String("event", ev.EventName))
	return nil
}
