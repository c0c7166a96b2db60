package infrastructure

import (
	"fmt"

	"go.uber.org/zap"

	"user-crud-service/internal/config"
	"user-crud-service/pkg/rabbitmq"
)

// NewEventPublisher connects to RabbitMQ, or returns nil when RABBITMQ_URL is empty.
func NewEventPublisher(cfg *config.Config, l *zap.Logger) (*rabbitmq.Publisher, error) {
	if cfg.RabbitMQ.URL == "" {
		return nil, nil
	}

	pub, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return pub, nil
}
