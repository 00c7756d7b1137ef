package transport

import (
	"context"
	"fmt"

	"mcq-worker/internal/config"
	"mcq-worker/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Transport is implemented by every job transport in this package.
type Transport interface {
	domain.JobTransport
	domain.JobPublisher
}

// Open builds the consuming side of the configured transport. client may be
// nil for sqs.
func Open(ctx context.Context, cfg config.TransportConfig, client *redis.Client) (Transport, error) {
	switch cfg.Kind {
	case "pubsub":
		if client == nil {
			return nil, fmt.Errorf("pubsub transport requires redis")
		}
		t, err := NewPubSubTransport(ctx, client, cfg.Channel)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "list":
		if client == nil {
			return nil, fmt.Errorf("list transport requires redis")
		}
		return NewListTransport(client, cfg.Queue, cfg.BlockTimeout), nil
	case "sqs":
		sqsClient, err := NewSQSClient(ctx, cfg.SQS)
		if err != nil {
			return nil, err
		}
		return NewSQSTransport(sqsClient, cfg.SQS), nil
	default:
		return nil, fmt.Errorf("unsupported transport kind %q", cfg.Kind)
	}
}

// OpenPublisher builds a publish-only transport. Pub/sub does not subscribe.
func OpenPublisher(ctx context.Context, cfg config.TransportConfig, client *redis.Client) (domain.JobPublisher, error) {
	if cfg.Kind == "pubsub" {
		if client == nil {
			return nil, fmt.Errorf("pubsub transport requires redis")
		}
		return NewPubSubPublisher(client, cfg.Channel), nil
	}
	return Open(ctx, cfg, client)
}
