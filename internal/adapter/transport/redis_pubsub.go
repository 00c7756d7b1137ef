package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"mcq-worker/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ErrNoSubscribers is returned by Publish when no worker was listening on
// the channel. Pub/sub does not buffer, so the job is lost.
var ErrNoSubscribers = errors.New("transport: no subscribers on channel")

// PubSubTransport receives jobs from a redis pub/sub channel. Messages are
// delivered at most once and need no acknowledgement.
type PubSubTransport struct {
	client  redis.Cmdable
	channel string
	msgs    <-chan *redis.Message
	sub     io.Closer
	closed  atomic.Bool
}

// NewPubSubTransport subscribes to channel and waits for the subscription
// to be confirmed.
func NewPubSubTransport(ctx context.Context, client *redis.Client, channel string) (*PubSubTransport, error) {
	ps := client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	return &PubSubTransport{
		client:  client,
		channel: channel,
		msgs:    ps.Channel(),
		sub:     ps,
	}, nil
}

// NewPubSubPublisher returns a transport that can only publish.
func NewPubSubPublisher(client redis.Cmdable, channel string) *PubSubTransport {
	return &PubSubTransport{client: client, channel: channel}
}

func (t *PubSubTransport) Next(ctx context.Context) (*domain.Delivery, error) {
	if t.closed.Load() || t.msgs == nil {
		return nil, domain.ErrTransportClosed
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-t.msgs:
		if !ok {
			return nil, domain.ErrTransportClosed
		}
		return &domain.Delivery{Body: []byte(msg.Payload)}, nil
	}
}

func (t *PubSubTransport) Publish(ctx context.Context, job *domain.Job) error {
	body, err := domain.EncodeJob(job)
	if err != nil {
		return err
	}
	receivers, err := t.client.Publish(ctx, t.channel, body).Result()
	if err != nil {
		return fmt.Errorf("failed to publish job %s: %w", job.ID, err)
	}
	if receivers == 0 {
		return ErrNoSubscribers
	}
	return nil
}

func (t *PubSubTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) || t.sub == nil {
		return nil
	}
	return t.sub.Close()
}
