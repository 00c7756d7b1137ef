package transport

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"mcq-worker/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ListTransport pops jobs from a redis list with BLPOP and publishes with
// RPUSH, so jobs queue up while no worker is running.
type ListTransport struct {
	client       redis.Cmdable
	queue        string
	blockTimeout time.Duration
	closed       atomic.Bool
}

func NewListTransport(client redis.Cmdable, queue string, blockTimeout time.Duration) *ListTransport {
	if blockTimeout <= 0 {
		blockTimeout = 5 * time.Second
	}
	return &ListTransport{client: client, queue: queue, blockTimeout: blockTimeout}
}

// Next polls in blockTimeout slices so Close and ctx are noticed between
// pops.
func (t *ListTransport) Next(ctx context.Context) (*domain.Delivery, error) {
	for {
		if t.closed.Load() {
			return nil, domain.ErrTransportClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := t.client.BLPop(ctx, t.blockTimeout, t.queue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to pop from %s: %w", t.queue, err)
		}
		// BLPOP replies with [key, value].
		if len(res) != 2 {
			return nil, fmt.Errorf("unexpected BLPOP reply of %d elements", len(res))
		}
		return &domain.Delivery{Body: []byte(res[1])}, nil
	}
}

func (t *ListTransport) Publish(ctx context.Context, job *domain.Job) error {
	body, err := domain.EncodeJob(job)
	if err != nil {
		return err
	}
	if err := t.client.RPush(ctx, t.queue, body).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}

func (t *ListTransport) Close() error {
	t.closed.Store(true)
	return nil
}
