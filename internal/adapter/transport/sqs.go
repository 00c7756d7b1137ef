package transport

import (
	"context"
	"fmt"
	"sync/atomic"

	"mcq-worker/internal/config"
	"mcq-worker/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSTransport long-polls an SQS queue. A delivery's Ack deletes the
// message; unacked messages reappear after the visibility timeout.
type SQSTransport struct {
	client            sqsAPI
	queueURL          string
	waitTimeSeconds   int32
	visibilityTimeout int32
	closed            atomic.Bool
}

func NewSQSTransport(client sqsAPI, cfg config.SQSConfig) *SQSTransport {
	wait := cfg.WaitTimeSeconds
	if wait <= 0 {
		wait = 20
	}
	visibility := cfg.VisibilityTimeout
	if visibility <= 0 {
		visibility = 300
	}
	return &SQSTransport{
		client:            client,
		queueURL:          cfg.QueueURL,
		waitTimeSeconds:   wait,
		visibilityTimeout: visibility,
	}
}

// NewSQSClient builds an SQS client from the default AWS credential chain.
func NewSQSClient(ctx context.Context, cfg config.SQSConfig) (*sqs.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return sqs.NewFromConfig(awsCfg), nil
}

func (t *SQSTransport) Next(ctx context.Context) (*domain.Delivery, error) {
	for {
		if t.closed.Load() {
			return nil, domain.ErrTransportClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := t.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(t.queueURL),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     t.waitTimeSeconds,
			VisibilityTimeout:   t.visibilityTimeout,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to receive from sqs: %w", err)
		}
		if len(out.Messages) == 0 {
			continue
		}

		msg := out.Messages[0]
		receipt := aws.ToString(msg.ReceiptHandle)
		return &domain.Delivery{
			Body: []byte(aws.ToString(msg.Body)),
			Ack: func(ctx context.Context) error {
				return t.deleteMessage(ctx, receipt)
			},
		}, nil
	}
}

func (t *SQSTransport) deleteMessage(ctx context.Context, receiptHandle string) error {
	_, err := t.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(t.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete sqs message: %w", err)
	}
	return nil
}

func (t *SQSTransport) Publish(ctx context.Context, job *domain.Job) error {
	body, err := domain.EncodeJob(job)
	if err != nil {
		return err
	}
	_, err = t.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(t.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send job %s to sqs: %w", job.ID, err)
	}
	return nil
}

func (t *SQSTransport) Close() error {
	t.closed.Store(true)
	return nil
}
