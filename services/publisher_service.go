package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirrezam75/racerelay/pkg/logx"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrPublisherBusy = errors.New("publisher queue is full")

const publishTimeout = 5 * time.Second

// Broker is the part of a redis client the publisher needs.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// PublisherService forwards race events to a redis channel from its own
// goroutine. Publish never waits for the broker.
type PublisherService struct {
	broker  Broker
	channel string
	queue   chan string
}

func NewPublisherService(host, port, password, channel string, queueSize int) *PublisherService {
	broker := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	return NewPublisher(broker, channel, queueSize)
}

func NewPublisher(broker Broker, channel string, queueSize int) *PublisherService {
	if queueSize <= 0 {
		queueSize = 64
	}

	return &PublisherService{
		broker:  broker,
		channel: channel,
		queue:   make(chan string, queueSize),
	}
}

func (publisherService *PublisherService) Publish(message string) error {
	if message == "" {
		return nil
	}

	select {
	case publisherService.queue <- message:
		return nil
	default:
		return ErrPublisherBusy
	}
}

// Run drains the queue until ctx is cancelled. Broker failures are logged
// and the event is dropped.
func (publisherService *PublisherService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case message := <-publisherService.queue:
			publisherService.send(ctx, message)
		}
	}
}

func (publisherService *PublisherService) send(ctx context.Context, message string) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := publisherService.broker.Publish(ctx, publisherService.channel, message).Err()

	if err != nil {
		logx.Logger.Error(
			err.Error(),
			zap.String("desc", "could not publish message"),
			zap.String("channel", publisherService.channel),
			zap.String("message", message),
		)
	}
}

// NopPublisher discards every event, used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(string) error { return nil }

func (NopPublisher) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
