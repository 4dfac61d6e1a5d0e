package sandwich

import (
	"context"
	"fmt"
	"sync"

	mqclients "github.com/WelcomerTeam/Sandwich-QQBot/messaging"
	"github.com/WelcomerTeam/Sandwich-QQBot/pkg/limiter"
	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
	"github.com/WelcomerTeam/Sandwich-QQBot/sandwichjson"
	"github.com/rs/zerolog"
)

// ProducedMetadata identifies the application that received an event.
type ProducedMetadata struct {
	Version     string `json:"v"`
	Application string `json:"a"`
	AppID       string `json:"id"`
	SessionID   string `json:"session_id,omitempty"`
}

// ProducedPayload is what consumers receive for every dispatch.
type ProducedPayload struct {
	Op       qq.GatewayOp            `json:"op"`
	Sequence int64                   `json:"s"`
	Type     string                  `json:"t"`
	Data     sandwichjson.RawMessage `json:"d"`

	Metadata ProducedMetadata `json:"__sandwich"`
}

type Producer interface {
	Publish(ctx context.Context, payload ProducedPayload) error
	Close() error
}

func ProducerTypes() []string {
	return mqclients.MQClients
}

// NewProducer connects the mq client selected by the configuration.
func NewProducer(ctx context.Context, configuration *Configuration) (Producer, error) {
	client, err := mqclients.NewMQClient(configuration.Producer.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownProducer, err)
	}

	args := make(map[string]interface{}, len(configuration.Producer.Configuration)+1)

	for key, value := range configuration.Producer.Configuration {
		args[key] = value
	}

	if mqclients.GetEntry(args, "Channel") == nil {
		args["Channel"] = configuration.Producer.Channel
	}

	if err = client.Connect(ctx, configuration.Producer.ClientName, args); err != nil {
		return nil, fmt.Errorf("failed to connect producer: %w", err)
	}

	return &MQProducer{client: client}, nil
}

// MQProducer publishes payloads through an mq client using the event type as subject.
type MQProducer struct {
	client mqclients.MQClient
}

func NewMQProducer(client mqclients.MQClient) *MQProducer {
	return &MQProducer{client: client}
}

func (p *MQProducer) String() string {
	return p.client.String()
}

func (p *MQProducer) Publish(ctx context.Context, payload ProducedPayload) error {
	data, err := sandwichjson.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return p.client.Publish(ctx, payload.Type, data)
}

func (p *MQProducer) Close() error {
	return p.client.Close()
}

// PublishPool publishes dispatches off the session loop with bounded concurrency.
type PublishPool struct {
	Logger zerolog.Logger

	identifier string
	producer   Producer
	name       string
	limiter    *limiter.ConcurrencyLimiter
	wg         sync.WaitGroup
}

func NewPublishPool(logger zerolog.Logger, identifier string, producer Producer, workers int) *PublishPool {
	name := "producer"
	if stringer, ok := producer.(fmt.Stringer); ok {
		name = stringer.String()
	}

	return &PublishPool{
		Logger:     logger,
		identifier: identifier,
		producer:   producer,
		name:       name,
		limiter:    limiter.NewConcurrencyLimiter(identifier+"-publish", workers),
	}
}

// Submit waits for a free worker then publishes in the background.
func (p *PublishPool) Submit(ctx context.Context, payload ProducedPayload) error {
	ticket, err := p.limiter.Wait(ctx)
	if err != nil {
		return err
	}

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		defer p.limiter.FreeTicket(ticket)

		err := p.producer.Publish(ctx, payload)
		RecordPublish(p.identifier, p.name, err)

		if err != nil {
			p.Logger.Error().Err(err).Str("type", payload.Type).Int64("sequence", payload.Sequence).Msg("Failed to publish event")
		}
	}()

	return nil
}

// InProgress returns how many publishes are running.
func (p *PublishPool) InProgress() int32 {
	return p.limiter.InProgress()
}

// Wait blocks until every submitted publish has finished.
func (p *PublishPool) Wait() {
	p.wg.Wait()
}
