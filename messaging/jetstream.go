package mqclients

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

func init() {
	register("jetstream", func() MQClient { return &JetStreamMQClient{} })
}

// JetStreamMQClient publishes to "<channel>.<event type>" on a stream named
// after the channel, creating or updating the stream on connect.
type JetStreamMQClient struct {
	Conn      *nats.Conn
	JetStream jetstream.JetStream
	Stream    jetstream.Stream

	channel string
}

func (c *JetStreamMQClient) String() string {
	return "jetstream"
}

func (c *JetStreamMQClient) Channel() string {
	return c.channel
}

func (c *JetStreamMQClient) Connect(ctx context.Context, clientName string, args map[string]interface{}) error {
	address, channel, err := connectArgs("jetstream", args)
	if err != nil {
		return err
	}

	c.channel = channel

	c.Conn, err = nats.Connect(address, nats.Name(clientName))
	if err != nil {
		return fmt.Errorf("jetstream: connect nats: %w", err)
	}

	c.JetStream, err = jetstream.New(c.Conn)
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}

	c.Stream, err = c.JetStream.CreateOrUpdateStream(ctx, streamConfig(channel, args))
	if err != nil {
		return fmt.Errorf("jetstream: create stream %s: %w", channel, err)
	}

	return nil
}

func streamConfig(channel string, args map[string]interface{}) jetstream.StreamConfig {
	config := jetstream.StreamConfig{
		Name:      channel,
		Subjects:  []string{channel + ".*"},
		Retention: jetstream.WorkQueuePolicy,
		Discard:   jetstream.DiscardOld,
		MaxAge:    getDuration(args, "MaxAge", 5*time.Minute),
		Storage:   jetstream.MemoryStorage,
	}

	if getBool(args, "UseInterestPolicy", false) {
		config.Retention = jetstream.InterestPolicy
	}

	if getBool(args, "FileStorage", false) {
		config.Storage = jetstream.FileStorage
	}

	return config
}

func (c *JetStreamMQClient) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := c.JetStream.Publish(ctx, c.channel+"."+subject, data); err != nil {
		return fmt.Errorf("jetstream: publish %s: %w", subject, err)
	}

	return nil
}

func (c *JetStreamMQClient) Close() error {
	if c.Conn == nil {
		return nil
	}

	return c.Conn.Drain()
}
