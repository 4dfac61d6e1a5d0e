package mqclients

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/stan.go"
)

func init() {
	register("stan", func() MQClient { return &StanMQClient{} })
}

// StanMQClient publishes to the "<channel>.<event type>" NATS streaming channel.
type StanMQClient struct {
	Conn    *nats.Conn
	Streams stan.Conn

	channel string
	cluster string
	async   bool
}

func (c *StanMQClient) String() string {
	return "stan"
}

func (c *StanMQClient) Channel() string {
	return c.channel
}

func (c *StanMQClient) Cluster() string {
	return c.cluster
}

func (c *StanMQClient) Connect(_ context.Context, clientName string, args map[string]interface{}) error {
	address, channel, err := connectArgs("stan", args)
	if err != nil {
		return err
	}

	cluster, err := requireString("stan", args, "Cluster")
	if err != nil {
		return err
	}

	c.channel = channel
	c.cluster = cluster
	c.async = getBool(args, "Async", false)

	options := []stan.Option{stan.NatsURL(address)}

	// A shared nats connection lets the client name show up on the server.
	if getBool(args, "UseNATSConnection", true) {
		c.Conn, err = nats.Connect(address, nats.Name(clientName))
		if err != nil {
			return fmt.Errorf("stan: connect nats: %w", err)
		}

		options = []stan.Option{stan.NatsConn(c.Conn)}
	}

	c.Streams, err = stan.Connect(cluster, clientName, options...)
	if err != nil {
		return fmt.Errorf("stan: connect %s: %w", cluster, err)
	}

	return nil
}

func (c *StanMQClient) Publish(_ context.Context, subject string, data []byte) error {
	channel := c.channel + "." + subject

	if !c.async {
		return c.Streams.Publish(channel, data)
	}

	_, err := c.Streams.PublishAsync(channel, data, nil)

	return err
}

func (c *StanMQClient) Close() error {
	var err error

	if c.Streams != nil {
		err = c.Streams.Close()
	}

	if c.Conn != nil {
		c.Conn.Close()
	}

	return err
}
