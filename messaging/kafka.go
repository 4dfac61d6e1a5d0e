package mqclients

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

func init() {
	register("kafka", func() MQClient { return &KafkaMQClient{} })
}

// KafkaMQClient writes every event to the channel topic, keyed by event type so
// one type always lands on the same partition.
type KafkaMQClient struct {
	Writer *kafka.Writer

	channel string
}

var kafkaBalancers = map[string]func() kafka.Balancer{
	"crc32":      func() kafka.Balancer { return &kafka.CRC32Balancer{} },
	"hash":       func() kafka.Balancer { return &kafka.Hash{} },
	"murmur2":    func() kafka.Balancer { return &kafka.Murmur2Balancer{} },
	"roundrobin": func() kafka.Balancer { return &kafka.RoundRobin{} },
}

func kafkaBalancer(name string) kafka.Balancer {
	if balancer, ok := kafkaBalancers[strings.ToLower(name)]; ok {
		return balancer()
	}

	return &kafka.LeastBytes{}
}

func (c *KafkaMQClient) String() string {
	return "kafka"
}

func (c *KafkaMQClient) Channel() string {
	return c.channel
}

// Connect accepts Address as a comma separated broker list.
func (c *KafkaMQClient) Connect(_ context.Context, _ string, args map[string]interface{}) error {
	address, channel, err := connectArgs("kafka", args)
	if err != nil {
		return err
	}

	balancer, _ := getString(args, "Balancer")

	c.channel = channel
	c.Writer = &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(address, ",")...),
		Topic:                  channel,
		Balancer:               kafkaBalancer(balancer),
		BatchTimeout:           getDuration(args, "BatchTimeout", 10*time.Millisecond),
		Async:                  getBool(args, "Async", false),
		AllowAutoTopicCreation: true,
	}

	return nil
}

func (c *KafkaMQClient) Publish(ctx context.Context, subject string, data []byte) error {
	return c.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(subject), Value: data})
}

func (c *KafkaMQClient) Close() error {
	if c.Writer == nil {
		return nil
	}

	return c.Writer.Close()
}
