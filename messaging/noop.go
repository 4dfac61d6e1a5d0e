package mqclients

import "context"

func init() {
	register("noop", func() MQClient { return &NoopMQClient{} })
}

// NoopMQClient discards every message.
type NoopMQClient struct {
	channel string
}

func (noopMQ *NoopMQClient) String() string {
	return "noop"
}

func (noopMQ *NoopMQClient) Channel() string {
	return noopMQ.channel
}

func (noopMQ *NoopMQClient) Connect(_ context.Context, _ string, args map[string]interface{}) error {
	noopMQ.channel, _ = getString(args, "Channel")

	return nil
}

func (noopMQ *NoopMQClient) Publish(context.Context, string, []byte) error {
	return nil
}

func (noopMQ *NoopMQClient) Close() error {
	return nil
}
