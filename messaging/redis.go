package mqclients

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
)

func init() {
	register("redis", func() MQClient { return &RedisMQClient{} })
}

// RedisMQClient PUBLISHes to "<channel>:<event type>".
type RedisMQClient struct {
	Client *redis.Client

	channel string
}

func (c *RedisMQClient) String() string {
	return "redis"
}

func (c *RedisMQClient) Channel() string {
	return c.channel
}

func (c *RedisMQClient) Connect(ctx context.Context, clientName string, args map[string]interface{}) error {
	address, channel, err := connectArgs("redis", args)
	if err != nil {
		return err
	}

	options, err := redisOptions(address, args)
	if err != nil {
		return err
	}

	options.OnConnect = func(ctx context.Context, conn *redis.Conn) error {
		return conn.ClientSetName(ctx, clientName).Err()
	}

	c.channel = channel
	c.Client = redis.NewClient(options)

	if err = c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping %s: %w", options.Addr, err)
	}

	return nil
}

// redisOptions accepts either a redis:// url or a host:port with separate
// Password and DB entries.
func redisOptions(address string, args map[string]interface{}) (*redis.Options, error) {
	if strings.HasPrefix(address, "redis://") || strings.HasPrefix(address, "rediss://") {
		options, err := redis.ParseURL(address)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}

		return options, nil
	}

	options := &redis.Options{Addr: address}
	options.Password, _ = getString(args, "Password")

	if db, ok := getString(args, "DB"); ok {
		index, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid DB %q: %w", db, err)
		}

		options.DB = index
	}

	return options, nil
}

func (c *RedisMQClient) Publish(ctx context.Context, subject string, data []byte) error {
	return c.Client.Publish(ctx, c.channel+":"+subject, data).Err()
}

func (c *RedisMQClient) Close() error {
	if c.Client == nil {
		return nil
	}

	return c.Client.Close()
}
