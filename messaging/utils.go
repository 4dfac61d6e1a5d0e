package mqclients

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnknownMQClient = errors.New("unknown mq client")
	ErrMissingArgument = errors.New("missing mq client argument")
)

// MQClient publishes encoded events to a broker. Subjects are routed beneath
// the channel passed to Connect.
type MQClient interface {
	String() string
	Channel() string
	Connect(ctx context.Context, clientName string, args map[string]interface{}) error
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// MQClients lists the registered client names.
var MQClients = []string{}

var mqConstructors = map[string]func() MQClient{}

func register(name string, constructor func() MQClient) {
	MQClients = append(MQClients, name)
	mqConstructors[name] = constructor
}

// NewMQClient creates an unconnected client by name.
func NewMQClient(name string) (MQClient, error) {
	constructor, ok := mqConstructors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMQClient, name)
	}

	return constructor(), nil
}

// GetEntry looks up key ignoring case.
func GetEntry(m map[string]interface{}, key string) interface{} {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}

	return nil
}

// getString reads a scalar entry as a string. yaml hands over bools and ints as is.
func getString(m map[string]interface{}, key string) (string, bool) {
	switch value := GetEntry(m, key).(type) {
	case string:
		return value, true
	case bool:
		return strconv.FormatBool(value), true
	case int:
		return strconv.Itoa(value), true
	default:
		return "", false
	}
}

func requireString(client string, m map[string]interface{}, key string) (string, error) {
	value, ok := getString(m, key)
	if !ok || value == "" {
		return "", fmt.Errorf("%s: %w: %s", client, ErrMissingArgument, key)
	}

	return value, nil
}

func getBool(m map[string]interface{}, key string, fallback bool) bool {
	value, ok := getString(m, key)
	if !ok {
		return fallback
	}

	boolean, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}

	return boolean
}

func getDuration(m map[string]interface{}, key string, fallback time.Duration) time.Duration {
	value, ok := getString(m, key)
	if !ok {
		return fallback
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}

	return duration
}

// connectArgs reads the two arguments every broker needs.
func connectArgs(client string, m map[string]interface{}) (address, channel string, err error) {
	if address, err = requireString(client, m, "Address"); err != nil {
		return "", "", err
	}

	if channel, err = requireString(client, m, "Channel"); err != nil {
		return "", "", err
	}

	return address, channel, nil
}
