package sandwich

import (
	"errors"
	"fmt"

	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
)

var (
	ErrConnection    = errors.New("gateway connection failed")
	ErrDecode        = errors.New("gateway decode failed")
	ErrLiveness      = errors.New("gateway heartbeat not acknowledged")
	ErrSessionClosed = errors.New("gateway session closed")

	// ErrAuthentication is returned when identify is rejected. It is never retried with the same token.
	ErrAuthentication = errors.New("gateway authentication rejected")

	ErrUnknownPayloadShape  = qq.ErrUnknownPayloadShape
	ErrUnsupportedFrameKind = fmt.Errorf("%w: unsupported frame kind", ErrDecode)
	ErrMalformedFrame       = fmt.Errorf("%w: malformed frame", ErrDecode)

	ErrInvalidToken          = errors.New("invalid token passed")
	ErrSessionLimitExhausted = errors.New("session start limit exhausted")
	ErrMissingGatewayURL     = errors.New("gateway url missing")

	ErrNoGatewayHandler = errors.New("no gateway handler found")

	ErrMissingAppID             = errors.New("configuration missing app id")
	ErrMissingBotToken          = errors.New("configuration missing bot token")
	ErrUnknownProducer          = errors.New("unknown producer type")
	ErrReadConfigurationFailure = errors.New("failed to read configuration")
	ErrLoadConfigurationFailure = errors.New("failed to load configuration")
)
