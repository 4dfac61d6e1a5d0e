package sandwich

import (
	"context"
	"time"

	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
	"nhooyr.io/websocket"
)

func gatewayOpHello(ctx context.Context, session *Session, msg *qq.GatewayPayload) (*Event, error) {
	interval := time.Duration(msg.Data.Dispatch().HeartbeatIntervalOrDefault()) * time.Millisecond

	session.heartbeater.OnHello(interval, session.now())

	session.Logger.Debug().Dur("interval", interval).Msg("Received HELLO event")

	if session.identified {
		session.Logger.Warn().Msg("Received HELLO after identifying, not identifying again")

		return session.newEvent(EventHello, msg), nil
	}

	if err := session.identify(ctx); err != nil {
		return nil, err
	}

	return session.newEvent(EventHello, msg), nil
}

func gatewayOpDispatch(_ context.Context, session *Session, msg *qq.GatewayPayload) (*Event, error) {
	session.trackSequence(msg.Sequence)

	body := msg.Data.Dispatch()

	switch session.Status() {
	case SessionStatusIdentifying:
		if body == nil || body.User == nil {
			session.Logger.Debug().Str("type", msg.Type).Msg("Ignoring dispatch received before READY")

			return nil, nil
		}

		session.identity.Store(body.User)
		session.sessionID.Store(body.SessionID)
		session.setStatus(SessionStatusAuthenticated)

		session.Logger.Info().
			Str("username", body.User.Username).
			Str("user_id", body.User.ID).
			Msg("Authenticated with gateway")

		return session.newEvent(EventReady, msg), nil
	case SessionStatusAuthenticated:
		RecordEvent(session.identifier, msg.Type)

		return session.newEvent(EventDispatch, msg), nil
	default:
		session.Logger.Warn().Str("type", msg.Type).Msg("Received dispatch before HELLO")

		return nil, nil
	}
}

func gatewayOpHeartbeat(ctx context.Context, session *Session, msg *qq.GatewayPayload) (*Event, error) {
	session.Logger.Debug().Msg("Gateway requested a heartbeat")

	if err := session.sendHeartbeat(ctx); err != nil {
		return nil, err
	}

	return session.newEvent(EventHeartbeatRequest, msg), nil
}

func gatewayOpHeartbeatACK(_ context.Context, session *Session, msg *qq.GatewayPayload) (*Event, error) {
	latency := session.heartbeater.OnAck(session.now())

	session.latency.Store(latency)
	UpdateGatewayLatency(session.identifier, latency.Seconds())

	session.Logger.Debug().Dur("latency", latency).Msg("Received heartbeat ACK")

	event := session.newEvent(EventHeartbeatACK, msg)
	event.Latency = latency

	return event, nil
}

func gatewayOpInvalidSession(_ context.Context, session *Session, msg *qq.GatewayPayload) (*Event, error) {
	if session.Status() != SessionStatusAuthenticated {
		session.Logger.Error().Msg("Gateway rejected identify, check the app id and token")
		session.shutdown(websocket.StatusNormalClosure, "")

		return nil, ErrAuthentication
	}

	session.Logger.Warn().Msg("Gateway invalidated the session")

	event := session.newEvent(EventInvalidSession, msg)

	session.shutdown(websocket.StatusNormalClosure, "")

	return event, nil
}

func gatewayOpIdentify(_ context.Context, session *Session, _ *qq.GatewayPayload) (*Event, error) {
	session.Logger.Warn().Msg("Gateway sent an identify payload, ignoring")

	return nil, nil
}

func init() {
	RegisterGatewayEvent(qq.GatewayOpDispatch, gatewayOpDispatch)
	RegisterGatewayEvent(qq.GatewayOpHeartbeat, gatewayOpHeartbeat)
	RegisterGatewayEvent(qq.GatewayOpIdentify, gatewayOpIdentify)
	RegisterGatewayEvent(qq.GatewayOpInvalidSession, gatewayOpInvalidSession)
	RegisterGatewayEvent(qq.GatewayOpHello, gatewayOpHello)
	RegisterGatewayEvent(qq.GatewayOpHeartbeatACK, gatewayOpHeartbeatACK)
}
