package sandwich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
	"github.com/rs/zerolog"
	gotils_strconv "github.com/savsgio/gotils/strconv"
	"go.uber.org/atomic"
	"nhooyr.io/websocket"
)

// Only shard 0 of 1 is ever identified.
const (
	ShardID    int32 = 0
	ShardCount int32 = 1
)

type SessionOptions struct {
	// Identifier labels logs and metrics.
	Identifier string

	Logger   zerolog.Logger
	Intents  qq.Intent
	Debugger Debugger

	// OnStatus is called on every status transition.
	OnStatus func(status SessionStatus)

	// Clock defaults to time.Now.
	Clock func() time.Time
}

type readResult struct {
	frame Frame
	err   error
}

// Session is a single gateway connection. It is driven by one caller through
// NextEvent or Run and is never reconnected; open a new Session instead.
type Session struct {
	ctx    context.Context
	cancel func()

	Logger zerolog.Logger

	identifier  string
	transport   Transport
	credentials Credentials
	intents     qq.Intent
	debugger    Debugger
	onStatus    func(status SessionStatus)
	now         func() time.Time

	heartbeater *Heartbeater
	identified  bool

	frames chan readResult

	status    *atomic.Int32
	closed    *atomic.Bool
	sequence  *atomic.Int64
	gaps      *atomic.Int64
	identity  *atomic.Pointer[qq.User]
	sessionID *atomic.String
	latency   *atomic.Duration
	openedAt  *atomic.Time
}

// Open dials the gateway and returns a session awaiting hello. No session is
// returned when the dial fails.
func Open(ctx context.Context, dialer Dialer, url string, credentials Credentials, opts SessionOptions) (*Session, error) {
	s := newSession(credentials, opts)

	s.setStatus(SessionStatusConnecting)
	s.Logger.Info().Str("url", url).Msg("Connecting to gateway")

	transport, err := dialer.Dial(ctx, url)
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to dial gateway")

		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	s.transport = transport
	s.openedAt.Store(s.now())

	go s.feed()

	s.setStatus(SessionStatusAwaitingHello)

	return s, nil
}

func newSession(credentials Credentials, opts SessionOptions) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		ctx:    ctx,
		cancel: cancel,

		Logger: opts.Logger.With().Str("session", opts.Identifier).Logger(),

		identifier:  opts.Identifier,
		credentials: credentials,
		intents:     opts.Intents,
		debugger:    opts.Debugger,
		onStatus:    opts.OnStatus,
		now:         opts.Clock,

		heartbeater: NewHeartbeater(),

		frames: make(chan readResult, MessageChannelBuffer),

		status:    atomic.NewInt32(int32(SessionStatusConnecting)),
		closed:    atomic.NewBool(false),
		sequence:  atomic.NewInt64(0),
		gaps:      atomic.NewInt64(0),
		identity:  atomic.NewPointer[qq.User](nil),
		sessionID: atomic.NewString(""),
		latency:   atomic.NewDuration(0),
		openedAt:  atomic.NewTime(time.Time{}),
	}

	if s.intents == 0 {
		s.intents = qq.DefaultIntents
	}

	if s.debugger == nil {
		s.debugger = NilDebugger{}
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// feed is the only reader of the transport.
func (s *Session) feed() {
	for {
		frame, err := s.transport.ReadFrame(s.ctx)

		select {
		case s.frames <- readResult{frame: frame, err: err}:
		case <-s.ctx.Done():
			return
		}

		if err != nil || frame.Kind == FrameClose {
			return
		}
	}
}

// NextEvent advances the session by one step: it sends a heartbeat if one is
// due, then waits for the next frame or heartbeat deadline. Frames that need
// no attention from the host are consumed without returning.
func (s *Session) NextEvent(ctx context.Context) (*Event, error) {
	for {
		if s.closed.Load() {
			return nil, ErrSessionClosed
		}

		event, err := s.pollHeartbeat(ctx)
		if err != nil || event != nil {
			return event, err
		}

		var (
			deadline <-chan time.Time
			timer    *time.Timer
		)

		if s.heartbeating() {
			timer = time.NewTimer(s.heartbeater.Until(s.now()))
			deadline = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)

			return nil, ctx.Err()
		case <-s.ctx.Done():
			stopTimer(timer)
		case <-deadline:
		case result := <-s.frames:
			stopTimer(timer)

			event, err = s.handleFrame(ctx, result)
			if err != nil || event != nil {
				return event, err
			}
		}
	}
}

// Run drives the session until it closes. It returns nil when the gateway or
// the host closed the session.
func (s *Session) Run(ctx context.Context, handler EventHandler) error {
	for {
		event, err := s.NextEvent(ctx)
		if err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return nil
			}

			if ctx.Err() != nil {
				s.Close()
			}

			return err
		}

		if handler == nil {
			continue
		}

		if err = handler(ctx, event); err != nil {
			s.Close()

			return err
		}
	}
}

// Close ends the session. It is safe to call from any goroutine and more than once.
func (s *Session) Close() error {
	s.shutdown(websocket.StatusNormalClosure, "")

	return nil
}

func (s *Session) Status() SessionStatus {
	return SessionStatus(s.status.Load())
}

func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Identity is the user from READY, nil before authentication.
func (s *Session) Identity() *qq.User {
	return s.identity.Load()
}

func (s *Session) SessionID() string {
	return s.sessionID.Load()
}

func (s *Session) Sequence() int64 {
	return s.sequence.Load()
}

// SequenceGaps counts dispatches that did not follow the previous sequence.
func (s *Session) SequenceGaps() int64 {
	return s.gaps.Load()
}

func (s *Session) Latency() time.Duration {
	return s.latency.Load()
}

func (s *Session) Intents() qq.Intent {
	return s.intents
}

func (s *Session) OpenedAt() time.Time {
	return s.openedAt.Load()
}

// HeartbeatInterval is only safe to call from the goroutine driving the session.
func (s *Session) HeartbeatInterval() time.Duration {
	return s.heartbeater.Interval()
}

func (s *Session) heartbeating() bool {
	status := s.Status()

	return status == SessionStatusIdentifying || status == SessionStatusAuthenticated
}

func (s *Session) pollHeartbeat(ctx context.Context) (*Event, error) {
	if !s.heartbeating() {
		return nil, nil
	}

	now := s.now()
	tick := s.heartbeater.Tick(now)

	if tick.Send {
		if err := s.sendHeartbeat(ctx); err != nil {
			return nil, err
		}
	}

	if tick.Liveness != nil {
		s.Logger.Warn().Err(tick.Liveness).Msg("Gateway has not acknowledged heartbeats")
		RecordLivenessFailure(s.identifier)

		return &Event{Kind: EventLivenessFailure, Err: tick.Liveness, ReceivedAt: now}, nil
	}

	return nil, nil
}

func (s *Session) handleFrame(ctx context.Context, result readResult) (*Event, error) {
	if result.err != nil {
		if s.closed.Load() {
			return nil, ErrSessionClosed
		}

		s.debugger.Error(result.err)
		s.Logger.Error().Err(result.err).Msg("Failed to read from gateway")
		s.shutdown(websocket.StatusGoingAway, "")

		return nil, fmt.Errorf("%w: failed to read: %w", ErrConnection, result.err)
	}

	frame := result.frame

	if frame.Kind == FrameText {
		s.Logger.Trace().Msg(">>> " + gotils_strconv.B2S(frame.Data))
		s.debugger.Incoming(frame.Data)
	}

	msg, closed, err := Decode(frame)
	if closed {
		s.Logger.Info().
			Int("code", int(frame.CloseCode)).
			Str("reason", frame.CloseReason).
			Msg("Gateway closed the connection")

		event := s.newEvent(EventClosed, nil)
		event.CloseCode = int(frame.CloseCode)
		event.CloseReason = frame.CloseReason

		s.shutdown(websocket.StatusNormalClosure, "")

		return event, nil
	}

	if err != nil {
		RecordDecodeError(s.identifier)
		s.debugger.Error(err)

		if errors.Is(err, ErrUnknownPayloadShape) {
			s.Logger.Warn().Err(err).Msg("Skipping frame with unknown payload shape")

			// The dispatch still happened, only its body is unusable.
			if msg != nil && msg.Op == qq.GatewayOpDispatch {
				s.trackSequence(msg.Sequence)
			}

			return nil, nil
		}

		s.Logger.Error().Err(err).Msg("Failed to decode frame")
		s.shutdown(websocket.StatusUnsupportedData, "")

		return nil, err
	}

	event, err := s.GatewayDispatch(ctx, msg)
	if errors.Is(err, ErrNoGatewayHandler) {
		s.Logger.Warn().Int("op", int(msg.Op)).Str("type", msg.Type).Msg("Gateway sent unknown opcode")
		RecordUnknownOpcode(s.identifier, msg.Op.String())

		return nil, nil
	}

	return event, err
}

func (s *Session) identify(ctx context.Context) error {
	token, err := s.credentials.BotToken(ctx)
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to resolve bot token")
		s.shutdown(websocket.StatusNormalClosure, "")

		return fmt.Errorf("failed to resolve bot token: %w", err)
	}

	s.identified = true

	s.Logger.Debug().Uint32("intents", uint32(s.intents)).Msg("Sending identify")

	if err = s.send(ctx, qq.NewIdentify(token, s.intents, ShardID, ShardCount)); err != nil {
		return err
	}

	s.setStatus(SessionStatusIdentifying)

	return nil
}

func (s *Session) sendHeartbeat(ctx context.Context) error {
	sequence := s.sequence.Load()

	if err := s.send(ctx, qq.NewHeartbeat(sequence)); err != nil {
		return err
	}

	s.heartbeater.OnSent(s.now())
	RecordHeartbeat(s.identifier)
	s.Logger.Debug().Int64("sequence", sequence).Msg("Sent heartbeat")

	return nil
}

func (s *Session) send(ctx context.Context, payload qq.GatewayPayload) error {
	res, err := Encode(payload)
	if err != nil {
		return err
	}

	if payload.Op == qq.GatewayOpIdentify {
		s.Logger.Trace().Msg("<<< identify")
		s.debugger.Outgoing(redactIdentify(payload))
	} else {
		s.Logger.Trace().Msg("<<< " + gotils_strconv.B2S(res))
		s.debugger.Outgoing(res)
	}

	if err = s.transport.WriteFrame(ctx, res); err != nil {
		s.debugger.Error(err)
		s.Logger.Error().Err(err).Str("op", payload.Op.String()).Msg("Failed to write to gateway")
		s.shutdown(websocket.StatusGoingAway, "")

		return fmt.Errorf("%w: failed to write %s: %w", ErrConnection, payload.Op, err)
	}

	return nil
}

func (s *Session) trackSequence(sequence int64) {
	if sequence == 0 {
		return
	}

	previous := s.sequence.Swap(sequence)

	if previous != 0 && sequence != previous+1 {
		s.Logger.Warn().
			Int64("previous", previous).
			Int64("sequence", sequence).
			Msg("Received dispatch out of sequence")
		s.gaps.Inc()
		RecordSequenceGap(s.identifier)
	}
}

func (s *Session) setStatus(status SessionStatus) {
	s.status.Store(int32(status))

	UpdateSessionStatus(s.identifier, status)
	s.Logger.Info().Str("status", status.String()).Msg("Session status changed")

	if s.onStatus != nil {
		s.onStatus(status)
	}
}

func (s *Session) shutdown(code websocket.StatusCode, reason string) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.cancel()

	if s.transport != nil {
		if err := s.transport.Close(code, reason); err != nil {
			s.Logger.Debug().Err(err).Msg("Failed to close websocket")
		}
	}

	s.setStatus(SessionStatusClosed)
}

func (s *Session) newEvent(kind EventKind, msg *qq.GatewayPayload) *Event {
	event := &Event{
		Kind:       kind,
		ReceivedAt: s.now(),
	}

	if msg != nil {
		event.Op = msg.Op
		event.Type = msg.Type
		event.Sequence = msg.Sequence
		event.Data = msg.Data.Dispatch()
		event.Raw = msg.Data.Raw()
	}

	return event
}

func redactIdentify(payload qq.GatewayPayload) []byte {
	body := *payload.Data.Dispatch()
	body.Token = "[redacted]"

	res, _ := Encode(qq.GatewayPayload{Op: payload.Op, Data: qq.NewDispatchPayload(&body)})

	return res
}

func stopTimer(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
