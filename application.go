package sandwich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WelcomerTeam/Sandwich-QQBot/pkg/limiter"
	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

var Version = "1.0.0"

// IdentifyWindow is the window session_start_limit.max_concurrency applies to.
const IdentifyWindow = 5 * time.Second

type ApplicationOptions struct {
	Logger      zerolog.Logger
	Resolver    GatewayResolver
	Dialer      Dialer
	Credentials Credentials
	Producer    Producer
	Debugger    Debugger

	// Backoff between sessions, exponential up to Session.RestartMaxWait when nil.
	Backoff backoff.BackOff
}

// Application keeps one gateway session running, opening a fresh session
// whenever the previous one ends, and publishes its dispatches.
type Application struct {
	Logger zerolog.Logger

	Identifier    string
	Configuration *Configuration

	resolver    GatewayResolver
	dialer      Dialer
	credentials Credentials
	debugger    Debugger
	backoff     backoff.BackOff

	pool         *PublishPool
	startLimiter *limiter.DurationLimiter

	Gateway   *atomic.Pointer[qq.GatewayBot]
	User      *atomic.Pointer[qq.User]
	session   *atomic.Pointer[Session]
	status    *atomic.Int32
	startedAt *atomic.Time
}

func NewApplication(configuration *Configuration, opts ApplicationOptions) *Application {
	logger := opts.Logger.With().Str("application_identifier", configuration.Identifier).Logger()

	bo := opts.Backoff
	if bo == nil {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = time.Second
		eb.Multiplier = 2
		eb.MaxInterval = configuration.Session.RestartMaxWait
		bo = eb
	}

	debugger := opts.Debugger
	if debugger == nil {
		debugger = NilDebugger{}
	}

	return &Application{
		Logger: logger,

		Identifier:    configuration.Identifier,
		Configuration: configuration,

		resolver:    opts.Resolver,
		dialer:      opts.Dialer,
		credentials: opts.Credentials,
		debugger:    debugger,
		backoff:     bo,

		pool: NewPublishPool(logger, configuration.Identifier, opts.Producer, configuration.Session.PublishWorkers),

		Gateway:   atomic.NewPointer[qq.GatewayBot](nil),
		User:      atomic.NewPointer[qq.User](nil),
		session:   atomic.NewPointer[Session](nil),
		status:    atomic.NewInt32(int32(ApplicationStatusIdle)),
		startedAt: atomic.NewTime(time.Time{}),
	}
}

// Run keeps a session open until ctx is cancelled or authentication is rejected.
func (app *Application) Run(ctx context.Context) error {
	app.startedAt.Store(time.Now())

	defer app.pool.Wait()

	for {
		app.SetStatus(ApplicationStatusStarting)

		err := app.runSession(ctx)

		if ctx.Err() != nil {
			app.SetStatus(ApplicationStatusStopped)

			return nil
		}

		if isPermanent(err) {
			app.Logger.Error().Err(err).Msg("Application cannot continue")
			app.SetStatus(ApplicationStatusFailed)

			return err
		}

		wait := app.nextWait(err)
		if wait == backoff.Stop {
			app.SetStatus(ApplicationStatusFailed)

			return err
		}

		app.Logger.Warn().Err(err).Dur("wait", wait).Msg("Session ended, opening a new session")
		app.SetStatus(ApplicationStatusBackoff)
		RecordSessionRestart(app.Identifier)

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			app.SetStatus(ApplicationStatusStopped)

			return nil
		case <-timer.C:
		}
	}
}

func (app *Application) runSession(ctx context.Context) error {
	gateway, err := app.resolver.GatewayBot(ctx)
	if err != nil {
		return err
	}

	app.Gateway.Store(gateway)

	limit := gateway.SessionStartLimit

	if limit.Total > 0 && limit.Remaining <= 0 {
		return fmt.Errorf("%w: resets after %dms", ErrSessionLimitExhausted, limit.ResetAfter)
	}

	if app.startLimiter == nil {
		app.startLimiter = limiter.NewDurationLimiter(app.Identifier+"-identify", limit.MaxConcurrency, IdentifyWindow)
	}

	waited, err := app.startLimiter.Lock(ctx)
	if err != nil {
		return err
	}

	if waited > 0 {
		app.Logger.Info().Dur("waited", waited).Msg("Waited for session start limit")
	}

	session, err := Open(ctx, app.dialer, gateway.URL, app.credentials, SessionOptions{
		Identifier: app.Identifier,
		Logger:     app.Logger,
		Intents:    app.Configuration.Intents(),
		Debugger:   app.debugger,
	})
	if err != nil {
		return err
	}

	app.session.Store(session)

	defer session.Close()

	err = session.Run(ctx, func(ctx context.Context, event *Event) error {
		return app.handleEvent(ctx, session, event)
	})
	if err != nil {
		return err
	}

	return ErrSessionClosed
}

func (app *Application) handleEvent(ctx context.Context, session *Session, event *Event) error {
	switch event.Kind {
	case EventReady:
		app.backoff.Reset()
		app.User.Store(session.Identity())
		app.SetStatus(ApplicationStatusRunning)

		return app.publish(ctx, session, event)
	case EventDispatch:
		return app.publish(ctx, session, event)
	case EventLivenessFailure:
		if app.Configuration.Session.CloseOnLivenessFailure {
			app.Logger.Warn().Err(event.Err).Msg("Closing session after missed heartbeat acknowledgement")

			return session.Close()
		}
	case EventInvalidSession:
		app.Logger.Warn().Msg("Session was invalidated")
	case EventClosed:
		app.Logger.Info().Int("code", event.CloseCode).Str("reason", event.CloseReason).Msg("Session was closed by gateway")
	}

	return nil
}

func (app *Application) publish(ctx context.Context, session *Session, event *Event) error {
	err := app.pool.Submit(ctx, ProducedPayload{
		Op:       event.Op,
		Sequence: event.Sequence,
		Type:     event.Type,
		Data:     event.Raw,
		Metadata: ProducedMetadata{
			Version:     Version,
			Application: app.Identifier,
			AppID:       app.Configuration.Bot.AppID,
			SessionID:   session.SessionID(),
		},
	})

	// A cancelled context ends the session on the next step.
	if err != nil && ctx.Err() != nil {
		return nil
	}

	return err
}

func (app *Application) nextWait(err error) time.Duration {
	if errors.Is(err, ErrSessionLimitExhausted) {
		if gateway := app.Gateway.Load(); gateway != nil {
			// A limit without a reset time is retried on the backoff instead.
			if wait := time.Duration(gateway.SessionStartLimit.ResetAfter) * time.Millisecond; wait > 0 {
				return wait
			}
		}
	}

	return app.backoff.NextBackOff()
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrAuthentication) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrMissingBotToken)
}

func (app *Application) SetStatus(status ApplicationStatus) {
	app.status.Store(int32(status))
	UpdateApplicationStatus(app.Identifier, status)
}

func (app *Application) Status() ApplicationStatus {
	return ApplicationStatus(app.status.Load())
}

// Session returns the current session, nil before the first one is opened.
func (app *Application) Session() *Session {
	return app.session.Load()
}

func (app *Application) StartedAt() time.Time {
	return app.startedAt.Load()
}

func (app *Application) PublishesInProgress() int32 {
	return app.pool.InProgress()
}
