package sandwich

import (
	"context"
	"errors"
	"time"

	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
	"github.com/WelcomerTeam/Sandwich-QQBot/sandwichjson"
	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// RestResponse wraps every status api response.
type RestResponse struct {
	Ok       bool        `json:"ok"`
	Response interface{} `json:"response,omitempty"`
	Error    string      `json:"error,omitempty"`
}

type StatusResponse struct {
	Identifier      string    `json:"identifier"`
	Version         string    `json:"version"`
	Status          string    `json:"status"`
	SessionStatus   string    `json:"session_status,omitempty"`
	SessionID       string    `json:"session_id,omitempty"`
	User            *qq.User  `json:"user,omitempty"`
	Sequence        int64     `json:"sequence"`
	Intents         qq.Intent `json:"intents"`
	LatencyMs       int64     `json:"latency_ms"`
	StartedAt       time.Time `json:"started_at"`
	SessionOpenedAt time.Time `json:"session_opened_at,omitempty"`
	PublishInFlight int32     `json:"publish_in_flight"`
}

// StatusServer exposes the application status, metrics and a few REST lookups.
type StatusServer struct {
	app    *Application
	rest   *RESTClient
	server *fasthttp.Server
}

func NewStatusServer(app *Application, rest *RESTClient, registry *prometheus.Registry) *StatusServer {
	s := &StatusServer{app: app, rest: rest}

	r := router.New()
	r.GET("/status", s.handleStatus)
	r.GET("/guilds", s.handleGuilds)
	r.GET("/channels/{channel_id}/messages/{message_id}", s.handleMessage)

	if registry != nil {
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	s.server = &fasthttp.Server{
		Handler: s.logRequests(r.Handler),
		Name:    "sandwich-qqbot",
	}

	return s
}

// Handler is the routed request handler.
func (s *StatusServer) Handler() fasthttp.RequestHandler {
	return s.server.Handler
}

// ListenAndServe serves on host until ctx is cancelled.
func (s *StatusServer) ListenAndServe(ctx context.Context, host string) error {
	errCh := make(chan error, 1)

	go func() {
		s.app.Logger.Info().Str("host", host).Msg("Running HTTP server")
		errCh <- s.server.ListenAndServe(host)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.server.Shutdown()
	}
}

func (s *StatusServer) logRequests(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		next(ctx)

		s.app.Logger.Debug().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	}
}

func (s *StatusServer) handleStatus(ctx *fasthttp.RequestCtx) {
	response := StatusResponse{
		Identifier:      s.app.Identifier,
		Version:         Version,
		Status:          s.app.Status().String(),
		Intents:         s.app.Configuration.Intents(),
		StartedAt:       s.app.StartedAt(),
		PublishInFlight: s.app.PublishesInProgress(),
	}

	if session := s.app.Session(); session != nil {
		response.SessionStatus = session.Status().String()
		response.SessionID = session.SessionID()
		response.User = session.Identity()
		response.Sequence = session.Sequence()
		response.Intents = session.Intents()
		response.LatencyMs = session.Latency().Milliseconds()
		response.SessionOpenedAt = session.OpenedAt()
	}

	writeResponse(ctx, fasthttp.StatusOK, RestResponse{Ok: true, Response: response})
}

func (s *StatusServer) handleGuilds(ctx *fasthttp.RequestCtx) {
	guilds, err := s.rest.CurrentUserGuilds(ctx)
	if err != nil {
		writeError(ctx, err)

		return
	}

	writeResponse(ctx, fasthttp.StatusOK, RestResponse{Ok: true, Response: guilds})
}

func (s *StatusServer) handleMessage(ctx *fasthttp.RequestCtx) {
	channelID, _ := ctx.UserValue("channel_id").(string)
	messageID, _ := ctx.UserValue("message_id").(string)

	message, err := s.rest.ChannelMessage(ctx, channelID, messageID)
	if err != nil {
		writeError(ctx, err)

		return
	}

	writeResponse(ctx, fasthttp.StatusOK, RestResponse{Ok: true, Response: message})
}

func writeError(ctx *fasthttp.RequestCtx, err error) {
	status := fasthttp.StatusInternalServerError

	var restErr *RESTError
	if errors.As(err, &restErr) {
		status = restErr.StatusCode
	}

	writeResponse(ctx, status, RestResponse{Ok: false, Error: err.Error()})
}

func writeResponse(ctx *fasthttp.RequestCtx, status int, response RestResponse) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json;charset=UTF-8")

	if err := sandwichjson.MarshalToWriter(ctx, response); err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	}
}
