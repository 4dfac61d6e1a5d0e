package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	sandwich "github.com/WelcomerTeam/Sandwich-QQBot"
	"github.com/WelcomerTeam/Sandwich-QQBot/internal/console"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	configurationPath := flag.String("config", "sandwich.yaml", "Path to the yaml configuration")
	envPath := flag.String("env", ".env", "Path to a dotenv file with credentials")
	level := flag.String("level", "", "Overrides the configured log level")

	flag.Parse()

	fallback := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := sandwich.LoadEnvironment(*envPath); err != nil {
		fallback.Fatal().Err(err).Msg("Failed to load environment")
	}

	configuration, err := sandwich.LoadConfiguration(*configurationPath)
	if err != nil {
		fallback.Fatal().Err(err).Str("path", *configurationPath).Msg("Failed to load configuration")
	}

	if *level != "" {
		configuration.Logging.Level = *level
	}

	logger, closer := sandwich.NewLogger(configuration)
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = run(ctx, logger, configuration); err != nil {
		logger.Error().Err(err).Msg("Exited with error")
		closer.Close()
		os.Exit(1)
	}

	logger.Info().Msg("Exited")
}

func run(ctx context.Context, logger zerolog.Logger, configuration *sandwich.Configuration) error {
	credentials := configuration.Credentials()

	rest := sandwich.NewRESTClient(credentials, configuration.Bot.Sandbox)
	dialer := &sandwich.WebsocketDialer{}

	if configuration.Bot.ProxyURL != "" {
		proxyURL, err := url.Parse(configuration.Bot.ProxyURL)
		if err != nil {
			return err
		}

		rest.HTTP = sandwich.NewProxyClient(http.Client{Timeout: sandwich.DefaultRESTTimeout}, *proxyURL)
		dialer = sandwich.NewEgressDialer(*proxyURL)
	}

	producer, err := sandwich.NewProducer(ctx, configuration)
	if err != nil {
		return err
	}

	defer producer.Close()

	var debugger sandwich.Debugger
	if configuration.Logging.FrameDebug {
		debugger = console.NewStderrDebugger()
	}

	app := sandwich.NewApplication(configuration, sandwich.ApplicationOptions{
		Logger:      logger,
		Resolver:    rest,
		Dialer:      dialer,
		Credentials: credentials,
		Producer:    producer,
		Debugger:    debugger,
	})

	if configuration.HTTP.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		sandwich.RegisterMetrics(registry)

		server := sandwich.NewStatusServer(app, rest, registry)

		go func() {
			if err := server.ListenAndServe(ctx, configuration.HTTP.Host); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("HTTP server stopped")
			}
		}()
	}

	return app.Run(ctx)
}
