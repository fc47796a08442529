package cmd

import (
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/MaximallyHack/Maximally-Hack-sub003/config"
	httpsrv "github.com/MaximallyHack/Maximally-Hack-sub003/infra/server/http"
	"github.com/MaximallyHack/Maximally-Hack-sub003/infra/tracing"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/adapter/pubsub"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/domain/registry"
	amqphandler "github.com/MaximallyHack/Maximally-Hack-sub003/internal/handler/amqp"
	wshandler "github.com/MaximallyHack/Maximally-Hack-sub003/internal/handler/ws"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/service"
)

func NewApp(cfg *config.Config) *fx.App {
	opts := []fx.Option{
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideTracerProvider,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
		tracing.Module,
		registry.Module,
		service.Module,
		wshandler.Module,
		httpsrv.Module,
	}

	// The bus is optional; without a broker the ingress consumers and
	// presence export are simply absent.
	if cfg.Bus.URL != "" {
		opts = append(opts, pubsub.Module, amqphandler.Module)
	} else {
		opts = append(opts, pubsub.NoopModule)
	}

	return fx.New(opts...)
}

func ProvideLogger(cfg *config.Config) *slog.Logger {
	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With("service", ServiceName)
	slog.SetDefault(logger)

	cfg.WatchLogLevel(logger, level)
	return logger
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}

func ProvideTracerProvider() *sdktrace.TracerProvider {
	return tracing.NewTracerProvider(ServiceName)
}
