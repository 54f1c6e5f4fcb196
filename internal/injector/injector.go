//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/bridgesync/bridgesync/internal/core/observability/log"
	"github.com/bridgesync/bridgesync/internal/core/status"
	syncclient "github.com/bridgesync/bridgesync/internal/core/sync"
)

func ProvideLogger() *log.Logger {
	wire.Build(wire.Value(log.LevelInfo), log.New)
	return nil
}

func ProvideSyncClient(cfg syncclient.Config, logger *log.Logger) *syncclient.Client {
	wire.Build(
		wire.Bind(new(log.Log), new(*log.Logger)),
		wire.Bind(new(syncclient.Transport), new(*syncclient.HTTPTransport)),
		provideHTTPTransport,
		provideClient,
	)
	return nil
}

func ProvideProjection() *status.Projection {
	wire.Build(status.NewProjection)
	return nil
}

func provideHTTPTransport(cfg syncclient.Config, logger *log.Logger) *syncclient.HTTPTransport {
	return syncclient.NewHTTPTransport(cfg, nil, logger)
}

func provideClient(transport syncclient.Transport, logger *log.Logger) *syncclient.Client {
	return syncclient.NewClient(transport, logger)
}
