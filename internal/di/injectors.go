//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"watchsync/internal"
	"watchsync/internal/controllers"
	"watchsync/internal/dispatch"
	"watchsync/internal/models"
	"watchsync/internal/player"
	"watchsync/internal/providers"
	"watchsync/internal/remote"
	"watchsync/internal/services"
	"watchsync/internal/storage"
	"watchsync/internal/structures"
	"watchsync/internal/syncer"
)

var historySet = wire.NewSet(
	providers.NewConfigProvider,
	providers.NewLogProvider,

	storage.NewZstdCompressor,
	storage.NewPersistence,
	storage.NewProgressStore,

	remote.NewSession,
	remote.NewBackendClient,
	services.NewResumeService,
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		historySet,
		wire.Bind(new(providers.RecordCounter), new(*models.ProgressStore)),
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		remote.NewMetadataClient,
		player.NewValidator,
		dispatch.NewDispatcher,
		services.NewProgressService,
		services.NewAccountService,
		services.NewCatalogService,
		syncer.NewScheduler,
		controllers.NewProgressController,
		controllers.NewAccountController,
		controllers.NewCatalogController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}

func InitLookup(cfg *structures.CliFlags) (*internal.Lookup, error) {

	wire.Build(
		historySet,
		internal.NewLookup,
	)

	return nil, nil
}
