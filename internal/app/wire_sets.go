//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
)

var CoreInfraSet = wire.NewSet(
	NewLogging,
	NewLogger,
	NewMetricsRegistry,
	NewMetrics,
	ProvideConfigProvider,
	NewRuntimeConfig,
)

var EngineSet = wire.NewSet(
	CoreInfraSet,
	NewToolCatalog,
	NewRecoveryManager,
	NewResolver,
	NewPlanner,
	NewExecutor,
	wire.Struct(new(CoordinatorOptions), "*"),
	NewCoordinator,
)

var AppSet = wire.NewSet(
	EngineSet,
	NewGateway,
	NewReloadManager,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)
