package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/market_radar/app/display/internal/service"
	"github.com/iWorld-y/market_radar/app/display/internal/usecase"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/engine"
)

// ProviderSet 是展示服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,
	NewCronServer,

	// Engine providers
	NewRadarEngine,
	wire.Bind(new(usecase.MarketEngine), new(*engine.Engine)),

	// UseCase providers
	usecase.NewMarketUseCase,

	// Service providers
	service.NewMarketService,
)
