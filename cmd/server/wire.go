//go:build wireinject
// +build wireinject

package main

import (
	"instauto_backend/internal/app"
	"instauto_backend/internal/config"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config, logger *zap.Logger) (*app.Server, func(), error) {
	wire.Build(app.ProviderSet)
	return nil, nil, nil
}
