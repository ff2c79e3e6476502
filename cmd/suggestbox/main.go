package main

import (
	"context"
	"log"
	"path/filepath"

	"github.com/joho/godotenv"

	"suggestbox/internal/app"
	"suggestbox/pkg/config"
	"suggestbox/pkg/logger"
	"suggestbox/pkg/shutdown"
)

// build metadata, set via ldflags during release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")

	flags := config.ParseConfigFlags()
	fileCfg, fileExists, err := config.ParseConfigFile(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	envCfg, envUsed := config.ParseConfigEnvs()

	eff, err := config.LoadEffectiveConfig(flags, fileCfg, fileExists, envCfg, envUsed)
	if err != nil {
		log.Fatalf("failed to resolve config: %v", err)
	}

	logger.InitWith(eff.Config.Logging.Level, eff.Config.Logging.Format)

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	dataDir := filepath.Dir(eff.Path)
	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("startup failed", err, dataDir)
	}
	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server failed", err, dataDir)
	}
	logger.Info("server_stopped")
}
