// Package main is the entry point for the terrain viewer.
package main

import (
	"fmt"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"go.uber.org/zap"

	"github.com/Faultbox/terrain3d/internal/config"
	"github.com/Faultbox/terrain3d/internal/logger"
	"github.com/Faultbox/terrain3d/internal/viewer"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	opts := logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Console: os.Stderr,
	}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithOptions(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Terrain3D ===", zap.String("version", versioninfo.Short()))
	logger.Sugar.Debugf("Config: %+v", cfg)

	v, err := viewer.New(cfg)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer v.Close()

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}
