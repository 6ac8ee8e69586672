package main

import (
	"context"
	"strings"

	"github.com/joho/godotenv"

	"guidecache/internal/app"
	"guidecache/pkg/config"
	"guidecache/pkg/logger"
	"guidecache/pkg/shutdown"
)

// build metadata, set via ldflags during release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, originVal, cfgVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	cfg, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		logger.Init()
		shutdown.Abort("failed to load config", err, dbVal, 0)
	}

	logger.InitWithLevel(cfg.Logging.Level)

	// flags win over env and file when explicitly set
	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrVal
	}
	dbPath := cfg.Server.DBPath
	if dbPath == "" || setFlags["db"] {
		dbPath = dbVal
	}
	origin := cfg.Origin.BaseURL
	if origin == "" || setFlags["origin"] {
		origin = originVal
	}

	var srcs []string
	if len(setFlags) > 0 {
		srcs = append(srcs, "flags")
	}
	if envUsed {
		srcs = append(srcs, "env")
	}
	if _, cerr := config.Load(cfgPath); cerr == nil {
		srcs = append(srcs, "config")
	}

	eff := config.EffectiveConfigResult{
		Config: cfg,
		Addr:   addr,
		DBPath: dbPath,
		Origin: origin,
		Source: strings.Join(srcs, ", "),
	}

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("startup failed", err, dbPath, 0)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server exited", err, dbPath, 0)
	}
	logger.Info("shutdown_complete")
}
