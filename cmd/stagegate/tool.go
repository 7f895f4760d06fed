package main

import (
	"os"

	"github.com/stagegate/stagegate/internal/config"
	"github.com/stagegate/stagegate/pkg/protocol"
	"github.com/stagegate/stagegate/pkg/verify"
)

// handleTool implements `stagegate tool`: JSON-RPC 2.0 on stdin/stdout
// so an orchestrator can drive verification as a subprocess.
func handleTool(args []string) error {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	store, cleanup, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer cleanup()

	server := protocol.NewToolServer(verify.New(registry, store), version, logger)
	return server.Serve(os.Stdin, os.Stdout)
}
