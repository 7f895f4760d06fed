package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stagegate/stagegate/internal/config"
	"github.com/stagegate/stagegate/pkg/artifact"
	"github.com/stagegate/stagegate/pkg/deliverable"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "verify":
		err = handleVerify(os.Args[2:])
	case "precheck":
		err = handlePrecheck(os.Args[2:])
	case "run":
		err = handleRun(os.Args[2:])
	case "serve":
		err = handleServe(os.Args[2:])
	case "tool":
		err = handleTool(os.Args[2:])
	case "init":
		err = handleInit(os.Args[2:])
	case "version":
		fmt.Println("stagegate " + version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Usage: stagegate <command> [args]

Commands:
  verify <producer>      Check a producer's deliverables
  precheck <producer>    Check a producer's prerequisites
  run <workflow.yaml>    Run a workflow definition
  serve                  Start the NATS job service and HTTP endpoints
  tool                   Speak JSON-RPC on stdin/stdout
  init                   Scaffold .stagegate/ configuration
  version                Print the version`)
}

func configPath() string {
	return filepath.Join(".stagegate", "config.yaml")
}

// newLogger builds the process logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// openStore creates the configured artifact store backend. The returned
// func releases any held resources.
func openStore(cfg config.StoreConfig) (artifact.Store, func(), error) {
	switch cfg.Backend {
	case "", "dir":
		root := cfg.Path
		if root == "" {
			root = "."
		}
		store, err := artifact.NewDirStore(root)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "bolt":
		store, err := artifact.NewBoltStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "memory":
		return artifact.NewMemStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// loadRegistry reads the configured registry file, falling back to the
// built-in five-producer registry.
func loadRegistry(cfg config.Config) (*deliverable.Registry, error) {
	if cfg.RegistryPath == "" {
		return deliverable.Default(), nil
	}
	if _, err := os.Stat(cfg.RegistryPath); os.IsNotExist(err) {
		return deliverable.Default(), nil
	}
	return deliverable.Load(cfg.RegistryPath)
}
