package main

import (
	"fmt"

	"github.com/stagegate/stagegate/internal/config"
	"github.com/stagegate/stagegate/pkg/verify"
)

// handleVerify implements `stagegate verify <producer>`.
func handleVerify(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: stagegate verify <producer>")
	}

	v, cleanup, err := newVerifier()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := v.Verify(args[0])
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	if !result.Passed {
		return fmt.Errorf("verification failed")
	}
	return nil
}

// handlePrecheck implements `stagegate precheck <producer>`.
func handlePrecheck(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: stagegate precheck <producer>")
	}

	v, cleanup, err := newVerifier()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := v.Precheck(args[0])
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	if !result.Passed {
		return fmt.Errorf("precheck failed")
	}
	return nil
}

// newVerifier wires a Verifier from the runtime config.
func newVerifier() (*verify.Verifier, func(), error) {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return nil, nil, err
	}

	registry, err := loadRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, cleanup, err := openStore(cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	return verify.New(registry, store), cleanup, nil
}
