package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"meetnotes-backend/internal/bootstrap"
	"meetnotes-backend/internal/cli"
	"meetnotes-backend/internal/host"
	"meetnotes-backend/internal/shared/config"
	"meetnotes-backend/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		cli.NewFormatter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	if os.Getenv("MEETNOTES_VERBOSE") == "" {
		restore := telemetry.SetOutput(io.Discard)
		defer restore()
	}

	cfg := config.Load()

	var cipher *host.Cipher
	if strings.TrimSpace(cfg.EncryptionSecret) != "" {
		c, err := host.NewCipher(cfg.EncryptionSecret)
		if err != nil {
			return fmt.Errorf("encryption key: %w", err)
		}
		cipher = c
	}

	ctx := context.Background()
	app, err := bootstrap.Build(ctx, cfg, bootstrap.WithShell(cli.NewTerminalShell(os.Stderr, cipher)))
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}
	defer app.Close()

	deps := &cli.Dependencies{App: app, Config: cfg}
	return cli.NewRootCmd(deps).ExecuteContext(ctx)
}
