package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/cardbridge/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (default ~/.config/cardbridge/config.toml)")
	envPath := flag.String("env", "", "dotenv overrides (default .env beside the config file)")
	dashboard := flag.Bool("dashboard", false, "show the terminal dashboard")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		EnvPath:    *envPath,
		Dashboard:  *dashboard,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "cardbridge: %v\n", err)
		return 1
	}
	return 0
}
