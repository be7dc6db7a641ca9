package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wastewatch/wastewatch/cmd/wastewatch/cli"
	"github.com/wastewatch/wastewatch/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := cli.Run(ctx, os.Args[1:], cli.Options{EnvFiles: app.EnvFiles(".")})
	stop()
	os.Exit(code)
}
