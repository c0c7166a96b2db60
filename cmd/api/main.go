package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"user-crud-service/cmd/api/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Printf("failed to initialize application: %v", err)
		return 1
	}

	if err := a.Run(ctx); err != nil {
		log.Printf("application exited with error: %v", err)
		return 1
	}
	return 0
}
