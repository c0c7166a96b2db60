package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"user-crud-service/cmd/usercli/cli"
	"user-crud-service/internal/adapter/repository/remote"
	"user-crud-service/internal/config"
	"user-crud-service/internal/usecase/user"
	"user-crud-service/pkg/httpclient"
	"user-crud-service/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	flags := pflag.NewFlagSet("usercli", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.Usage = func() { fmt.Fprint(os.Stderr, cli.Usage()) }
	baseURL := flags.String("base-url", cfg.Client.BaseURL, "REST API base URL")
	timeout := flags.Int("timeout", cfg.Client.TimeoutSeconds, "request timeout in seconds")
	verbose := flags.BoolP("verbose", "v", false, "log requests to stderr")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logger.NewWithConfig(logger.Config{
		Level:       level,
		Format:      "console",
		OutputPath:  "stderr",
		ServiceName: "usercli",
		Environment: cfg.App.Environment,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := remote.NewUserRepository(
		strings.TrimRight(*baseURL, "/"),
		httpclient.New(time.Duration(*timeout)*time.Second),
		log,
	)
	c := cli.New(user.New(repo, log), os.Stdout, log)

	if err := c.Run(ctx, flags.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprint(os.Stderr, cli.Usage())
			return 2
		}
		log.Debug("command failed", zap.Error(err))
		return 1
	}
	return 0
}
