package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"mobilestore/internal/cli"
)

func main() {
	_ = godotenv.Load()
	log.SetOutput(os.Stderr)
	if os.Getenv("STORECTL_DEBUG") == "" {
		// structured client logs are noise on a terminal
		log.SetOutput(discard{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
