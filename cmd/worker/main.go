package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/remesas/remittance-api/internal/app/api"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.RunWorker(ctx, cfg); err != nil {
		log.Printf("notification worker exited: %v", err)
		stop()
		os.Exit(1)
	}
}
