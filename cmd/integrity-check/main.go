package main

import (
	"context"
	"log"
	"os"
	"time"

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
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := api.RunIntegrityCheck(ctx, cfg); err != nil {
		log.Printf("integrity check failed: %v", err)
		cancel()
		os.Exit(1)
	}
	log.Printf("integrity check completed")
}
