package main

import (
	"log"

	"github.com/joho/godotenv"

	"consolegw/internal/config"
	"consolegw/internal/server"
)

func main() {
	// A missing .env is fine; the environment itself still applies.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	s, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	s.Run()
}
