package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/workout/internal/server"
	"github.com/dmitrijs2005/workout/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not loaded: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}
