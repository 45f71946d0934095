package main

import (
	"flag"
	"log"

	"ripeness/internal/app"
	"ripeness/internal/config"
)

func main() {
	envFile := flag.String("env", ".env", "Path to a .env file")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
