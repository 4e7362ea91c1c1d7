package main

import (
	"context"
	"log"

	"bizmetrics/internal"
	"bizmetrics/internal/config"
	"bizmetrics/internal/container"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	logger := internal.NewDefaultLogger()

	appContainer, err := container.Open(context.Background(), appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	logger.Info("Starting bizmetrics server on port %s", appConfig.Server.Port)
	if err := appContainer.Server().Run(":" + appConfig.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
