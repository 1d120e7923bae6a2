package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benmeehan/geotrack/internal/service_registry"
	"github.com/benmeehan/geotrack/internal/store"
	"github.com/benmeehan/geotrack/internal/utils"
	"github.com/benmeehan/geotrack/pkg/file"
	"github.com/benmeehan/geotrack/pkg/mqtt"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration")
	envPath := flag.String("env", ".env", "path to an optional .env file")
	initConfig := flag.String("init-config", "", "write the default configuration to this path and exit")
	flag.Parse()

	// Bootstrap logger until the configured level is known
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	if *initConfig != "" {
		if err := fileClient.WriteYamlFile(*initConfig, utils.DefaultConfig()); err != nil {
			log.Fatal().Err(err).Msg("Failed to write default configuration")
		}
		log.Info().Str("path", *initConfig).Msg("Default configuration written")
		return
	}

	// Load configuration from file
	config, err := utils.LoadConfig(*configPath, *envPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = newLogger(config)

	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "geotrack-" + uuid.New().String()
		log.Warn().Str("client_id", config.MQTT.ClientID).Msg("No MQTT client ID configured, the broker session will not survive a restart")
	}
	mqtt.SetLogger(log)

	trackOptions, err := config.TrackOptions(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load track timezone")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := store.Open(ctx, config.Database.Connection, log)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if config.Database.Migrate {
		if err := db.MigrateUp(); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(db, fileClient, trackOptions, log)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services did not stop cleanly")
	}
}

func newLogger(config *utils.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(config.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if level > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	if config.Log.JSON {
		return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}
