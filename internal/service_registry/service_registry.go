package service_registry

import (
	"errors"
	"fmt"

	"github.com/benmeehan/geotrack/internal/api"
	"github.com/benmeehan/geotrack/internal/constants"
	"github.com/benmeehan/geotrack/internal/ingest"
	"github.com/benmeehan/geotrack/internal/models"
	"github.com/benmeehan/geotrack/internal/registry"
	"github.com/benmeehan/geotrack/internal/services"
	"github.com/benmeehan/geotrack/internal/track"
	"github.com/benmeehan/geotrack/internal/utils"
	"github.com/benmeehan/geotrack/pkg/file"
	"github.com/benmeehan/geotrack/pkg/location"
	"github.com/benmeehan/geotrack/pkg/mqtt"
	"github.com/rs/zerolog"
)

// Store is the storage the services read from and write to.
type Store interface {
	api.TrackStore
	ingest.LocationWriter
}

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services     map[string]registry.Service // Stores registered services
	serviceKeys  []string                    // Maintains order of service registration
	store        Store
	ingester     *ingest.Ingester
	fileClient   file.FileOperations
	trackOptions track.Options
	Logger       zerolog.Logger

	// newMQTTClient builds the broker client; replaced in tests.
	newMQTTClient func(o mqtt.Options) (mqtt.MQTTClient, error)
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(store Store, fileClient file.FileOperations, trackOptions track.Options, logger zerolog.Logger) *ServiceRegistry {
	sr := &ServiceRegistry{
		services:     make(map[string]registry.Service),
		store:        store,
		ingester:     ingest.NewIngester(store, logger),
		fileClient:   fileClient,
		trackOptions: trackOptions,
		Logger:       logger,
	}
	sr.newMQTTClient = func(o mqtt.Options) (mqtt.MQTTClient, error) {
		client := mqtt.NewMqttService(sr.fileClient, sr.Logger)
		if err := client.Initialize(o); err != nil {
			return nil, err
		}
		return client, nil
	}
	return sr
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Service returns the registered service called name.
func (sr *ServiceRegistry) Service(name string) (registry.Service, bool) {
	svc, ok := sr.services[name]
	return svc, ok
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    constants.HTTPService,
			enabled: config.Services.HTTP.Enabled,
			constructor: func() (registry.Service, error) {
				handler := api.NewHandler(sr.store, sr.ingester, sr.trackOptions, sr.Logger)
				router := api.NewRouter(handler, config.Services.HTTP.CORS, sr.Logger)
				return services.NewHTTPService(config.Services.HTTP.Listen, router, sr.Logger), nil
			},
		},
		{
			name:    constants.MQTTService,
			enabled: config.Services.MQTTListener.Enabled,
			constructor: func() (registry.Service, error) {
				client, err := sr.newMQTTClient(mqtt.Options{
					Broker:     config.MQTT.Broker,
					ClientID:   config.MQTT.ClientID,
					Username:   config.MQTT.Username,
					Password:   config.MQTT.Password,
					CACertPath: config.MQTT.CACertificate,
				})
				if err != nil {
					return nil, err
				}
				return services.NewMQTTListenerService(
					config.Services.MQTTListener.Topic,
					config.Services.MQTTListener.QOS,
					config.Services.MQTTListener.Workers,
					client,
					sr.ingester,
					sr.Logger,
				), nil
			},
		},
		{
			name:    constants.TrackerService,
			enabled: config.Services.Tracker.Enabled,
			constructor: func() (registry.Service, error) {
				tracker := config.Services.Tracker
				var provider location.Provider
				switch tracker.Provider {
				case constants.ProviderGoogle:
					p, err := location.NewGoogleGeolocationProvider(tracker.MapsAPIKey, tracker.ModemIndex, sr.Logger)
					if err != nil {
						sr.Logger.Error().Err(err).Msg("failed to create Google Geolocation provider")
						return nil, err
					}
					provider = p
				default:
					provider = location.NewDeviceSensorProvider(tracker.GPSDevicePort, tracker.GPSDeviceBaudRate)
				}
				return services.NewTrackerService(
					models.Identity{User: tracker.User, Device: tracker.Device},
					tracker.TrackerID,
					tracker.Interval,
					provider,
					sr.ingester,
					sr.Logger,
				), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return fmt.Errorf("failed to create %s service: %w", svc.name, err)
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}
