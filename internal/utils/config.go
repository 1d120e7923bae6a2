package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/benmeehan/geotrack/internal/constants"
	"github.com/benmeehan/geotrack/internal/track"
	"github.com/benmeehan/geotrack/pkg/file"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config represents the structure of the configuration file.
type Config struct {
	Log struct {
		Level string `yaml:"level" validate:"oneof=trace debug info warn error"` // Minimum log level
		JSON  bool   `yaml:"json"`                                               // Emit JSON lines instead of console output
	} `yaml:"log"`

	Database struct {
		Connection string `yaml:"connection" validate:"required"` // sqlite://path or postgres://... DSN
		Migrate    bool   `yaml:"migrate"`                        // Apply pending migrations on startup
	} `yaml:"database"`

	MQTT struct {
		Broker        string `yaml:"broker" validate:"omitempty,url"` // MQTT broker URL, e.g. tcp://localhost:1883
		ClientID      string `yaml:"client_id"`                       // Stable MQTT client ID; random when empty
		Username      string `yaml:"username"`                        // MQTT username
		Password      string `yaml:"password"`                        // MQTT password
		CACertificate string `yaml:"ca_certificate"`                  // Path to the CA certificate
	} `yaml:"mqtt"`

	Track struct {
		Timezone string `yaml:"timezone" validate:"omitempty,timezone"` // Zone of stored timestamps without an offset
	} `yaml:"track"`

	Services struct {
		HTTP struct {
			Enabled bool   `yaml:"enabled"`                                  // Enable/disable the HTTP API
			Listen  string `yaml:"listen" validate:"required,hostname_port"` // Listen address
			CORS    bool   `yaml:"cors"`                                     // Allow cross-origin requests
		} `yaml:"http"`

		MQTTListener struct {
			Enabled bool   `yaml:"enabled"`                    // Enable/disable the OwnTracks MQTT subscription
			Topic   string `yaml:"topic" validate:"required"`  // Subscription topic
			QOS     int    `yaml:"qos" validate:"min=0,max=2"` // MQTT QoS level of the subscription
			Workers int    `yaml:"workers" validate:"min=1"`   // Number of message handling workers
		} `yaml:"mqtt_listener"`

		Tracker struct {
			Enabled           bool          `yaml:"enabled"`                                                           // Enable/disable the local tracker
			Provider          string        `yaml:"provider" validate:"oneof=nmea google"`                             // Position source
			User              string        `yaml:"user" validate:"required_if=Enabled true"`                          // Identity the fixes are stored under
			Device            string        `yaml:"device" validate:"required_if=Enabled true"`                        // Identity the fixes are stored under
			TrackerID         string        `yaml:"tracker_id" validate:"max=2"`                                       // Two letter tid
			Interval          time.Duration `yaml:"interval" validate:"gt=0"`                                          // Interval between fixes
			GPSDevicePort     string        `yaml:"gps_device_port" validate:"required_if=Enabled true Provider nmea"` // Serial port of the GPS receiver
			GPSDeviceBaudRate int           `yaml:"gps_baud_rate" validate:"gt=0"`                                     // Baud rate of the GPS receiver
			MapsAPIKey        string        `yaml:"maps_api_key" validate:"required_if=Enabled true Provider google"`  // Google maps API Key
			ModemIndex        int           `yaml:"modem_index" validate:"min=0"`                                      // ModemManager index used for cell towers
		} `yaml:"tracker"`
	} `yaml:"services"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultConfig returns the configuration used for every key the file and
// environment leave unset.
func DefaultConfig() *Config {
	var config Config
	config.Log.Level = "info"
	config.Database.Connection = "sqlite://geotrack.db"
	config.Database.Migrate = true
	config.Services.HTTP.Enabled = true
	config.Services.HTTP.Listen = constants.DefaultHTTPListen
	config.Services.MQTTListener.Topic = constants.DefaultOwnTracksTopic
	config.Services.MQTTListener.QOS = 1
	config.Services.MQTTListener.Workers = 4
	config.Services.Tracker.Provider = constants.ProviderNMEA
	config.Services.Tracker.Interval = 30 * time.Second
	config.Services.Tracker.GPSDeviceBaudRate = 9600
	return &config
}

// LoadConfig loads the YAML configuration from the specified file on top of
// the defaults, then applies the environment. A missing file is not an error.
// Variables from envFile (usually .env) apply only where the process
// environment does not set them.
func LoadConfig(filename, envFile string, fileClient file.FileOperations) (*Config, error) {
	config := DefaultConfig()

	exists, err := fileClient.IsFileExists(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if exists {
		if err := fileClient.ReadYamlFile(filename, config); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		}
	}

	dotenv, err := readEnvFile(envFile, fileClient)
	if err != nil {
		return nil, err
	}
	config.applyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func readEnvFile(envFile string, fileClient file.FileOperations) (map[string]string, error) {
	if envFile == "" {
		return nil, nil
	}
	exists, err := fileClient.IsFileExists(envFile)
	if err != nil || !exists {
		return nil, err
	}
	raw, err := fileClient.ReadFileRaw(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}
	env, err := godotenv.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file %s: %w", envFile, err)
	}
	return env, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key   string
		field *string
	}{
		{"DB_CONNECTION", &c.Database.Connection},
		{"HTTP_LISTEN", &c.Services.HTTP.Listen},
		{"MQTT_URL", &c.MQTT.Broker},
		{"MQTT_USER", &c.MQTT.Username},
		{"MQTT_PASSWORD", &c.MQTT.Password},
		{"LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.field = v
		}
	}
	c.Log.Level = strings.ToLower(c.Log.Level)

	// A broker given through the environment turns the subscription on.
	if v, ok := lookup("MQTT_URL"); ok && v != "" {
		c.Services.MQTTListener.Enabled = true
	}
}

// Validate checks field constraints and the dependencies between sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Services.MQTTListener.Enabled && c.MQTT.Broker == "" {
		return errors.New("invalid configuration: mqtt_listener is enabled but no mqtt broker is set")
	}
	return nil
}

// Location returns the zone stored timestamps without an offset are read in.
func (c *Config) Location() (*time.Location, error) {
	if c.Track.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Track.Timezone)
}

// TrackOptions returns the track reconstruction options: the fixed accuracy
// cutoff, the configured timezone and logger.
func (c *Config) TrackOptions(logger zerolog.Logger) (track.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return track.Options{}, err
	}
	opts := track.DefaultOptions()
	opts.Location = loc
	opts.Logger = logger
	return opts, nil
}
