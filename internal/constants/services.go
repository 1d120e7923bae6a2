package constants

import "time"

// Service names, in start order.
const (
	HTTPService    = "http"
	MQTTService    = "mqtt"
	TrackerService = "tracker"
)

const (
	// DefaultOwnTracksTopic is the MQTT subscription covering owntracks/{user}/{device}.
	DefaultOwnTracksTopic = "owntracks/#"

	// DefaultHTTPListen is used when neither the config file nor HTTP_LISTEN set an address.
	DefaultHTTPListen = "127.0.0.1:8083"

	// MQTTErrorBackoff throttles logging after a lost broker connection.
	MQTTErrorBackoff = 500 * time.Millisecond

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout = 5 * time.Second
)

// Tracker location providers.
const (
	ProviderNMEA   = "nmea"
	ProviderGoogle = "google"
)
