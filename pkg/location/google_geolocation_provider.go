package location

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

const geolocateTimeout = 10 * time.Second

// geolocator is the part of the Maps client the provider uses.
type geolocator interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
}

// GoogleGeolocationProvider uses the Google Maps API to get location data.
type GoogleGeolocationProvider struct {
	client     geolocator
	modemIndex int
	run        commandRunner
	Logger     zerolog.Logger
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int, logger zerolog.Logger) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleGeolocationProvider{
		client:     c,
		modemIndex: modemIndex,
		run:        runCommand,
		Logger:     logger,
	}, nil
}

// GetLocation retrieves the device's location using Google Maps Geolocation API.
// Nearby WiFi access points and the serving cell are sent when they can be
// read; otherwise the API falls back to the IP address.
func (g *GoogleGeolocationProvider) GetLocation(ctx context.Context) (Location, error) {
	ctx, cancel := context.WithTimeout(ctx, geolocateTimeout)
	defer cancel()

	wifiAPs, err := getWiFiAccessPoints(ctx, g.run)
	if err != nil {
		g.Logger.Debug().Err(err).Msg("WiFi access points unavailable")
	}

	cellTowers, err := getCellTowers(ctx, g.run, g.modemIndex)
	if err != nil {
		g.Logger.Debug().Err(err).Msg("Cell towers unavailable")
	}

	// Prepare the geolocation request with available data
	req := &maps.GeolocationRequest{
		ConsiderIP:       true,
		WiFiAccessPoints: wifiAPs,
		CellTowers:       cellTowers,
	}

	resp, err := g.client.Geolocate(ctx, req) // Send the geolocation request
	if err != nil {
		return Location{}, err
	}

	return Location{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
	}, nil
}
