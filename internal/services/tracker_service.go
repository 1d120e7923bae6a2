package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/benmeehan/geotrack/internal/models"
	"github.com/benmeehan/geotrack/pkg/location"
	"github.com/rs/zerolog"
)

// MessageIngester stores decoded OwnTracks messages.
type MessageIngester interface {
	Ingest(ctx context.Context, id models.Identity, msg models.Message) error
}

// TrackerService periodically reads the position of the host from a local
// provider and stores it like a fix reported by an OwnTracks device.
type TrackerService struct {
	// Configuration fields
	identity  models.Identity
	trackerID string
	interval  time.Duration

	// Dependencies
	provider location.Provider
	ingester MessageIngester
	now      func() time.Time
	Logger   zerolog.Logger

	// Internal state management
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewTrackerService creates a new TrackerService instance with the provided configuration.
func NewTrackerService(identity models.Identity, trackerID string, interval time.Duration, provider location.Provider,
	ingester MessageIngester, logger zerolog.Logger) *TrackerService {
	return &TrackerService{
		identity:  identity,
		trackerID: trackerID,
		interval:  interval,
		provider:  provider,
		ingester:  ingester,
		now:       time.Now,
		Logger:    logger,
	}
}

// Start initiates the TrackerService, periodically recording the current location.
func (t *TrackerService) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		t.Logger.Warn().Msg("TrackerService is already running")
		return errors.New("tracker service is already running")
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.running = true

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := t.recordCurrentLocation(t.ctx); err != nil && !errors.Is(err, context.Canceled) {
					t.Logger.Error().
						Err(err).
						Msg("Failed to record current location")
				}
			case <-t.ctx.Done():
				t.Logger.Info().Msg("TrackerService is stopping")
				return
			}
		}
	}()

	t.Logger.Info().
		Str("user", t.identity.User).
		Str("device", t.identity.Device).
		Dur("interval", t.interval).
		Msg("TrackerService started")
	return nil
}

// Stop gracefully stops the TrackerService, ensuring all goroutines are terminated.
func (t *TrackerService) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		t.Logger.Warn().Msg("TrackerService is not running")
		return errors.New("tracker service is not running")
	}

	// Signal cancellation and wait for the goroutine to exit
	t.cancel()
	t.wg.Wait()

	t.running = false
	t.Logger.Info().Msg("TrackerService stopped")
	return nil
}

// recordCurrentLocation fetches the current location and ingests it.
func (t *TrackerService) recordCurrentLocation(ctx context.Context) error {
	fix, err := t.provider.GetLocation(ctx)
	if err != nil {
		return err
	}

	loc := &models.Location{
		TrackerID: t.trackerID,
		Timestamp: t.now().Unix(),
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Velocity:  roundPtr(fix.Speed),
		Altitude:  roundPtr(fix.Altitude),
		Course:    roundPtr(fix.Course),
		// OwnTracks trigger "t": timer based report.
		Annotations: models.Annotations{{Key: "t", Value: models.StringValue("t")}},
	}
	if fix.Accuracy > 0 {
		accuracy := int(math.Round(fix.Accuracy))
		loc.Accuracy = &accuracy
	}

	msg := models.Message{Type: models.MessageTypeLocation, Location: loc}
	if err := t.ingester.Ingest(ctx, t.identity, msg); err != nil {
		return err
	}

	t.Logger.Debug().
		Float64("lat", loc.Latitude).
		Float64("lon", loc.Longitude).
		Msg("Location recorded")
	return nil
}

func roundPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	r := int(math.Round(*v))
	return &r
}
