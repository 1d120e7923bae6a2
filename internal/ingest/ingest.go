package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/benmeehan/geotrack/internal/models"
	"github.com/rs/zerolog"
)

// ErrUnexpectedTopic is returned for MQTT topics that are not owntracks/{user}/{device}.
var ErrUnexpectedTopic = errors.New("unexpected topic")

// LocationWriter persists location reports.
type LocationWriter interface {
	InsertLocation(ctx context.Context, id models.Identity, loc *models.Location) error
}

// Ingester stores the location reports of OwnTracks messages. All other
// message kinds are accepted and dropped.
type Ingester struct {
	writer LocationWriter
	Logger zerolog.Logger
}

// NewIngester creates an Ingester writing to writer.
func NewIngester(writer LocationWriter, logger zerolog.Logger) *Ingester {
	return &Ingester{
		writer: writer,
		Logger: logger,
	}
}

// Ingest stores msg under id if it is a location report.
func (i *Ingester) Ingest(ctx context.Context, id models.Identity, msg models.Message) error {
	if msg.Type != models.MessageTypeLocation || msg.Location == nil {
		i.Logger.Debug().
			Str("type", string(msg.Type)).
			Str("user", id.User).
			Str("device", id.Device).
			Msg("Ignoring message")
		return nil
	}

	if err := i.writer.InsertLocation(ctx, id, msg.Location); err != nil {
		return fmt.Errorf("failed to store location of %s/%s: %w", id.User, id.Device, err)
	}
	return nil
}

// DecodeMessage decodes an OwnTracks JSON payload.
func DecodeMessage(payload []byte) (models.Message, error) {
	var msg models.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return models.Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	return msg, nil
}

// IdentityFromTopic extracts user and device from an owntracks/{user}/{device} topic.
func IdentityFromTopic(topic string) (models.Identity, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return models.Identity{}, fmt.Errorf("%w: %q", ErrUnexpectedTopic, topic)
	}
	return models.Identity{User: parts[1], Device: parts[2]}, nil
}
