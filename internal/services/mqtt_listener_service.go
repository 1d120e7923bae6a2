package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/geotrack/internal/constants"
	"github.com/benmeehan/geotrack/internal/ingest"
	"github.com/benmeehan/geotrack/internal/models"
	"github.com/benmeehan/geotrack/internal/utils"
	"github.com/benmeehan/geotrack/pkg/mqtt"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTListenerService subscribes to the OwnTracks topics and stores every
// location report it receives.
type MQTTListenerService struct {
	// Configuration fields
	topic   string
	qos     int
	workers int
	backoff time.Duration

	// Dependencies
	client   mqtt.MQTTClient
	ingester MessageIngester
	Logger   zerolog.Logger

	// Internal state management
	mu         sync.Mutex
	pool       *utils.WorkerPool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	running    bool
	subscribed bool
}

// NewMQTTListenerService creates a new MQTTListenerService.
func NewMQTTListenerService(topic string, qos, workers int, client mqtt.MQTTClient, ingester MessageIngester,
	logger zerolog.Logger) *MQTTListenerService {
	return &MQTTListenerService{
		topic:    topic,
		qos:      qos,
		workers:  workers,
		backoff:  constants.MQTTErrorBackoff,
		client:   client,
		ingester: ingester,
		Logger:   logger,
	}
}

// Start connects and subscribes in the background, retrying until it
// succeeds or the service is stopped.
func (s *MQTTListenerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.Logger.Warn().Msg("MQTTListenerService is already running")
		return errors.New("mqtt listener service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.pool = utils.NewWorkerPool(s.workers, s.Logger)
	s.subscribed = false
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.connect()
	}()

	s.Logger.Info().
		Str("topic", s.topic).
		Int("qos", s.qos).
		Int("workers", s.workers).
		Msg("MQTTListenerService started")
	return nil
}

func (s *MQTTListenerService) connect() {
	for {
		err := s.await(s.client.Connect())
		if err == nil {
			err = s.await(s.client.Subscribe(s.topic, byte(s.qos), s.handleMessage))
			if err == nil {
				s.mu.Lock()
				s.subscribed = true
				s.mu.Unlock()
				s.Logger.Info().Str("topic", s.topic).Msg("Subscribed to OwnTracks topic")
				return
			}
		}
		if errors.Is(err, context.Canceled) {
			return
		}

		s.Logger.Error().Err(err).Dur("backoff", s.backoff).Msg("Failed to subscribe, retrying")
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.backoff):
		}
	}
}

// await waits for token unless the service is stopped first.
func (s *MQTTListenerService) await(token MQTT.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// handleMessage runs on the paho client goroutine and hands the message to
// the worker pool.
func (s *MQTTListenerService) handleMessage(_ MQTT.Client, msg MQTT.Message) {
	topic, payload := msg.Topic(), msg.Payload()
	err := s.pool.Submit(func() {
		s.processMessage(topic, payload)
	})
	if err != nil {
		s.Logger.Debug().Err(err).Str("topic", topic).Msg("Dropping message received during shutdown")
	}
}

func (s *MQTTListenerService) processMessage(topic string, payload []byte) {
	msg, err := ingest.DecodeMessage(payload)
	if err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("Ignoring message")
		return
	}

	// owntracks/# also carries the event, info and cmd sub-topics.
	id, err := ingest.IdentityFromTopic(topic)
	if err != nil {
		level := zerolog.DebugLevel
		if msg.Type == models.MessageTypeLocation {
			level = zerolog.WarnLevel
		}
		s.Logger.WithLevel(level).Err(err).Str("type", string(msg.Type)).Msg("Ignoring message")
		return
	}

	// Queued messages are still stored after Stop cancels the service context.
	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := s.ingester.Ingest(ctx, id, msg); err != nil {
		s.Logger.Error().
			Err(err).
			Str("topic", topic).
			Msg("Failed to ingest message")
		return
	}
	s.Logger.Debug().Str("topic", topic).Msg("Message ingested")
}

// Stop unsubscribes, disconnects and waits for queued messages to be stored.
func (s *MQTTListenerService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.Logger.Warn().Msg("MQTTListenerService is not running")
		return errors.New("mqtt listener service is not running")
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribed {
		token := s.client.Unsubscribe(s.topic)
		if !token.WaitTimeout(constants.ShutdownTimeout) {
			s.Logger.Warn().Msg("Timed out unsubscribing")
		} else if err := token.Error(); err != nil {
			s.Logger.Warn().Err(err).Msg("Failed to unsubscribe")
		}
	}
	s.client.Disconnect(250)
	s.pool.Shutdown()

	s.running = false
	s.Logger.Info().Msg("MQTTListenerService stopped")
	return nil
}
