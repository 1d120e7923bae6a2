package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/benmeehan/geotrack/internal/export"
	"github.com/benmeehan/geotrack/internal/ingest"
	"github.com/benmeehan/geotrack/internal/models"
	"github.com/benmeehan/geotrack/internal/track"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrMissingIdentity is returned when a pushed message names no user and device.
var ErrMissingIdentity = errors.New("missing user or device")

// TrackStore reads stored fixes.
type TrackStore interface {
	FetchRawPoints(ctx context.Context, id models.Identity, date string) ([]models.PointRow, error)
	FetchRawPointsOfDay(ctx context.Context, date string) ([]models.PointRow, error)
	FetchIdentitiesActive(ctx context.Context, date string) ([]models.ActiveIdentity, error)
	FetchCurrentPositions(ctx context.Context, date string) ([]models.DeviceState, error)
}

// Ingester stores incoming OwnTracks messages.
type Ingester interface {
	Ingest(ctx context.Context, id models.Identity, msg models.Message) error
}

// Handler serves the OwnTracks push endpoint and the track exports.
type Handler struct {
	store         TrackStore
	ingester      Ingester
	reconstructor *track.Reconstructor
	exporter      *export.Exporter
	Logger        zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(store TrackStore, ingester Ingester, opts track.Options, logger zerolog.Logger) *Handler {
	opts.Logger = logger
	return &Handler{
		store:         store,
		ingester:      ingester,
		reconstructor: track.NewReconstructor(opts),
		exporter:      export.NewExporter(opts),
		Logger:        logger,
	}
}

type trackQuery struct {
	Date   string `form:"date" binding:"required,datetime=2006-01-02"`
	User   string `form:"user" binding:"required_with=Device"`
	Device string `form:"device" binding:"required_with=User"`
}

type positionsQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

type ownTracksQuery struct {
	User   string `form:"u"`
	Device string `form:"d"`
}

// PostOwnTracks accepts a message pushed by the OwnTracks app in HTTP mode.
// The identity comes from the u and d query parameters, the X-Limit-U and
// X-Limit-D headers, or the topic member of the message, in that order.
func (h *Handler) PostOwnTracks(c *gin.Context) {
	var q ownTracksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	msg, err := ingest.DecodeMessage(body)
	if err != nil {
		badRequest(c, err)
		return
	}

	id, err := resolveIdentity(c, q, msg)
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := h.ingester.Ingest(c.Request.Context(), id, msg); err != nil {
		internalError(c, err)
		return
	}

	// OwnTracks expects a (possibly empty) list of messages to deliver back.
	c.JSON(http.StatusOK, []models.Message{})
}

func resolveIdentity(c *gin.Context, q ownTracksQuery, msg models.Message) (models.Identity, error) {
	id := models.Identity{User: q.User, Device: q.Device}
	if id.User == "" {
		id.User = c.GetHeader("X-Limit-U")
	}
	if id.Device == "" {
		id.Device = c.GetHeader("X-Limit-D")
	}
	if (id.User == "" || id.Device == "") && msg.Location != nil {
		if topic, ok := msg.Location.Annotations.Get("topic"); ok && topic.Kind == models.KindString {
			if fromTopic, err := ingest.IdentityFromTopic(topic.String); err == nil {
				if id.User == "" {
					id.User = fromTopic.User
				}
				if id.Device == "" {
					id.Device = fromTopic.Device
				}
			}
		}
	}
	if id.User == "" || id.Device == "" {
		return id, ErrMissingIdentity
	}
	return id, nil
}

// GetTrackInfos lists the tracks of a day, latest ending first.
func (h *Handler) GetTrackInfos(c *gin.Context) {
	tracks, q, ok := h.loadTracks(c)
	if !ok {
		return
	}
	infos := h.reconstructor.SummarizeAll(tracks)
	h.Logger.Debug().Str("date", q.Date).Int("tracks", len(infos)).Msg("Track infos")
	c.JSON(http.StatusOK, infos)
}

// GetSegments serves the tracks of a day as two-point line segments.
func (h *Handler) GetSegments(c *gin.Context) {
	h.serveTracks(c, h.exporter.Segments)
}

// GetLines serves the tracks of a day as one line each.
func (h *Handler) GetLines(c *gin.Context) {
	h.serveTracks(c, h.exporter.Lines)
}

// GetPoints serves the fixes of a day with track statistics.
func (h *Handler) GetPoints(c *gin.Context) {
	h.serveTracks(c, h.exporter.Points)
}

// GetGPX serves the tracks of a day as GPX.
func (h *Handler) GetGPX(c *gin.Context) {
	h.serveTracks(c, h.exporter.GPX)
}

// GetIdentities lists the identities with fixes on a day.
func (h *Handler) GetIdentities(c *gin.Context) {
	var q struct {
		Date string `form:"date" binding:"required,datetime=2006-01-02"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	identities, err := h.store.FetchIdentitiesActive(c.Request.Context(), q.Date)
	if err != nil {
		internalError(c, err)
		return
	}
	if identities == nil {
		identities = []models.ActiveIdentity{}
	}
	c.JSON(http.StatusOK, identities)
}

// GetPositions serves the latest fix of every device.
func (h *Handler) GetPositions(c *gin.Context) {
	var q positionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	states, err := h.store.FetchCurrentPositions(c.Request.Context(), q.Date)
	if err != nil {
		internalError(c, err)
		return
	}
	doc, err := h.exporter.Positions(states)
	if err != nil {
		internalError(c, err)
		return
	}
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

func (h *Handler) serveTracks(c *gin.Context, render func([]models.Track) (export.Document, error)) {
	tracks, _, ok := h.loadTracks(c)
	if !ok {
		return
	}
	doc, err := render(tracks)
	if err != nil {
		internalError(c, err)
		return
	}
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

// loadTracks reads and reconstructs the tracks selected by the query. It
// writes the error response itself and reports false on failure.
func (h *Handler) loadTracks(c *gin.Context) ([]models.Track, trackQuery, bool) {
	var q trackQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return nil, q, false
	}

	var (
		rows []models.PointRow
		err  error
	)
	if q.User != "" {
		rows, err = h.store.FetchRawPoints(c.Request.Context(), models.Identity{User: q.User, Device: q.Device}, q.Date)
	} else {
		rows, err = h.store.FetchRawPointsOfDay(c.Request.Context(), q.Date)
	}
	if err != nil {
		internalError(c, err)
		return nil, q, false
	}

	return h.reconstructor.Reconstruct(q.Date, rows), q, true
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
