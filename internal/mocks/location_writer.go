package mocks

import (
	"context"

	"github.com/benmeehan/geotrack/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockLocationWriter is a mock implementation of the ingest.LocationWriter interface
type MockLocationWriter struct {
	mock.Mock
}

func (m *MockLocationWriter) InsertLocation(ctx context.Context, id models.Identity, loc *models.Location) error {
	args := m.Called(ctx, id, loc)
	return args.Error(0)
}

// MockIngester is a mock implementation of the api.Ingester interface
type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) Ingest(ctx context.Context, id models.Identity, msg models.Message) error {
	args := m.Called(ctx, id, msg)
	return args.Error(0)
}
