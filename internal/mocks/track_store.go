package mocks

import (
	"context"

	"github.com/benmeehan/geotrack/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockTrackStore is a mock implementation of the api.TrackStore interface
type MockTrackStore struct {
	mock.Mock
}

func (m *MockTrackStore) FetchRawPoints(ctx context.Context, id models.Identity, date string) ([]models.PointRow, error) {
	args := m.Called(ctx, id, date)
	rows, _ := args.Get(0).([]models.PointRow)
	return rows, args.Error(1)
}

func (m *MockTrackStore) FetchRawPointsOfDay(ctx context.Context, date string) ([]models.PointRow, error) {
	args := m.Called(ctx, date)
	rows, _ := args.Get(0).([]models.PointRow)
	return rows, args.Error(1)
}

func (m *MockTrackStore) FetchCurrentPositions(ctx context.Context, date string) ([]models.DeviceState, error) {
	args := m.Called(ctx, date)
	states, _ := args.Get(0).([]models.DeviceState)
	return states, args.Error(1)
}

func (m *MockTrackStore) FetchIdentitiesActive(ctx context.Context, date string) ([]models.ActiveIdentity, error) {
	args := m.Called(ctx, date)
	identities, _ := args.Get(0).([]models.ActiveIdentity)
	return identities, args.Error(1)
}
