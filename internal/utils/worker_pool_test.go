package utils_test

import (
	"sync/atomic"
	"testing"

	"github.com/benmeehan/geotrack/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsAllJobs(t *testing.T) {
	// Setup
	pool := utils.NewWorkerPool(3, zerolog.Nop())
	var done atomic.Int64

	// Execute
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.Submit(func() { done.Add(1) }))
	}
	pool.Shutdown()

	// Assert
	assert.EqualValues(t, 100, done.Load())
}

func TestWorkerPool_SurvivesPanics(t *testing.T) {
	pool := utils.NewWorkerPool(1, zerolog.Nop())
	var done atomic.Int64

	require.NoError(t, pool.Submit(func() { panic("boom") }))
	require.NoError(t, pool.Submit(func() { done.Add(1) }))
	pool.Shutdown()

	assert.EqualValues(t, 1, done.Load())
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := utils.NewWorkerPool(2, zerolog.Nop())
	pool.Shutdown()

	err := pool.Submit(func() {})

	assert.ErrorIs(t, err, utils.ErrPoolClosed)
	pool.Shutdown()
}
