package track_test

import (
	"testing"
	"time"

	"github.com/benmeehan/geotrack/internal/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	want := time.Date(2025, 2, 19, 6, 46, 54, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		loc   *time.Location
		want  time.Time
	}{
		{"stored form", "2025-02-19 06:46:54+00", nil, want},
		{"fractional seconds", "2025-02-19 06:46:54.25+00", nil, want.Add(250 * time.Millisecond)},
		{"offset with minutes", "2025-02-19 07:46:54+0100", nil, want},
		{"offset with colon", "2025-02-19 07:46:54+01:00", nil, want},
		{"rfc3339", "2025-02-19T06:46:54Z", nil, want},
		{"offset wins over location", "2025-02-19 06:46:54+00", cet, want},
		{"naive in utc", "2025-02-19 06:46:54", nil, want},
		{"naive in location", "2025-02-19 07:46:54", cet, want},
		{"naive with T", "2025-02-19T07:46:54", cet, want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := track.ParseTimestamp(tt.input, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, input := range []string{"", "yesterday", "2025-02-19", "19.02.2025 06:46"} {
		_, err := track.ParseTimestamp(input, time.UTC)
		assert.Error(t, err, input)
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2025, 2, 19, 7, 46, 54, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "2025-02-19 06:46:54+0000", track.FormatTimestamp(ts))
}
