package models_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/benmeehan/geotrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation_Unmarshal(t *testing.T) {
	// Setup
	payload := `{"_type":"location","tid":"al","tst":1739947614,"lat":47.37,"lon":8.54,"vel":12,"alt":410,"acc":5,"vac":3,"cog":270,"batt":80,"conn":"w"}`
	var loc models.Location

	// Execute
	err := json.Unmarshal([]byte(payload), &loc)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "al", loc.TrackerID)
	assert.Equal(t, int64(1739947614), loc.Timestamp)
	assert.Equal(t, 47.37, loc.Latitude)
	assert.Equal(t, 8.54, loc.Longitude)
	assert.Equal(t, 12, *loc.Velocity)
	assert.Equal(t, 410, *loc.Altitude)
	assert.Equal(t, 5, *loc.Accuracy)
	assert.Equal(t, 3, *loc.VerticalAccuracy)
	assert.Equal(t, 270, *loc.Course)
	assert.Equal(t, models.Annotations{
		{Key: "batt", Value: models.IntValue(80)},
		{Key: "conn", Value: models.StringValue("w")},
	}, loc.Annotations)
}

func TestLocation_UnmarshalOptionalFields(t *testing.T) {
	var loc models.Location

	require.NoError(t, json.Unmarshal([]byte(`{"tst":1,"lat":1.5,"lon":2,"vel":null,"tid":null,"acc":7.6}`), &loc))

	assert.Empty(t, loc.TrackerID)
	assert.Nil(t, loc.Velocity)
	assert.Nil(t, loc.Altitude)
	assert.Equal(t, 8, *loc.Accuracy)
	assert.Empty(t, loc.Annotations)
}

func TestLocation_UnmarshalErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		message string
	}{
		{"missing tst", `{"lat":1,"lon":2}`, "tst"},
		{"missing lat", `{"tst":1,"lon":2}`, "lat"},
		{"missing lon", `{"tst":1,"lat":1}`, "lon"},
		{"null tst", `{"tst":null,"lat":1,"lon":2}`, "tst is not a number"},
		{"string lat", `{"tst":1,"lat":"47.3","lon":2}`, "lat is not a number"},
		{"bool lon", `{"tst":1,"lat":1,"lon":true}`, "lon is not a number"},
		{"string vel", `{"tst":1,"lat":1,"lon":2,"vel":"fast"}`, "vel is not a number"},
		{"numeric tid", `{"tst":1,"lat":1,"lon":2,"tid":12}`, "tid is not a string"},
		{"not an object", `[1,2,3]`, "expected JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loc models.Location
			err := json.Unmarshal([]byte(tt.payload), &loc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLocation_UnmarshalOutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"vel above smallint", `{"tst":1,"lat":1,"lon":2,"vel":40000}`},
		{"vel overflowing int64", `{"tst":1,"lat":1,"lon":2,"vel":1e30}`},
		{"alt below smallint", `{"tst":1,"lat":1,"lon":2,"alt":-32769}`},
		{"vac above smallint", `{"tst":1,"lat":1,"lon":2,"vac":32768}`},
		{"cog above smallint", `{"tst":1,"lat":1,"lon":2,"cog":99999}`},
		{"acc above integer", `{"tst":1,"lat":1,"lon":2,"acc":2147483648}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loc models.Location
			err := json.Unmarshal([]byte(tt.payload), &loc)
			require.Error(t, err)
			if !errors.Is(err, models.ErrOutOfRange) {
				assert.Contains(t, err.Error(), "is not a number")
			}
		})
	}

	var loc models.Location
	require.NoError(t, json.Unmarshal([]byte(`{"tst":1,"lat":1,"lon":2,"vel":32767,"alt":-32768,"acc":2147483647}`), &loc))
	assert.Equal(t, 32767, *loc.Velocity)
	assert.Equal(t, -32768, *loc.Altitude)
	assert.Equal(t, 2147483647, *loc.Accuracy)
}

func TestLocation_Marshal(t *testing.T) {
	// Setup
	vel, acc := 12, 5
	loc := models.Location{
		TrackerID: "al",
		Timestamp: 1739947614,
		Velocity:  &vel,
		Latitude:  47.37,
		Longitude: 8.54,
		Accuracy:  &acc,
		Annotations: models.Annotations{
			{Key: "batt", Value: models.IntValue(80)},
		},
	}

	// Execute
	out, err := json.Marshal(loc)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, `{"tid":"al","tst":1739947614,"vel":12,"lat":47.37,"lon":8.54,"acc":5,"batt":80}`, string(out))
}
