package models_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/benmeehan/geotrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_NonLocationRoundTrip(t *testing.T) {
	tests := []struct {
		msgType models.MessageType
		payload string
	}{
		{models.MessageTypeBeacon, `{"_type":"beacon","uuid":"CA271EAE-5FA8-4E80-8F08-2A302A95A959","major":1,"minor":5,"tst":1739947614,"acc":2,"rssi":-71,"prox":2}`},
		{models.MessageTypeCard, `{"_type":"card","name":"Alice","face":"iVBORw0KGgo=","tid":"al"}`},
		{models.MessageTypeCmd, `{"_type":"cmd","action":"reportLocation"}`},
		{models.MessageTypeConfiguration, `{"_type":"configuration","mode":0,"locatorInterval":180,"pubExtendedData":true}`},
		{models.MessageTypeEncrypted, `{"_type":"encrypted","data":"bm90IHJlYWxseSBlbmNyeXB0ZWQ="}`},
		{models.MessageTypeLwt, `{"_type":"lwt","tst":1739947614}`},
		{models.MessageTypeRequest, `{"_type":"request","request":"tour","tour":{"label":"Trip","from":"2025-02-19T00:00:00","to":"2025-02-20T00:00:00"}}`},
		{models.MessageTypeStatus, `{"_type":"status","android":{"hib":1,"bo":1,"loc":0}}`},
		{models.MessageTypeSteps, `{"_type":"steps","tst":1739947614,"steps":4231,"from":1739900000,"to":1739947614}`},
		{models.MessageTypeTransition, `{"_type":"transition","wtst":1739900000,"lat":47.37,"lon":8.54,"tst":1739947614,"acc":10,"tid":"al","event":"enter","desc":"Home","t":"c"}`},
		{models.MessageTypeWaypoint, `{"_type":"waypoint","desc":"Home","lat":47.37,"lon":8.54,"rad":50,"tst":1739900000}`},
		{models.MessageTypeWaypoints, `{"_type":"waypoints","waypoints":[{"_type":"waypoint","desc":"Work","lat":47.4,"lon":8.5,"rad":100,"tst":1739900000}]}`},
	}

	for _, tt := range tests {
		t.Run(string(tt.msgType), func(t *testing.T) {
			// Setup
			var msg models.Message

			// Execute
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &msg))
			out, err := json.Marshal(msg)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.msgType, msg.Type)
			assert.Nil(t, msg.Location)
			assert.Equal(t, tt.payload, string(out))
		})
	}
}

func TestMessage_Location(t *testing.T) {
	var msg models.Message

	require.NoError(t, json.Unmarshal([]byte(`{"lat":47.37,"_type":"location","tst":1739947614,"lon":8.54,"batt":80}`), &msg))
	out, err := json.Marshal(msg)

	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeLocation, msg.Type)
	require.NotNil(t, msg.Location)
	assert.Equal(t, `{"_type":"location","tst":1739947614,"lat":47.37,"lon":8.54,"batt":80}`, string(out))
}

func TestMessage_UnknownType(t *testing.T) {
	for _, payload := range []string{`{"_type":"bogus"}`, `{"lat":1}`, `{"_type":""}`} {
		var msg models.Message
		err := json.Unmarshal([]byte(payload), &msg)
		assert.True(t, errors.Is(err, models.ErrUnknownMessageType), payload)
	}
}

func TestMessage_InvalidLocation(t *testing.T) {
	var msg models.Message

	err := json.Unmarshal([]byte(`{"_type":"location","tst":1,"lat":1,"lon":2,"vel":40000}`), &msg)

	assert.True(t, errors.Is(err, models.ErrOutOfRange))
}
