package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType is the OwnTracks _type discriminator.
type MessageType string

const (
	MessageTypeBeacon        MessageType = "beacon"
	MessageTypeCard          MessageType = "card"
	MessageTypeCmd           MessageType = "cmd"
	MessageTypeConfiguration MessageType = "configuration"
	MessageTypeEncrypted     MessageType = "encrypted"
	MessageTypeLocation      MessageType = "location"
	MessageTypeLwt           MessageType = "lwt"
	MessageTypeRequest       MessageType = "request"
	MessageTypeStatus        MessageType = "status"
	MessageTypeSteps         MessageType = "steps"
	MessageTypeTransition    MessageType = "transition"
	MessageTypeWaypoint      MessageType = "waypoint"
	MessageTypeWaypoints     MessageType = "waypoints"
)

// ErrUnknownMessageType is returned when _type is missing or not an OwnTracks message kind.
var ErrUnknownMessageType = errors.New("unknown message type")

var knownMessageTypes = map[MessageType]struct{}{
	MessageTypeBeacon: {}, MessageTypeCard: {}, MessageTypeCmd: {}, MessageTypeConfiguration: {},
	MessageTypeEncrypted: {}, MessageTypeLocation: {}, MessageTypeLwt: {}, MessageTypeRequest: {},
	MessageTypeStatus: {}, MessageTypeSteps: {}, MessageTypeTransition: {}, MessageTypeWaypoint: {},
	MessageTypeWaypoints: {},
}

// Valid reports whether t is one of the OwnTracks message kinds.
func (t MessageType) Valid() bool {
	_, ok := knownMessageTypes[t]
	return ok
}

// Message is an OwnTracks message. Only location messages are decoded into
// a typed payload; every other kind keeps its raw bytes so it re-encodes unchanged.
type Message struct {
	Type     MessageType
	Location *Location
	Raw      json.RawMessage
}

// UnmarshalJSON dispatches on the _type member.
func (m *Message) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	msgType := MessageType(head.Type)
	if !msgType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, head.Type)
	}

	msg := Message{Type: msgType, Raw: append(json.RawMessage(nil), data...)}
	if msgType == MessageTypeLocation {
		var loc Location
		if err := json.Unmarshal(data, &loc); err != nil {
			return err
		}
		msg.Location = &loc
	}

	*m = msg
	return nil
}

// MarshalJSON re-encodes the message with its _type member first.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.Type == MessageTypeLocation && m.Location != nil {
		fields := append(Annotations{{Key: "_type", Value: StringValue(string(m.Type))}}, m.Location.fields()...)
		return fields.MarshalJSON()
	}
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	return Annotations{{Key: "_type", Value: StringValue(string(m.Type))}}.MarshalJSON()
}
