// Package bus defines the typed, reliable, per-sender-FIFO message
// exchange every component communicates over, and provides two
// interchangeable implementations: an in-process channel bus used by
// default, and a NATS JetStream-backed bus for pointing the simulator
// at a real broker. Both satisfy the same Bus interface so no consumer
// cares which is in use.
//
// A small Envelope carries identity, routing, and tracing metadata
// alongside each payload; every payload type is a tagged variant with
// exhaustive case analysis at the consumer rather than a discriminated
// union requiring manual placement.
package bus

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the payload carried by a Message.
type Kind string

const (
	KindPositionUpdate  Kind = "PositionUpdate"
	KindCommand         Kind = "Command"
	KindAlert           Kind = "Alert"
	KindStatusRequest   Kind = "StatusRequest"
	KindStatusResponse  Kind = "StatusResponse"
)

// Verb enumerates the recognized Command verbs.
type Verb string

const (
	VerbAltitude  Verb = "ALTITUDE"
	VerbSpeed     Verb = "SPEED"
	VerbHeading   Verb = "HEADING"
	VerbEmergency Verb = "EMERGENCY"
	VerbStatus    Verb = "STATUS"
)

// Envelope carries metadata common to every message: identity for
// tracing, the sender, and a creation timestamp. Every consumer must
// switch exhaustively over Message.Kind rather than probing payload
// shape.
type Envelope struct {
	MessageID string    `json:"message_id"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id,omitempty"`
	SpanID    string    `json:"span_id,omitempty"`
}

// NewEnvelope builds an Envelope with a generated ID stamped "now".
func NewEnvelope(source string) Envelope {
	return Envelope{
		MessageID: uuid.NewString(),
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// PositionUpdatePayload mirrors a published AircraftState snapshot.
type PositionUpdatePayload struct {
	Callsign    string  `json:"callsign"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	VZ          float64 `json:"vz"`
	Heading     float64 `json:"heading"`
	Status      string  `json:"status"`
	TimestampMs int64   `json:"timestamp_ms"`
	AlertLevel  int     `json:"alert_level"`
}

// CommandPayload is a controller command addressed at one aircraft.
type CommandPayload struct {
	TargetID string   `json:"target_id"`
	Verb     Verb     `json:"verb"`
	Params   []string `json:"params"`
}

// AlertPayload is a severity-leveled, human-readable notice.
type AlertPayload struct {
	Level       int    `json:"level"` // 0..3
	Description string `json:"description"`
	At          int64  `json:"at"`
}

// StatusRequestPayload asks for a status response, optionally scoped to
// one aircraft.
type StatusRequestPayload struct {
	TargetID string `json:"target_id,omitempty"`
}

// StatusResponsePayload answers a StatusRequestPayload.
type StatusResponsePayload struct {
	TargetID string `json:"target_id,omitempty"`
	Text     string `json:"text"`
	At       int64  `json:"at"`
}

// Message is the tagged-variant envelope placed on the bus. Exactly one
// of the payload fields is populated, selected by Kind; consumers should
// switch on Kind rather than probing for a non-nil payload.
type Message struct {
	Envelope Envelope `json:"envelope"`
	Kind     Kind     `json:"kind"`

	PositionUpdate *PositionUpdatePayload `json:"position_update,omitempty"`
	Command        *CommandPayload        `json:"command,omitempty"`
	Alert          *AlertPayload          `json:"alert,omitempty"`
	StatusRequest  *StatusRequestPayload  `json:"status_request,omitempty"`
	StatusResponse *StatusResponsePayload `json:"status_response,omitempty"`
}

// Subject returns the routing subject used by the NATS-backed
// implementation; the in-memory bus ignores it.
func (m Message) Subject() string {
	switch m.Kind {
	case KindPositionUpdate:
		return "aircraft.position"
	case KindCommand:
		return "command.issued"
	case KindAlert:
		return "alert.raised"
	case KindStatusRequest:
		return "status.request"
	case KindStatusResponse:
		return "status.response"
	default:
		return "unknown"
	}
}

func NewPositionUpdate(source string, p PositionUpdatePayload) Message {
	return Message{Envelope: NewEnvelope(source), Kind: KindPositionUpdate, PositionUpdate: &p}
}

func NewCommand(source string, c CommandPayload) Message {
	return Message{Envelope: NewEnvelope(source), Kind: KindCommand, Command: &c}
}

func NewAlert(source string, a AlertPayload) Message {
	return Message{Envelope: NewEnvelope(source), Kind: KindAlert, Alert: &a}
}

func NewStatusRequest(source string, s StatusRequestPayload) Message {
	return Message{Envelope: NewEnvelope(source), Kind: KindStatusRequest, StatusRequest: &s}
}

func NewStatusResponse(source string, s StatusResponsePayload) Message {
	return Message{Envelope: NewEnvelope(source), Kind: KindStatusResponse, StatusResponse: &s}
}
