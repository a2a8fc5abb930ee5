// Package protocol implements the JSON wire format exchanged with table clients.
//
// Every frame is a UTF-8 JSON object tagged by a string "type" field. Inbound
// frames decode into the closed Message sum type; outbound frames are built with
// the New* constructors and serialized with Encode.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/luciancaetano/tablerelay"
)

// MaxPayloadSize bounds a single frame in either direction.
const MaxPayloadSize = 1 << 20

// ErrMalformed reports a frame that is not a JSON object.
var ErrMalformed = errors.New(tablerelay.ErrInvalidMessageFormat)

// ValidationError reports a recognized kind whose fields are missing or of the
// wrong type.
type ValidationError struct {
	Kind   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: field %q %s", e.Kind, e.Field, e.Reason)
}

// Message is an inbound frame. The concrete types below are the only
// implementations.
type Message interface {
	Kind() string
	isMessage()
}

// Reconnect asks to resume a previous identity. Identity is empty when the
// client did not present one.
type Reconnect struct {
	Identity string
}

// JoinRoom moves the sender into RoomID.
type JoinRoom struct {
	RoomID string
}

// LeaveRoom removes the sender from its current room.
type LeaveRoom struct{}

// MoveToken sets a token's coordinates.
type MoveToken struct {
	ID TokenID
	X  float64
	Y  float64
}

// DiceRoll carries a dice result description.
type DiceRoll struct {
	Text string
}

// ChatMessage carries chat text.
type ChatMessage struct {
	Text string
}

// Broadcast carries free-form text for the room.
type Broadcast struct {
	Text string
}

// Ping asks for a pong.
type Ping struct{}

// Unknown is any frame whose type is not recognized. Type holds the raw value.
type Unknown struct {
	Type string
}

func (Reconnect) Kind() string   { return tablerelay.KindReconnect }
func (JoinRoom) Kind() string    { return tablerelay.KindJoinRoom }
func (LeaveRoom) Kind() string   { return tablerelay.KindLeaveRoom }
func (MoveToken) Kind() string   { return tablerelay.KindMoveToken }
func (DiceRoll) Kind() string    { return tablerelay.KindDiceRoll }
func (ChatMessage) Kind() string { return tablerelay.KindChatMessage }
func (Broadcast) Kind() string   { return tablerelay.KindBroadcast }
func (Ping) Kind() string        { return tablerelay.KindPing }
func (u Unknown) Kind() string   { return u.Type }

func (Reconnect) isMessage()   {}
func (JoinRoom) isMessage()    {}
func (LeaveRoom) isMessage()   {}
func (MoveToken) isMessage()   {}
func (DiceRoll) isMessage()    {}
func (ChatMessage) isMessage() {}
func (Broadcast) isMessage()   {}
func (Ping) isMessage()        {}
func (Unknown) isMessage()     {}

// envelope holds the top-level fields of a frame, left raw so each kind can
// check its own types. Keys match exactly and a duplicated key keeps its last
// value.
type envelope map[string]json.RawMessage

// Decode parses one inbound frame.
//
// It returns ErrMalformed (wrapped) when data is not a JSON object and a
// *ValidationError when a recognized kind has bad fields. Unrecognized kinds are
// not an error; they decode to Unknown.
func Decode(data []byte) (Message, error) {
	if len(data) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrMalformed, len(data), MaxPayloadSize)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	kind, ok := asString(env["type"])
	if !ok {
		return Unknown{Type: string(env["type"])}, nil
	}

	switch kind {
	case tablerelay.KindReconnect, tablerelay.KindReconnectRequest:
		identity, _ := asString(env["identity"])
		if identity == "" {
			identity, _ = asString(env["client_id"])
		}
		return Reconnect{Identity: identity}, nil

	case tablerelay.KindJoinRoom:
		roomID, ok := asString(env["roomId"])
		if !ok || roomID == "" {
			return nil, &ValidationError{Kind: kind, Field: "roomId", Reason: "must be a non-empty string"}
		}
		return JoinRoom{RoomID: roomID}, nil

	case tablerelay.KindLeaveRoom:
		return LeaveRoom{}, nil

	case tablerelay.KindMoveToken:
		id, ok := parseTokenID(env["id"])
		if !ok {
			return nil, &ValidationError{Kind: kind, Field: "id", Reason: "must be a string or a number"}
		}
		x, ok := asNumber(env["x"])
		if !ok {
			return nil, &ValidationError{Kind: kind, Field: "x", Reason: "must be a number"}
		}
		y, ok := asNumber(env["y"])
		if !ok {
			return nil, &ValidationError{Kind: kind, Field: "y", Reason: "must be a number"}
		}
		return MoveToken{ID: id, X: x, Y: y}, nil

	case tablerelay.KindDiceRoll, tablerelay.KindChatMessage, tablerelay.KindBroadcast:
		text, ok := asString(env["message"])
		if !ok {
			return nil, &ValidationError{Kind: kind, Field: "message", Reason: "must be a string"}
		}
		switch kind {
		case tablerelay.KindDiceRoll:
			return DiceRoll{Text: text}, nil
		case tablerelay.KindChatMessage:
			return ChatMessage{Text: text}, nil
		default:
			return Broadcast{Text: text}, nil
		}

	case tablerelay.KindPing:
		return Ping{}, nil

	default:
		return Unknown{Type: kind}, nil
	}
}

func asString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func asNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

// TokenID identifies a token. Clients may send it as a JSON string or number;
// both spellings of the same value address the same token ("0" and 0), and the
// submitted spelling is preserved when the id is echoed back.
type TokenID struct {
	key string
	raw json.RawMessage
}

// NumericTokenID returns the id n, spelled as a JSON number.
func NumericTokenID(n int) TokenID {
	s := strconv.Itoa(n)
	return TokenID{key: s, raw: json.RawMessage(s)}
}

// StringTokenID returns the id s, spelled as a JSON string.
func StringTokenID(s string) TokenID {
	raw, _ := json.Marshal(s)
	return TokenID{key: s, raw: raw}
}

// Key is the canonical lookup key of the id.
func (id TokenID) Key() string {
	return id.key
}

// MarshalJSON emits the id as it was spelled on input.
func (id TokenID) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

func parseTokenID(raw json.RawMessage) (TokenID, bool) {
	if s, ok := asString(raw); ok {
		return TokenID{key: s, raw: raw}, true
	}
	if f, ok := asNumber(raw); ok {
		return TokenID{key: strconv.FormatFloat(f, 'f', -1, 64), raw: raw}, true
	}
	return TokenID{}, false
}
