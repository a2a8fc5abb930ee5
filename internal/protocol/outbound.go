package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/luciancaetano/tablerelay"
)

// Token is the wire form of a shared token.
type Token struct {
	ID TokenID `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// InitState carries the full token table to a (re)connected client.
type InitState struct {
	Type     string           `json:"type"`
	ClientID string           `json:"client_id"`
	Tokens   map[string]Token `json:"tokens"`
}

// UserEvent announces a room membership change. Type is user_joined or user_left.
type UserEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// RoomJoined confirms a join to the mover.
type RoomJoined struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// Bare is a frame with no fields besides its type (room_left, pong).
type Bare struct {
	Type string `json:"type"`
}

// UpdateToken relays a token move.
type UpdateToken struct {
	Type     string  `json:"type"`
	SenderID string  `json:"sender_id"`
	ID       TokenID `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Relayed carries sender-stamped text (dice_roll, chat_message, broadcast).
type Relayed struct {
	Type     string `json:"type"`
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
}

func NewInitState(clientID string, tokens map[string]Token) InitState {
	return InitState{Type: tablerelay.KindInitState, ClientID: clientID, Tokens: tokens}
}

func NewUserJoined(userID string) UserEvent {
	return UserEvent{Type: tablerelay.KindUserJoined, UserID: userID}
}

func NewUserLeft(userID string) UserEvent {
	return UserEvent{Type: tablerelay.KindUserLeft, UserID: userID}
}

func NewRoomJoined(roomID string) RoomJoined {
	return RoomJoined{Type: tablerelay.KindRoomJoined, RoomID: roomID}
}

func NewRoomLeft() Bare {
	return Bare{Type: tablerelay.KindRoomLeft}
}

func NewPong() Bare {
	return Bare{Type: tablerelay.KindPong}
}

func NewUpdateToken(senderID string, m MoveToken) UpdateToken {
	return UpdateToken{Type: tablerelay.KindUpdateToken, SenderID: senderID, ID: m.ID, X: m.X, Y: m.Y}
}

// NewRelayed stamps text from senderID with kind, which must be one of
// dice_roll, chat_message or broadcast.
func NewRelayed(kind, senderID, text string) Relayed {
	return Relayed{Type: kind, SenderID: senderID, Message: text}
}

// Encode serializes an outbound frame.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	if len(data) > MaxPayloadSize {
		return nil, fmt.Errorf("payload size %d exceeds maximum %d bytes", len(data), MaxPayloadSize)
	}
	return data, nil
}
