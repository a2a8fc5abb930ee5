package relay

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/luciancaetano/tablerelay"
	"github.com/luciancaetano/tablerelay/internal/protocol"
)

// handleMessage decodes one inbound frame and applies it. Bad frames are logged
// and dropped; nothing is reported back to the client.
func (r *Relay) handleMessage(client tablerelay.Client, payload []byte) {
	conn, ok := r.registry.Get(client.ID())
	if !ok {
		r.logger.Debug("message from unregistered transport", zap.String("conn_id", client.ID()))
		return
	}
	conn.alive = true

	msg, err := protocol.Decode(payload)
	if err != nil {
		var verr *protocol.ValidationError
		if errors.As(err, &verr) {
			r.logger.Warn("invalid message dropped",
				zap.String("client_id", conn.identity),
				zap.String("type", verr.Kind),
				zap.Error(err),
			)
			return
		}
		r.logger.Warn("failed to parse message",
			zap.String("client_id", conn.identity),
			zap.Error(err),
		)
		return
	}

	r.logger.Debug("message received",
		zap.String("client_id", conn.identity),
		zap.String("room_id", conn.roomID),
		zap.String("type", msg.Kind()),
	)

	switch m := msg.(type) {
	case protocol.Reconnect:
		r.reconnect(conn, m.Identity)
	case protocol.JoinRoom:
		r.moveToRoom(conn, m.RoomID)
	case protocol.LeaveRoom:
		r.leaveRoom(conn)
	case protocol.MoveToken:
		r.moveToken(conn, m)
	case protocol.DiceRoll:
		r.relayText(conn, tablerelay.KindDiceRoll, m.Text)
	case protocol.ChatMessage:
		r.relayText(conn, tablerelay.KindChatMessage, m.Text)
	case protocol.Broadcast:
		r.relayText(conn, tablerelay.KindBroadcast, m.Text)
	case protocol.Ping:
		r.send(conn, protocol.NewPong())
	case protocol.Unknown:
		r.logger.Warn("unknown message type received",
			zap.String("client_id", conn.identity),
			zap.String("type", m.Type),
		)
	default:
		panic(fmt.Sprintf("relay: unhandled message %T", msg))
	}
}

// moveToken updates the token table and relays the move to the rest of the
// room. The move is relayed even when the token does not exist.
func (r *Relay) moveToken(conn *Connection, m protocol.MoveToken) {
	if !r.store.Move(m.ID, m.X, m.Y) {
		r.logger.Debug("move for unknown token",
			zap.String("client_id", conn.identity),
			zap.String("token_id", m.ID.Key()),
		)
	}
	r.broadcast(conn.roomID, protocol.NewUpdateToken(conn.identity, m), conn)
}

// relayText stamps text with the sender and sends it to the whole room,
// sender included.
func (r *Relay) relayText(conn *Connection, kind, text string) {
	r.broadcast(conn.roomID, protocol.NewRelayed(kind, conn.identity, text), nil)
}
