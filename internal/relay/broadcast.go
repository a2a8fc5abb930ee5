package relay

import (
	"context"

	"go.uber.org/zap"

	"github.com/luciancaetano/tablerelay/internal/protocol"
)

// broadcast sends msg to every open member of roomID except exclude, which may
// be nil. Delivery is best effort: closed or backed-up transports are skipped.
func (r *Relay) broadcast(roomID string, msg any, exclude *Connection) {
	if roomID == "" {
		return
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		r.logger.Error("encoding broadcast", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	for _, member := range r.registry.Members(roomID) {
		if member == exclude || !member.client.IsAlive() {
			continue
		}
		r.deliver(member, data)
	}
}

// send writes msg to conn alone.
func (r *Relay) send(conn *Connection, msg any) {
	data, err := protocol.Encode(msg)
	if err != nil {
		r.logger.Error("encoding frame", zap.String("client_id", conn.identity), zap.Error(err))
		return
	}
	if !conn.client.IsAlive() {
		return
	}
	r.deliver(conn, data)
}

func (r *Relay) deliver(conn *Connection, data []byte) {
	if err := conn.client.Send(context.Background(), data); err != nil {
		r.logger.Debug("frame not delivered",
			zap.String("client_id", conn.identity),
			zap.String("conn_id", conn.client.ID()),
			zap.Error(err),
		)
	}
}
