package relay

import (
	"go.uber.org/zap"

	"github.com/luciancaetano/tablerelay/internal/protocol"
)

// welcome sends the token table to conn and announces it to its room.
func (r *Relay) welcome(conn *Connection) {
	r.send(conn, protocol.NewInitState(conn.identity, r.store.Snapshot()))
	r.broadcast(conn.roomID, protocol.NewUserJoined(conn.identity), conn)
}

// moveToRoom moves conn into roomID. Joining the room conn is already in is
// a leave followed by a join.
func (r *Relay) moveToRoom(conn *Connection, roomID string) {
	if roomID == "" {
		r.logger.Warn("join_room without room id", zap.String("client_id", conn.identity))
		return
	}

	if prev, ok := r.registry.Leave(conn); ok {
		r.broadcast(prev, protocol.NewUserLeft(conn.identity), nil)
		r.logger.Info("client left room",
			zap.String("client_id", conn.identity),
			zap.String("room_id", prev),
		)
	}

	r.registry.Join(conn, roomID)
	r.logger.Info("client joined room",
		zap.String("client_id", conn.identity),
		zap.String("room_id", roomID),
	)
	r.broadcast(roomID, protocol.NewUserJoined(conn.identity), conn)
	r.send(conn, protocol.NewRoomJoined(roomID))
}

// leaveRoom takes conn out of its room. It is a no-op when conn is in no room.
func (r *Relay) leaveRoom(conn *Connection) {
	prev, ok := r.registry.Leave(conn)
	if !ok {
		return
	}
	r.broadcast(prev, protocol.NewUserLeft(conn.identity), nil)
	r.logger.Info("client left room",
		zap.String("client_id", conn.identity),
		zap.String("room_id", prev),
	)
	r.send(conn, protocol.NewRoomLeft())
}

// unregister removes conn from its room and from the registry.
func (r *Relay) unregister(conn *Connection) {
	if prev, ok := r.registry.Leave(conn); ok {
		r.broadcast(prev, protocol.NewUserLeft(conn.identity), nil)
		r.logger.Info("client left room",
			zap.String("client_id", conn.identity),
			zap.String("room_id", prev),
			zap.Int("remaining", len(r.registry.Members(prev))),
		)
		if !r.registry.HasRoom(prev) {
			r.logger.Info("room deleted", zap.String("room_id", prev))
		}
	}
	r.registry.Remove(conn)
}
