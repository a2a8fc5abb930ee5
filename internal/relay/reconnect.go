package relay

import (
	"context"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/luciancaetano/tablerelay"
	"github.com/luciancaetano/tablerelay/internal/protocol"
)

// reconnect reconciles conn with the identity the client claims.
//
//   - A claim held by a connection that is in a room: conn adopts that
//     connection's identity, room and liveness flag and takes its room slot.
//     No join/leave is announced for the swap.
//   - A claim nobody holds: conn takes the claimed identity as is and joins the
//     default room.
//   - No claim: conn gets a fresh identity and joins the default room.
//
// A room conn leaves on the way to a different room is told it left. In every
// case the client then receives init_state and its room is told it joined.
func (r *Relay) reconnect(conn *Connection, claimed string) {
	switch old := r.registry.FindByIdentity(claimed); {
	case old == conn:
		r.logger.Info("client reconnected on the same connection",
			zap.String("client_id", conn.identity),
			zap.String("room_id", conn.roomID),
		)
	case old != nil:
		r.adopt(conn, old)
	case claimed != "":
		r.vacate(conn, r.registry.DefaultRoom())
		conn.identity = claimed
		r.registry.Join(conn, r.registry.DefaultRoom())
		r.logger.Info("client reconnected with unknown identity",
			zap.String("client_id", conn.identity),
			zap.String("room_id", conn.roomID),
		)
	default:
		r.vacate(conn, r.registry.DefaultRoom())
		conn.identity = r.newIdentity()
		r.registry.Join(conn, r.registry.DefaultRoom())
		r.logger.Info("assigned new client id on reconnect",
			zap.String("client_id", conn.identity),
			zap.String("room_id", conn.roomID),
		)
	}
	r.welcome(conn)
}

// vacate takes conn out of its room before a reconnect places it in target.
// Leaving any room other than target is announced under the identity conn had
// there. Staying in target is a slot swap and stays silent.
func (r *Relay) vacate(conn *Connection, target string) {
	identity := conn.identity
	prev, ok := r.registry.Leave(conn)
	if !ok || prev == target {
		return
	}
	r.broadcast(prev, protocol.NewUserLeft(identity), nil)
	r.logger.Info("client left room on reconnect",
		zap.String("client_id", identity),
		zap.String("room_id", prev),
	)
}

// adopt transfers old's identity, room slot and liveness flag to conn. old
// keeps no identity and no room, so its eventual close announces nothing. The
// close itself runs off the event loop since a stalled peer can hold the
// close handshake for up to a second.
func (r *Relay) adopt(conn, old *Connection) {
	r.vacate(conn, old.roomID)
	r.registry.Replace(old, conn)
	conn.identity = old.identity
	conn.alive = old.alive
	old.identity = ""

	r.logger.Info("client reconnected",
		zap.String("client_id", conn.identity),
		zap.String("conn_id", conn.client.ID()),
		zap.String("previous_conn_id", old.client.ID()),
		zap.String("room_id", conn.roomID),
	)

	go r.closeSuperseded(old.client)
}

func (r *Relay) closeSuperseded(client tablerelay.Client) {
	if err := client.CloseWithCode(context.Background(), websocket.CloseNormalClosure, tablerelay.ReasonSessionResumed); err != nil {
		r.logger.Debug("closing superseded connection",
			zap.String("conn_id", client.ID()),
			zap.Error(err),
		)
	}
}
