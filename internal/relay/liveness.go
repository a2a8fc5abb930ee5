package relay

import (
	"context"

	"go.uber.org/zap"

	"github.com/luciancaetano/tablerelay"
)

// sweep is one heartbeat tick. Connections that showed no activity since the
// previous tick are terminated; their transports then report the close and
// go through unregister. Everyone else is marked idle and probed.
func (r *Relay) sweep(ctx context.Context) {
	for _, conn := range r.registry.Connections() {
		if !conn.alive {
			r.logger.Info("client timed out, terminating connection",
				zap.String("client_id", conn.identity),
				zap.String("conn_id", conn.client.ID()),
				zap.String("reason", tablerelay.ReasonHeartbeat),
			)
			if err := conn.client.Terminate(); err != nil {
				r.logger.Debug("terminate failed", zap.String("conn_id", conn.client.ID()), zap.Error(err))
			}
			continue
		}

		conn.alive = false
		if err := conn.client.Ping(ctx); err != nil {
			r.logger.Debug("ping failed",
				zap.String("client_id", conn.identity),
				zap.String("conn_id", conn.client.ID()),
				zap.Error(err),
			)
		}
	}
}
