// Package tablerelay is a real-time relay server for shared virtual tabletops.
//
// Players connect over WebSocket, land in a room and share a board of tokens.
// The server keeps the authoritative token positions and fans out moves, dice
// rolls and chat to everyone in the same room.
//
// # Architecture
//
//	ws/                 transport facade (server construction, origins, rate limits)
//	internal/websocket  gorilla/websocket server and per-client write pump
//	internal/protocol   JSON message decoding and outbound message types
//	internal/relay      registry, rooms, token store, dispatcher, heartbeat
//	cmd/relayserver     configuration, logging and process lifecycle
//
// The transport owns sockets and nothing else. Every connect, frame, pong and
// disconnect is handed to the relay, which applies them one at a time on a
// single event loop. Handlers therefore see a consistent registry and never
// take locks.
//
// # Quick Start
//
//	core := relay.New(relay.Config{DefaultRoom: tablerelay.DefaultRoom}, logger)
//	go core.Run(ctx)
//
//	server := ws.New(ws.NewConfig(":8080", ws.DefaultRateLimitConfig(), ws.AllOrigins(), ws.Hooks{
//	    OnConnect:    core.Connect,
//	    OnMessage:    core.Receive,
//	    OnPong:       core.Pong,
//	    OnDisconnect: core.Disconnect,
//	}))
//	server.Start(ctx)
//
// # Protocol
//
// Every frame is a JSON object with a "type" field. Clients send reconnect,
// join_room, leave_room, move_token, dice_roll, chat_message, broadcast and
// ping. The server sends init_state, user_joined, user_left, room_joined,
// room_left, update_token, pong and the relayed text kinds.
//
// Malformed frames and unknown types are logged and dropped. The client gets
// no error reply.
//
// # Identity
//
// Each connection is given a fresh client id. A client that lost its socket
// sends {"type":"reconnect","identity":"<old id>"} on a new one and takes over
// the old connection's identity and room. The superseded socket is closed.
//
// # Liveness
//
// Every heartbeat period (30s by default) the relay terminates connections that
// stayed silent since the previous sweep and pings the rest. Any inbound frame
// or pong counts as activity.
//
// # Rate Limiting
//
// Each client has an independent token bucket (100 messages/second, burst 200
// by default). A client that exceeds it is closed with code 1008 (Policy
// Violation).
//
// # Important
//
//   - Configure allowed origins in production (ws.AllOrigins accepts any page)
//   - The token board and the registry live in memory and are lost on restart
package tablerelay
