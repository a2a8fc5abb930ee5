package tablerelay

// Inbound message kinds.
const (
	KindReconnect        = "reconnect"
	KindReconnectRequest = "reconnect_request"
	KindJoinRoom         = "join_room"
	KindLeaveRoom        = "leave_room"
	KindMoveToken        = "move_token"
	KindDiceRoll         = "dice_roll"
	KindChatMessage      = "chat_message"
	KindBroadcast        = "broadcast"
	KindPing             = "ping"
)

// Outbound message kinds. dice_roll, chat_message and broadcast reuse the
// inbound names.
const (
	KindInitState   = "init_state"
	KindUserJoined  = "user_joined"
	KindUserLeft    = "user_left"
	KindRoomJoined  = "room_joined"
	KindRoomLeft    = "room_left"
	KindUpdateToken = "update_token"
	KindPong        = "pong"
)

// DefaultRoom is the room every new connection is placed in.
const DefaultRoom = "lobby"

// Standard error messages
const (
	// Protocol errors
	ErrInvalidMessageFormat = "invalid message format"

	// Connection errors
	ErrConnectionClosed     = "client connection is closed"
	ErrSendBufferFull       = "client send buffer is full"
	ErrServerAlreadyRunning = "server already running"
	ErrRelayStopped         = "relay stopped"

	// Close reasons
	ReasonRateLimited    = "rate limit exceeded"
	ReasonHeartbeat      = "heartbeat timeout"
	ReasonSessionResumed = "session resumed on another connection"
)
