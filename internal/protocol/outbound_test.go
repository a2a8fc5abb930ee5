package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncode tests the wire shape of every outbound kind
func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  any
		want string
	}{
		{
			name: "init_state",
			msg: NewInitState("c1", map[string]Token{
				"0": {ID: NumericTokenID(0), X: 100, Y: 100},
			}),
			want: `{"type":"init_state","client_id":"c1","tokens":{"0":{"id":0,"x":100,"y":100}}}`,
		},
		{
			name: "user_joined",
			msg:  NewUserJoined("u1"),
			want: `{"type":"user_joined","userId":"u1"}`,
		},
		{
			name: "user_left",
			msg:  NewUserLeft("u1"),
			want: `{"type":"user_left","userId":"u1"}`,
		},
		{
			name: "room_joined",
			msg:  NewRoomJoined("tavern"),
			want: `{"type":"room_joined","roomId":"tavern"}`,
		},
		{
			name: "room_left",
			msg:  NewRoomLeft(),
			want: `{"type":"room_left"}`,
		},
		{
			name: "pong",
			msg:  NewPong(),
			want: `{"type":"pong"}`,
		},
		{
			name: "update_token with string id",
			msg:  NewUpdateToken("u1", MoveToken{ID: StringTokenID("0"), X: 50, Y: 60}),
			want: `{"type":"update_token","sender_id":"u1","id":"0","x":50,"y":60}`,
		},
		{
			name: "chat_message",
			msg:  NewRelayed("chat_message", "u1", "hello"),
			want: `{"type":"chat_message","sender_id":"u1","message":"hello"}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := Encode(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}
